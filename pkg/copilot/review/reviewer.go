package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/llm"
)

// Verdict is one review pass over a draft answer. Scores run 0 to 1.
type Verdict struct {
	Approved     bool    `json:"approved"`
	Faithfulness float64 `json:"faithfulness"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Notes        string  `json:"notes"`
}

// Thresholds are the minimum per-dimension scores for approval.
type Thresholds struct {
	Faithfulness float64
	Completeness float64
	Clarity      float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Faithfulness: 0.7, Completeness: 0.6, Clarity: 0.6}
}

// Reviewer grades drafts against the retrieved context.
type Reviewer struct {
	llmProvider llm.LLMProvider
	thresholds  Thresholds
	logger      *log.Logger
}

func NewReviewer(llmProvider llm.LLMProvider, thresholds Thresholds, logger *log.Logger) *Reviewer {
	return &Reviewer{
		llmProvider: llmProvider,
		thresholds:  thresholds,
		logger:      logger,
	}
}

// Review grades the draft. A model error or unparseable response counts as a
// failed review with explanatory notes, never as approval. Approval requires
// every dimension to clear its threshold; when context exists but the answer
// cites none of it, faithfulness is forced to zero.
func (r *Reviewer) Review(ctx context.Context, query, answer string, docs []retrieval.ScoredDocument) Verdict {
	response, err := r.llmProvider.Generate(ctx, r.buildPrompt(query, answer, docs), llm.WithTemperature(0.0))
	if err != nil {
		r.logger.Printf("[ERROR] Review call failed: %v", err)
		return Verdict{Notes: "review unavailable: the grading model could not be reached"}
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		r.logger.Printf("[WARN] Review response unparseable: %v", err)
		return Verdict{Notes: "review unavailable: the grading model returned an invalid verdict"}
	}

	if len(docs) > 0 && !citesAnySource(answer, docs) {
		verdict.Faithfulness = 0
		if verdict.Notes != "" {
			verdict.Notes += "; "
		}
		verdict.Notes += "answer cites none of the retrieved documents"
	}

	verdict.Approved = verdict.Faithfulness >= r.thresholds.Faithfulness &&
		verdict.Completeness >= r.thresholds.Completeness &&
		verdict.Clarity >= r.thresholds.Clarity

	r.logger.Printf("[REVIEW] approved=%t faith=%.2f complete=%.2f clarity=%.2f",
		verdict.Approved, verdict.Faithfulness, verdict.Completeness, verdict.Clarity)
	return verdict
}

func (r *Reviewer) buildPrompt(query, answer string, docs []retrieval.ScoredDocument) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You grade a support answer against its source context.\n")
	prompt.WriteString("faithfulness: every claim is backed by the context.\n")
	prompt.WriteString("completeness: the answer addresses the whole question.\n")
	prompt.WriteString("clarity: the answer is direct, well structured, and free of filler.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<context>\n")
	if len(docs) == 0 {
		prompt.WriteString("(no documents; the answer must not assert facts)\n")
	}
	for _, doc := range docs {
		prompt.WriteString(fmt.Sprintf("<document source=%q>\n%s\n</document>\n", doc.Source, doc.Content))
	}
	prompt.WriteString("</context>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<answer_under_review>\n")
	prompt.WriteString(answer)
	prompt.WriteString("\n</answer_under_review>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString(`{"faithfulness": 0.0, "completeness": 0.0, "clarity": 0.0, "notes": "specific issues to fix, empty if none"}`)
	prompt.WriteString("\n</output_format>")

	return prompt.String()
}

func parseVerdict(response string) (Verdict, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx <= startIdx {
		return Verdict{}, fmt.Errorf("no JSON found in response")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	for _, score := range []float64{verdict.Faithfulness, verdict.Completeness, verdict.Clarity} {
		if score < 0 || score > 1 {
			return Verdict{}, fmt.Errorf("score out of range: %f", score)
		}
	}
	return verdict, nil
}

// citesAnySource checks for inline [source] citations or literal source names.
func citesAnySource(answer string, docs []retrieval.ScoredDocument) bool {
	lower := strings.ToLower(answer)
	for _, doc := range docs {
		if doc.Source == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(doc.Source)) {
			return true
		}
	}
	return false
}
