package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/identity"
	"support-copilot-be/pkg/llm"
)

// Validation is the outcome of the complaint validity check. Rationale is
// always user-visible when Valid is false.
type Validation struct {
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// EvidenceRetriever fetches knowledge-base evidence scoped to the identity.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, id identity.Identity) ([]retrieval.ScoredDocument, error)
}

// Phrases that indicate a genuine grievance rather than a question.
var validIndicators = []string{
	"charged", "overcharged", "billed", "broken", "not working", "doesn't work",
	"failed", "error", "crashed", "lost", "missing", "refused", "ignored",
	"terrible", "unacceptable", "twice", "double", "never received", "still waiting",
}

// Phrases that indicate the user is asking how to do something, not complaining.
var questionPatterns = []string{
	"how to", "how do i", "how can i", "what is", "where do i", "can you explain",
	"is it possible", "would like to know",
}

// ComplaintValidator checks a complaint against knowledge-base evidence before
// the decision engine escalates it to a ticket.
type ComplaintValidator struct {
	llmProvider llm.LLMProvider
	retriever   EvidenceRetriever
	logger      *log.Logger
}

func NewComplaintValidator(llmProvider llm.LLMProvider, retriever EvidenceRetriever, logger *log.Logger) *ComplaintValidator {
	return &ComplaintValidator{
		llmProvider: llmProvider,
		retriever:   retriever,
		logger:      logger,
	}
}

// Validate combines a phrase-level pre-check with a model verdict grounded in
// retrieved evidence. The combine rule is conservative toward the user: a
// complaint is invalid only when BOTH the pre-check and the model agree it is
// not a genuine grievance. Any model or retrieval failure defaults to valid so
// a real complaint is never dropped by infrastructure trouble.
func (v *ComplaintValidator) Validate(ctx context.Context, query string, id identity.Identity) Validation {
	patternValid := patternCheck(query)

	evidence, err := v.retriever.Retrieve(ctx, query, id)
	if err != nil {
		v.logger.Printf("[WARN] Complaint evidence retrieval failed, accepting complaint: %v", err)
		return Validation{Valid: true, Confidence: 0.5, Rationale: "accepted without evidence check"}
	}

	modelVerdict, err := v.modelCheck(ctx, query, evidence)
	if err != nil {
		v.logger.Printf("[WARN] Complaint model check failed, accepting complaint: %v", err)
		return Validation{Valid: true, Confidence: 0.5, Rationale: "accepted without model check"}
	}

	if !patternValid && !modelVerdict.Valid {
		rationale := modelVerdict.Rationale
		if rationale == "" {
			rationale = "this looks like a question rather than a complaint; here is an answer instead of a ticket"
		}
		return Validation{Valid: false, Confidence: modelVerdict.Confidence, Rationale: rationale}
	}

	return Validation{Valid: true, Confidence: modelVerdict.Confidence, Rationale: modelVerdict.Rationale}
}

// patternCheck is the deterministic pre-check. A query matching a how-to
// pattern with no grievance indicator reads as a question, not a complaint.
func patternCheck(query string) bool {
	lower := strings.ToLower(query)
	for _, indicator := range validIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	for _, pattern := range questionPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

func (v *ComplaintValidator) modelCheck(ctx context.Context, query string, evidence []retrieval.ScoredDocument) (Validation, error) {
	response, err := v.llmProvider.Generate(ctx, buildValidationPrompt(query, evidence), llm.WithTemperature(0.0))
	if err != nil {
		return Validation{}, err
	}

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx <= startIdx {
		return Validation{}, fmt.Errorf("no JSON found in validation response")
	}

	var verdict Validation
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &verdict); err != nil {
		return Validation{}, fmt.Errorf("validation JSON unmarshal failed: %w", err)
	}
	return verdict, nil
}

func buildValidationPrompt(query string, evidence []retrieval.ScoredDocument) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You decide whether a customer message is a genuine complaint that warrants a support ticket.\n")
	prompt.WriteString("A genuine complaint reports a concrete problem the customer experienced.\n")
	prompt.WriteString("A how-to question or a general inquiry is NOT a complaint.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<knowledge_base_evidence>\n")
	if len(evidence) == 0 {
		prompt.WriteString("(no related documents found)\n")
	}
	for _, doc := range evidence {
		prompt.WriteString(fmt.Sprintf("<document source=%q>\n%s\n</document>\n", doc.Source, doc.Content))
	}
	prompt.WriteString("</knowledge_base_evidence>\n\n")

	prompt.WriteString("<customer_message>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</customer_message>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString(`{"valid": true, "confidence": 0.0, "rationale": "one sentence the customer can read"}`)
	prompt.WriteString("\n</output_format>")

	return prompt.String()
}
