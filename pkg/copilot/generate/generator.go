package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/llm"
	"support-copilot-be/pkg/store"
)

// Draft is one generation attempt. Attempt starts at 1 and increments on every
// regeneration requested by review.
type Draft struct {
	Answer     string
	Sources    []string
	Attempt    int
	Confidence float64
	Grounded   bool
}

// Config bounds the context window handed to the model.
type Config struct {
	MaxContextDocs int
	HistoryWindow  int
}

func DefaultConfig() Config {
	return Config{MaxContextDocs: 8, HistoryWindow: 6}
}

// Generator turns retrieved context into a grounded answer draft.
type Generator struct {
	llmProvider llm.LLMProvider
	cfg         Config
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, cfg Config, logger *log.Logger) *Generator {
	if cfg.MaxContextDocs <= 0 {
		cfg = DefaultConfig()
	}
	return &Generator{
		llmProvider: llmProvider,
		cfg:         cfg,
		logger:      logger,
	}
}

// MergeContexts flattens per-sub-query results into one document list,
// preserving sub-query order (general first) and dropping duplicates by id.
// The first occurrence of a document wins, so generally-scoped hits keep
// their position ahead of specific repeats.
func MergeContexts(perQuery [][]retrieval.ScoredDocument, maxDocs int) []retrieval.ScoredDocument {
	seen := make(map[string]struct{})
	var merged []retrieval.ScoredDocument
	for _, docs := range perQuery {
		for _, doc := range docs {
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			merged = append(merged, doc)
			if maxDocs > 0 && len(merged) >= maxDocs {
				return merged
			}
		}
	}
	return merged
}

// Generate produces the first draft from the merged context. When the context
// is empty the answer states the limitation instead of speculating, and the
// draft is marked ungrounded with reduced confidence.
func (g *Generator) Generate(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn) (Draft, error) {
	return g.generate(ctx, query, docs, history, "", 1)
}

// Regenerate produces the next attempt, passing the reviewer's notes to the
// model verbatim so the revision addresses the actual findings.
func (g *Generator) Regenerate(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn, reviewNotes string, attempt int) (Draft, error) {
	return g.generate(ctx, query, docs, history, reviewNotes, attempt)
}

func (g *Generator) generate(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn, reviewNotes string, attempt int) (Draft, error) {
	grounded := len(docs) > 0

	response, err := g.llmProvider.Generate(ctx, g.buildPrompt(query, docs, history, reviewNotes), llm.WithTemperature(0.2))
	if err != nil {
		return Draft{}, fmt.Errorf("answer generation failed: %w", err)
	}

	answer := strings.TrimSpace(response)
	if answer == "" {
		return Draft{}, fmt.Errorf("answer generation returned empty response")
	}

	draft := Draft{
		Answer:     answer,
		Sources:    collectSources(docs),
		Attempt:    attempt,
		Grounded:   grounded,
		Confidence: confidenceFor(docs),
	}

	g.logger.Printf("[GENERATE] attempt=%d docs=%d grounded=%t", attempt, len(docs), grounded)
	return draft, nil
}

func (g *Generator) buildPrompt(query string, docs []retrieval.ScoredDocument, history []store.Turn, reviewNotes string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a customer-support copilot. Answer ONLY from the provided context.\n")
	prompt.WriteString("If the context does not cover the question, say so plainly and suggest contacting support.\n")
	prompt.WriteString("Cite sources inline as [source-name] where a claim comes from a document.\n")
	prompt.WriteString("</system>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<conversation_history>\n")
		for _, turn := range history {
			prompt.WriteString(fmt.Sprintf("User: %s\nAssistant: %s\n", turn.Query, turn.Answer))
		}
		prompt.WriteString("</conversation_history>\n\n")
	}

	prompt.WriteString("<context>\n")
	if len(docs) == 0 {
		prompt.WriteString("(no relevant documents found)\n")
	}
	limit := len(docs)
	if g.cfg.MaxContextDocs > 0 && limit > g.cfg.MaxContextDocs {
		limit = g.cfg.MaxContextDocs
	}
	for _, doc := range docs[:limit] {
		prompt.WriteString(fmt.Sprintf("<document source=%q>\n%s\n</document>\n", doc.Source, doc.Content))
	}
	prompt.WriteString("</context>\n\n")

	if reviewNotes != "" {
		prompt.WriteString("<reviewer_feedback>\n")
		prompt.WriteString("A previous draft of this answer was rejected. Fix these issues:\n")
		prompt.WriteString(reviewNotes)
		prompt.WriteString("\n</reviewer_feedback>\n\n")
	}

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>")

	return prompt.String()
}

func collectSources(docs []retrieval.ScoredDocument) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, doc := range docs {
		if doc.Source == "" {
			continue
		}
		if _, dup := seen[doc.Source]; dup {
			continue
		}
		seen[doc.Source] = struct{}{}
		sources = append(sources, doc.Source)
	}
	return sources
}

// confidenceFor derives a rough confidence from the best composite score.
// An empty context pins confidence low so the caller can surface uncertainty.
func confidenceFor(docs []retrieval.ScoredDocument) float64 {
	if len(docs) == 0 {
		return 0.2
	}
	best := docs[0].Score
	for _, doc := range docs[1:] {
		if doc.Score > best {
			best = doc.Score
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}
