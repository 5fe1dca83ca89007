package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"support-copilot-be/pkg/llm"
)

// SubQuery is one retrieval-sized question. Order runs general → specific;
// downstream context assembly must preserve it.
type SubQuery struct {
	Text      string `json:"text"`
	Order     int    `json:"order"`
	Rationale string `json:"rationale"`
}

// Config bounds decomposition fan-out.
type Config struct {
	MaxSubQueries  int // cap on sub-questions per turn
	VagueWordCount int // queries with at least this many words are length-vague
}

func DefaultConfig() Config {
	return Config{
		MaxSubQueries:  4,
		VagueWordCount: 12,
	}
}

// Topic connectors that indicate a query spans multiple distinct subjects.
var topicConnectors = []string{" and ", " as well as ", " plus ", " along with "}

// Broad words that signal an exploratory, non-specific query.
var broadMarkers = []string{
	"everything", "anything", "all about", "overview", "in general",
	"tell me about", "explain your", "what do you offer",
}

// IsVague is a pure function of the query text so it stays unit-testable
// without a model. A query is vague when it is long, spans multiple topics,
// or uses broad exploratory phrasing without a concrete entity.
func IsVague(query string, cfg Config) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return false
	}

	words := strings.Fields(lower)

	topics := countTopics(lower)
	broad := false
	for _, marker := range broadMarkers {
		if strings.Contains(lower, marker) {
			broad = true
			break
		}
	}

	if topics >= 3 {
		return true
	}
	if broad && topics >= 2 {
		return true
	}
	if len(words) >= cfg.VagueWordCount && topics >= 2 {
		return true
	}
	return broad && !containsSpecificEntity(lower)
}

// countTopics estimates the number of distinct subjects by looking at
// connector phrases. "services and pricing and support" counts as 3.
func countTopics(lower string) int {
	topics := 1
	for _, conn := range topicConnectors {
		topics += strings.Count(lower, conn)
	}
	return topics
}

// containsSpecificEntity checks for markers of a concrete target:
// quoted strings, numbers, or capital-letter product identifiers survive
// lowercasing poorly, so this stays deliberately coarse.
func containsSpecificEntity(lower string) bool {
	if strings.ContainsAny(lower, "0123456789\"'") {
		return true
	}
	specifics := []string{"my ", "this ", "order ", "invoice ", "ticket ", "account "}
	for _, s := range specifics {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Decomposer expands vague queries into ordered sub-questions.
type Decomposer struct {
	llmProvider llm.LLMProvider
	cfg         Config
	logger      *log.Logger
}

func NewDecomposer(llmProvider llm.LLMProvider, cfg Config, logger *log.Logger) *Decomposer {
	if cfg.MaxSubQueries <= 0 {
		cfg = DefaultConfig()
	}
	return &Decomposer{
		llmProvider: llmProvider,
		cfg:         cfg,
		logger:      logger,
	}
}

// MaybeDecompose returns the original query as a single-element list when the
// query is specific, and an ordered general→specific expansion when vague.
// All failure modes collapse to the single-query form.
func (d *Decomposer) MaybeDecompose(ctx context.Context, query string) []SubQuery {
	single := []SubQuery{{Text: query, Order: 0, Rationale: "original query"}}

	if !IsVague(query, d.cfg) {
		return single
	}

	response, err := d.llmProvider.Generate(ctx, d.buildPrompt(query), llm.WithTemperature(0.0))
	if err != nil {
		d.logger.Printf("[WARN] Decomposition failed, using original query: %v", err)
		return single
	}

	subs, err := parseSubQueries(response)
	if err != nil || len(subs) == 0 {
		d.logger.Printf("[WARN] Decomposition parse failed, using heuristic split: %v", err)
		subs = heuristicSplit(query)
	}

	if len(subs) > d.cfg.MaxSubQueries {
		subs = subs[:d.cfg.MaxSubQueries]
	}
	for i := range subs {
		subs[i].Order = i
	}

	if len(subs) < 2 {
		return single
	}

	d.logger.Printf("[DECOMPOSE] Query expanded into %d sub-questions", len(subs))
	return subs
}

func (d *Decomposer) buildPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You decompose broad customer-support questions into focused sub-questions.\n")
	prompt.WriteString("Order them from the most GENERAL to the most SPECIFIC.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString(fmt.Sprintf("1. Produce at most %d sub-questions.\n", d.cfg.MaxSubQueries))
	prompt.WriteString("2. Each sub-question must be answerable from a knowledge base on its own.\n")
	prompt.WriteString("3. Do not invent topics the user did not mention.\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\"sub_queries\": [{\"text\": \"...\", \"rationale\": \"...\"}]}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

type decomposeResponse struct {
	SubQueries []SubQuery `json:"sub_queries"`
}

func parseSubQueries(response string) ([]SubQuery, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var parsed decomposeResponse
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &parsed); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	var subs []SubQuery
	for _, sq := range parsed.SubQueries {
		if strings.TrimSpace(sq.Text) == "" {
			continue
		}
		subs = append(subs, sq)
	}
	return subs, nil
}

// heuristicSplit is the model-free fallback: split on topic connectors,
// keeping the full query first as the most general framing.
func heuristicSplit(query string) []SubQuery {
	lower := strings.ToLower(query)
	parts := []string{lower}
	for _, conn := range topicConnectors {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, conn)...)
		}
		parts = next
	}

	if len(parts) < 2 {
		return []SubQuery{{Text: query, Rationale: "original query"}}
	}

	subs := []SubQuery{{Text: query, Rationale: "broad framing of the original query"}}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		subs = append(subs, SubQuery{Text: p, Rationale: "topic split from original query"})
	}
	return subs
}
