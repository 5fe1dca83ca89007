package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"support-copilot-be/pkg/llm"
	"support-copilot-be/pkg/store"
)

// Intent labels a user query.
type Intent string

const (
	IntentQuery          Intent = "query"
	IntentComplaint      Intent = "complaint"
	IntentServiceRequest Intent = "service_request"
	IntentFeatureRequest Intent = "feature_request"
)

// Urgency levels.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Result is produced once per turn and is immutable once emitted.
type Result struct {
	Intent     Intent  `json:"intent"`
	Urgency    string  `json:"urgency"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// DefaultResult is the degraded classification used when the model fails:
// the turn continues, but low confidence disables ticket auto-creation.
func DefaultResult() Result {
	return Result{
		Intent:     IntentQuery,
		Urgency:    UrgencyMedium,
		Sentiment:  SentimentNeutral,
		Confidence: 0,
	}
}

// Classifier labels a query with intent, urgency and sentiment.
// It never consults the knowledge store.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.LLMProvider, logger *log.Logger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify analyzes the query. Model failure degrades to DefaultResult
// rather than aborting the turn; a keyword fallback handles unparsable output.
func (c *Classifier) Classify(ctx context.Context, query string, history []store.Turn) Result {
	prompt := c.buildPrompt(query, history)

	// Temperature 0 for deterministic output
	response, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Printf("[ERROR] Intent classification failed: %v", err)
		return DefaultResult()
	}

	result, err := parseResult(response)
	if err != nil {
		c.logger.Printf("[WARN] Intent parsing failed, using keyword fallback: %v", err)
		return KeywordClassify(query)
	}

	c.logger.Printf("[INTENT] Classified: %s (Urgency: %s, Sentiment: %s, Confidence: %.2f)",
		result.Intent, result.Urgency, result.Sentiment, result.Confidence)

	return result
}

func (c *Classifier) buildPrompt(query string, history []store.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are an intent analyzer for a customer support copilot. Your ONLY job is to classify the user's message.\n")
	prompt.WriteString("You do NOT answer questions. You only classify intent, urgency and sentiment.\n")
	prompt.WriteString("</system>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<recent_conversation>\n")
		for _, turn := range history {
			prompt.WriteString(fmt.Sprintf("User: %s\nAssistant: %s\n", turn.Query, turn.Answer))
		}
		prompt.WriteString("</recent_conversation>\n\n")
	}

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("query: User asks for information (e.g. 'How do I reset my password?', 'What are your business hours?')\n")
	prompt.WriteString("complaint: User reports something broken, wrong, or unsatisfactory (e.g. 'Your billing system charged me twice', 'This feature is broken')\n")
	prompt.WriteString("service_request: User asks for an action to be performed on their behalf (e.g. 'I need help setting up my account', 'Please help me recover my data')\n")
	prompt.WriteString("feature_request: User proposes new functionality (e.g. 'We need a new analytics dashboard', 'Can you add export to CSV?')\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent\": \"query|complaint|service_request|feature_request\",\n")
	prompt.WriteString("  \"urgency\": \"high|medium|low\",\n")
	prompt.WriteString("  \"sentiment\": \"positive|neutral|negative\",\n")
	prompt.WriteString("  \"confidence\": 0.95\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseResult(response string) (Result, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return Result{}, fmt.Errorf("no JSON found in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return Result{}, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	result.Intent = Intent(strings.ToLower(string(result.Intent)))
	switch result.Intent {
	case IntentQuery, IntentComplaint, IntentServiceRequest, IntentFeatureRequest:
	default:
		return Result{}, fmt.Errorf("unknown intent %q", result.Intent)
	}

	if result.Urgency == "" {
		result.Urgency = UrgencyMedium
	}
	if result.Sentiment == "" {
		result.Sentiment = SentimentNeutral
	}

	return result, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
