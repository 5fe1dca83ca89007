package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"support-copilot-be/pkg/llm"
	"support-copilot-be/pkg/store"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestClassifyParsesModelOutput(t *testing.T) {
	provider := &fakeLLM{response: `{"intent": "complaint", "urgency": "high", "sentiment": "negative", "confidence": 0.92}`}
	c := NewClassifier(provider, discardLogger())

	result := c.Classify(context.Background(), "Your billing system charged me twice!", nil)

	if result.Intent != IntentComplaint {
		t.Errorf("intent = %s, want complaint", result.Intent)
	}
	if result.Urgency != UrgencyHigh {
		t.Errorf("urgency = %s, want high", result.Urgency)
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %f, want 0.92", result.Confidence)
	}
}

func TestClassifyModelErrorDegradesToDefault(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model down")}
	c := NewClassifier(provider, discardLogger())

	result := c.Classify(context.Background(), "anything", nil)

	if result.Intent != IntentQuery {
		t.Errorf("intent = %s, want query", result.Intent)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %f, want 0 so no ticket is auto-created", result.Confidence)
	}
}

func TestClassifyUnparseableFallsBackToKeywords(t *testing.T) {
	provider := &fakeLLM{response: "I think this is a complaint about billing."}
	c := NewClassifier(provider, discardLogger())

	result := c.Classify(context.Background(), "I was overcharged and nobody responds, this is urgent", nil)

	if result.Intent != IntentComplaint {
		t.Errorf("intent = %s, want complaint from keyword fallback", result.Intent)
	}
	if result.Urgency != UrgencyHigh {
		t.Errorf("urgency = %s, want high from keyword fallback", result.Urgency)
	}
	if result.Confidence != 0.6 {
		t.Errorf("confidence = %f, want the fixed fallback confidence 0.6", result.Confidence)
	}
}

func TestClassifyRejectsUnknownIntentLabel(t *testing.T) {
	provider := &fakeLLM{response: `{"intent": "chitchat", "confidence": 0.9}`}
	c := NewClassifier(provider, discardLogger())

	result := c.Classify(context.Background(), "hello there", nil)

	// Unknown label falls through to the keyword path, which reads this as a query.
	if result.Intent != IntentQuery {
		t.Errorf("intent = %s, want query", result.Intent)
	}
}

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantIntent    Intent
		wantUrgency   string
		wantSentiment string
	}{
		{
			name:          "billing complaint",
			query:         "I was charged twice and I am frustrated",
			wantIntent:    IntentComplaint,
			wantUrgency:   "low",
			wantSentiment: SentimentNegative,
		},
		{
			name:          "feature request",
			query:         "please add a new analytics dashboard",
			wantIntent:    IntentFeatureRequest,
			wantUrgency:   "low",
			wantSentiment: SentimentNeutral,
		},
		{
			name:          "service request",
			query:         "I need assistance to configure my workspace",
			wantIntent:    IntentServiceRequest,
			wantUrgency:   "low",
			wantSentiment: SentimentNeutral,
		},
		{
			name:          "plain question",
			query:         "what are your business hours",
			wantIntent:    IntentQuery,
			wantUrgency:   "low",
			wantSentiment: SentimentNeutral,
		},
		{
			name:          "urgent outage",
			query:         "urgent: the system is not working",
			wantIntent:    IntentQuery,
			wantUrgency:   UrgencyHigh,
			wantSentiment: SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeywordClassify(tt.query)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", got.Intent, tt.wantIntent)
			}
			if got.Urgency != tt.wantUrgency {
				t.Errorf("urgency = %s, want %s", got.Urgency, tt.wantUrgency)
			}
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("sentiment = %s, want %s", got.Sentiment, tt.wantSentiment)
			}
		})
	}
}

func TestBuildPromptIncludesHistory(t *testing.T) {
	c := NewClassifier(&fakeLLM{}, discardLogger())

	history := []store.Turn{
		{Query: "how do I export data", Answer: "Use Settings > Export."},
	}
	prompt := c.buildPrompt("and what about imports", history)

	if !strings.Contains(prompt, "how do I export data") || !strings.Contains(prompt, "Use Settings > Export.") {
		t.Error("prompt should embed the recent conversation window")
	}
}
