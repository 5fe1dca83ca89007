package review

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/llm"
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

func contextDocs() []retrieval.ScoredDocument {
	return []retrieval.ScoredDocument{
		{Document: retrieval.Document{ID: "d1", Source: "billing/refunds", Content: "Refunds take 5-7 days."}},
	}
}

func TestReviewApprovesWhenAllThresholdsClear(t *testing.T) {
	provider := &fakeLLM{response: `{"faithfulness": 0.9, "completeness": 0.8, "clarity": 0.85, "notes": ""}`}
	r := NewReviewer(provider, DefaultThresholds(), discardLogger())

	verdict := r.Review(context.Background(), "refund time?", "Refunds take 5-7 days [billing/refunds].", contextDocs())

	if !verdict.Approved {
		t.Errorf("verdict not approved: %+v", verdict)
	}
}

func TestReviewRejectsWhenOneDimensionFails(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"low faithfulness", `{"faithfulness": 0.5, "completeness": 0.9, "clarity": 0.9}`},
		{"low completeness", `{"faithfulness": 0.9, "completeness": 0.4, "clarity": 0.9}`},
		{"low clarity", `{"faithfulness": 0.9, "completeness": 0.9, "clarity": 0.3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReviewer(&fakeLLM{response: tt.response}, DefaultThresholds(), discardLogger())
			verdict := r.Review(context.Background(), "q", "answer citing [billing/refunds]", contextDocs())
			if verdict.Approved {
				t.Errorf("approved despite a failing dimension: %+v", verdict)
			}
		})
	}
}

func TestReviewForcesFaithfulnessToZeroWhenNothingCited(t *testing.T) {
	provider := &fakeLLM{response: `{"faithfulness": 0.95, "completeness": 0.9, "clarity": 0.9}`}
	r := NewReviewer(provider, DefaultThresholds(), discardLogger())

	verdict := r.Review(context.Background(), "q", "An answer that cites nothing at all.", contextDocs())

	if verdict.Faithfulness != 0 {
		t.Errorf("faithfulness = %f, want 0 when context exists but nothing is cited", verdict.Faithfulness)
	}
	if verdict.Approved {
		t.Error("uncited answer must never be approved")
	}
	if verdict.Notes == "" {
		t.Error("the citation failure must be explained in the notes")
	}
}

func TestReviewEmptyContextSkipsCitationCheck(t *testing.T) {
	provider := &fakeLLM{response: `{"faithfulness": 0.8, "completeness": 0.7, "clarity": 0.9}`}
	r := NewReviewer(provider, DefaultThresholds(), discardLogger())

	verdict := r.Review(context.Background(), "q", "Nothing in the knowledge base covers this; contact support.", nil)

	if !verdict.Approved {
		t.Errorf("no-context answer with passing scores must approve: %+v", verdict)
	}
}

func TestReviewModelErrorIsARejection(t *testing.T) {
	r := NewReviewer(&fakeLLM{err: errors.New("model down")}, DefaultThresholds(), discardLogger())

	verdict := r.Review(context.Background(), "q", "answer", contextDocs())

	if verdict.Approved {
		t.Error("a failed review call must not approve")
	}
	if verdict.Notes == "" {
		t.Error("the failure must be explained in the notes")
	}
}

func TestReviewUnparseableIsARejection(t *testing.T) {
	r := NewReviewer(&fakeLLM{response: "looks good to me!"}, DefaultThresholds(), discardLogger())

	verdict := r.Review(context.Background(), "q", "answer", contextDocs())

	if verdict.Approved {
		t.Error("an unparseable verdict must not approve")
	}
}

func TestParseVerdictRejectsOutOfRangeScores(t *testing.T) {
	if _, err := parseVerdict(`{"faithfulness": 1.5, "completeness": 0.5, "clarity": 0.5}`); err == nil {
		t.Error("scores above 1 must be rejected")
	}
	if _, err := parseVerdict(`{"faithfulness": -0.1, "completeness": 0.5, "clarity": 0.5}`); err == nil {
		t.Error("negative scores must be rejected")
	}
}

func TestCitesAnySource(t *testing.T) {
	docs := contextDocs()

	if !citesAnySource("see [billing/refunds] for details", docs) {
		t.Error("inline citation must count")
	}
	if !citesAnySource("Per Billing/Refunds the window is 5-7 days", docs) {
		t.Error("source matching is case-insensitive")
	}
	if citesAnySource("no citation here", docs) {
		t.Error("absent source must not count")
	}
}
