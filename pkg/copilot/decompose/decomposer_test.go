package decompose

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"support-copilot-be/pkg/llm"
)

type fakeLLM struct {
	response string
	err      error
	called   bool
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.called = true
	return f.response, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestIsVague(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{
			name:  "specific question",
			query: "How do I reset my password?",
			want:  false,
		},
		{
			name:  "empty query",
			query: "   ",
			want:  false,
		},
		{
			name:  "three topics",
			query: "Tell me about billing and shipping and returns",
			want:  true,
		},
		{
			name:  "broad with two topics",
			query: "Give me an overview of pricing and support",
			want:  true,
		},
		{
			name:  "long query spanning two topics",
			query: "I would like to understand how the billing cycle works and also how invoices are generated each month",
			want:  true,
		},
		{
			name:  "broad without a concrete entity",
			query: "Tell me about everything you offer",
			want:  true,
		},
		{
			name:  "broad but anchored to a concrete entity",
			query: "Tell me about my order 4521",
			want:  false,
		},
		{
			name:  "two topics but short",
			query: "billing and refunds",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVague(tt.query, cfg); got != tt.want {
				t.Errorf("IsVague(%q) = %t, want %t", tt.query, got, tt.want)
			}
		})
	}
}

func TestMaybeDecomposeSpecificQuerySkipsModel(t *testing.T) {
	provider := &fakeLLM{}
	d := NewDecomposer(provider, DefaultConfig(), discardLogger())

	subs := d.MaybeDecompose(context.Background(), "How do I reset my password?")

	if provider.called {
		t.Error("specific queries must not hit the model")
	}
	if len(subs) != 1 || subs[0].Text != "How do I reset my password?" || subs[0].Order != 0 {
		t.Errorf("got %+v, want the original query as a single sub-query", subs)
	}
}

func TestMaybeDecomposeParsesModelOutput(t *testing.T) {
	provider := &fakeLLM{response: `{"sub_queries": [
		{"text": "What plans are available?", "rationale": "general"},
		{"text": "How does plan billing work?", "rationale": "specific"}
	]}`}
	d := NewDecomposer(provider, DefaultConfig(), discardLogger())

	subs := d.MaybeDecompose(context.Background(), "Tell me about everything regarding plans and billing and upgrades")

	if len(subs) != 2 {
		t.Fatalf("got %d sub-queries, want 2", len(subs))
	}
	for i, sq := range subs {
		if sq.Order != i {
			t.Errorf("sub-query %d has order %d, order must be renumbered sequentially", i, sq.Order)
		}
	}
	if subs[0].Text != "What plans are available?" {
		t.Errorf("first sub-query = %q, order must follow model output", subs[0].Text)
	}
}

func TestMaybeDecomposeModelFailureFallsBackToOriginal(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model down")}
	d := NewDecomposer(provider, DefaultConfig(), discardLogger())

	query := "Tell me about everything regarding plans and billing and upgrades"
	subs := d.MaybeDecompose(context.Background(), query)

	if len(subs) != 1 || subs[0].Text != query {
		t.Errorf("got %+v, want the original query on model failure", subs)
	}
}

func TestMaybeDecomposeUnparseableUsesHeuristicSplit(t *testing.T) {
	provider := &fakeLLM{response: "sorry, I cannot help with that"}
	d := NewDecomposer(provider, DefaultConfig(), discardLogger())

	query := "Tell me about billing and shipping and returns"
	subs := d.MaybeDecompose(context.Background(), query)

	if len(subs) < 2 {
		t.Fatalf("got %d sub-queries, want a heuristic split", len(subs))
	}
	if subs[0].Text != query {
		t.Errorf("first sub-query = %q, the full query must stay first as the general framing", subs[0].Text)
	}
}

func TestMaybeDecomposeCapsSubQueries(t *testing.T) {
	provider := &fakeLLM{response: `{"sub_queries": [
		{"text": "a"}, {"text": "b"}, {"text": "c"}, {"text": "d"}, {"text": "e"}, {"text": "f"}
	]}`}
	d := NewDecomposer(provider, Config{MaxSubQueries: 3, VagueWordCount: 12}, discardLogger())

	subs := d.MaybeDecompose(context.Background(), "Tell me about billing and shipping and returns")

	if len(subs) != 3 {
		t.Errorf("got %d sub-queries, want the configured cap of 3", len(subs))
	}
}

func TestHeuristicSplit(t *testing.T) {
	subs := heuristicSplit("compare billing and shipping")

	if len(subs) != 3 {
		t.Fatalf("got %d parts, want full query plus two topic splits", len(subs))
	}
	if subs[1].Text != "compare billing" || subs[2].Text != "shipping" {
		t.Errorf("unexpected split: %+v", subs)
	}
}
