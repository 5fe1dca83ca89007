package generate

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/llm"
)

type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func doc(id, source string) retrieval.ScoredDocument {
	return retrieval.ScoredDocument{
		Document: retrieval.Document{ID: id, Source: source, Content: "content of " + id},
	}
}

func TestMergeContextsPreservesSubQueryOrder(t *testing.T) {
	perQuery := [][]retrieval.ScoredDocument{
		{doc("g1", "general"), doc("shared", "both")},
		{doc("shared", "both"), doc("s1", "specific")},
	}

	merged := MergeContexts(perQuery, 8)

	wantOrder := []string{"g1", "shared", "s1"}
	if len(merged) != len(wantOrder) {
		t.Fatalf("got %d docs, want %d", len(merged), len(wantOrder))
	}
	for i, want := range wantOrder {
		if merged[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, merged[i].ID, want)
		}
	}
}

func TestMergeContextsFirstOccurrenceWins(t *testing.T) {
	general := doc("dup", "general-view")
	specific := doc("dup", "specific-view")
	specific.Score = 0.99

	merged := MergeContexts([][]retrieval.ScoredDocument{{general}, {specific}}, 8)

	if len(merged) != 1 {
		t.Fatalf("got %d docs, want 1 after dedup", len(merged))
	}
	if merged[0].Source != "general-view" {
		t.Errorf("kept %s, the first (general) occurrence must win", merged[0].Source)
	}
}

func TestMergeContextsCapsAtMaxDocs(t *testing.T) {
	perQuery := [][]retrieval.ScoredDocument{
		{doc("a", "s"), doc("b", "s"), doc("c", "s"), doc("d", "s")},
	}

	merged := MergeContexts(perQuery, 2)
	if len(merged) != 2 {
		t.Errorf("got %d docs, want the cap of 2", len(merged))
	}
}

func TestGenerateGroundedDraft(t *testing.T) {
	provider := &fakeLLM{response: "Refunds arrive in 5-7 days [billing/refunds]."}
	g := NewGenerator(provider, DefaultConfig(), discardLogger())

	docs := []retrieval.ScoredDocument{doc("d1", "billing/refunds")}
	docs[0].Score = 0.85

	draft, err := g.Generate(context.Background(), "when will my refund arrive", docs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Grounded {
		t.Error("draft with context must be grounded")
	}
	if draft.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", draft.Attempt)
	}
	if draft.Confidence != 0.85 {
		t.Errorf("confidence = %f, want the best composite score", draft.Confidence)
	}
	if len(draft.Sources) != 1 || draft.Sources[0] != "billing/refunds" {
		t.Errorf("sources = %v, want the document source", draft.Sources)
	}
}

func TestGenerateEmptyContextIsUngrounded(t *testing.T) {
	provider := &fakeLLM{response: "I could not find this in the knowledge base; please contact support."}
	g := NewGenerator(provider, DefaultConfig(), discardLogger())

	draft, err := g.Generate(context.Background(), "exotic question", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Grounded {
		t.Error("draft without context must be ungrounded")
	}
	if draft.Confidence != 0.2 {
		t.Errorf("confidence = %f, want the low empty-context confidence", draft.Confidence)
	}
	if !strings.Contains(provider.lastPrompt, "(no relevant documents found)") {
		t.Error("prompt must state the context is empty so the model does not speculate")
	}
}

func TestGenerateEmptyAnswerIsAnError(t *testing.T) {
	provider := &fakeLLM{response: "   \n  "}
	g := NewGenerator(provider, DefaultConfig(), discardLogger())

	if _, err := g.Generate(context.Background(), "q", nil, nil); err == nil {
		t.Error("blank model output must be an error, not an empty answer")
	}
}

func TestRegenerateIncludesReviewerNotes(t *testing.T) {
	provider := &fakeLLM{response: "Revised answer [src]."}
	g := NewGenerator(provider, DefaultConfig(), discardLogger())

	notes := "the claim about fees is not in the context"
	draft, err := g.Regenerate(context.Background(), "q", []retrieval.ScoredDocument{doc("d1", "src")}, nil, notes, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", draft.Attempt)
	}
	if !strings.Contains(provider.lastPrompt, notes) {
		t.Error("reviewer notes must be passed to the model verbatim")
	}
	if !strings.Contains(provider.lastPrompt, "<reviewer_feedback>") {
		t.Error("regeneration prompt must carry the reviewer feedback block")
	}
}

func TestBuildPromptCapsContextDocs(t *testing.T) {
	provider := &fakeLLM{response: "ok"}
	g := NewGenerator(provider, Config{MaxContextDocs: 2, HistoryWindow: 6}, discardLogger())

	docs := []retrieval.ScoredDocument{doc("a", "s1"), doc("b", "s2"), doc("c", "s3")}
	if _, err := g.Generate(context.Background(), "q", docs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(provider.lastPrompt, "content of c") {
		t.Error("documents beyond MaxContextDocs must not reach the prompt")
	}
	if !strings.Contains(provider.lastPrompt, "content of a") || !strings.Contains(provider.lastPrompt, "content of b") {
		t.Error("documents within MaxContextDocs must reach the prompt")
	}
}
