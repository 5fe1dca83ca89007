package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"support-copilot-be/pkg/identity"
)

type fakeSearcher struct {
	docs []Document
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, id identity.Identity, limit int) ([]Document, error) {
	return f.docs, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testIdentity() identity.Identity {
	id, _ := identity.New("acme", "customer")
	return id
}

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRetriever(searcher Searcher, cfg Config) *Retriever {
	r := NewRetriever(searcher, cfg, discardLogger())
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRetrieveFiltersBelowMinSimilarity(t *testing.T) {
	searcher := &fakeSearcher{docs: []Document{
		{ID: "keep", Similarity: 0.8, UpdatedAt: fixedNow},
		{ID: "drop", Similarity: 0.1, UpdatedAt: fixedNow},
	}}
	r := newTestRetriever(searcher, Config{TopK: 5, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "refund policy", testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("got %d docs, want only the one above the similarity floor", len(got))
	}
}

func TestRetrieveRanksByCompositeScore(t *testing.T) {
	old := fixedNow.Add(-365 * 24 * time.Hour)
	searcher := &fakeSearcher{docs: []Document{
		// High similarity but stale, low quality, no keyword overlap.
		{ID: "stale", Content: "unrelated text", Similarity: 0.9, Quality: 0.2, UpdatedAt: old},
		// Slightly lower similarity but fresh, high quality, full keyword overlap.
		{ID: "fresh", Content: "refund policy details", Similarity: 0.8, Quality: 0.9, UpdatedAt: fixedNow},
	}}
	r := newTestRetriever(searcher, Config{TopK: 5, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "refund policy", testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d docs, want 2", len(got))
	}
	if got[0].ID != "fresh" {
		t.Errorf("top doc = %s, composite score must outrank raw similarity", got[0].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %f then %f", got[0].Score, got[1].Score)
	}
}

func TestRetrieveIsDeterministic(t *testing.T) {
	searcher := &fakeSearcher{docs: []Document{
		{ID: "b", Content: "refund policy", Similarity: 0.7, Quality: 0.5, UpdatedAt: fixedNow.Add(-time.Hour)},
		{ID: "a", Content: "refund policy", Similarity: 0.7, Quality: 0.5, UpdatedAt: fixedNow.Add(-time.Hour)},
		{ID: "c", Content: "shipping times", Similarity: 0.9, Quality: 0.5, UpdatedAt: fixedNow},
	}}
	r := newTestRetriever(searcher, Config{TopK: 5, MinSimilarity: 0.3})

	first, err := r.Retrieve(context.Background(), "refund policy", testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Retrieve(context.Background(), "refund policy", testIdentity())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range first {
			if first[j].ID != again[j].ID {
				t.Fatalf("run %d produced different order at position %d: %s vs %s", i, j, first[j].ID, again[j].ID)
			}
		}
	}
}

func TestRetrieveTieBreaksByRecencyThenID(t *testing.T) {
	older := fixedNow.Add(-2 * time.Hour)
	newer := fixedNow.Add(-1 * time.Hour)
	searcher := &fakeSearcher{docs: []Document{
		{ID: "z", Content: "same", Similarity: 0.7, Quality: 0.5, UpdatedAt: older},
		{ID: "m", Content: "same", Similarity: 0.7, Quality: 0.5, UpdatedAt: newer},
		{ID: "a", Content: "same", Similarity: 0.7, Quality: 0.5, UpdatedAt: older},
	}}
	r := newTestRetriever(searcher, Config{TopK: 5, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "zzz", testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d docs, want 3", len(got))
	}
	if got[0].ID != "m" {
		t.Errorf("first = %s, equal scores must break by recency", got[0].ID)
	}
	if got[1].ID != "a" || got[2].ID != "z" {
		t.Errorf("equal score and recency must break by id: got %s, %s", got[1].ID, got[2].ID)
	}
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	docs := make([]Document, 10)
	for i := range docs {
		docs[i] = Document{ID: string(rune('a' + i)), Similarity: 0.9, Quality: 0.5, UpdatedAt: fixedNow}
	}
	searcher := &fakeSearcher{docs: docs}
	r := newTestRetriever(searcher, Config{TopK: 3, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "anything", testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d docs, want the TopK cap of 3", len(got))
	}
}

func TestRetrieveSearchErrorBecomesUnavailable(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	r := newTestRetriever(searcher, Config{TopK: 5, MinSimilarity: 0.3})

	_, err := r.Retrieve(context.Background(), "anything", testIdentity())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestRetrieveRejectsInvalidIdentity(t *testing.T) {
	r := newTestRetriever(&fakeSearcher{}, Config{TopK: 5})

	_, err := r.Retrieve(context.Background(), "anything", identity.Identity{})
	if err == nil {
		t.Error("missing tenant and role must be a fatal error, not a degraded result")
	}
}

func TestInvalidWeightsFallBackToDefaults(t *testing.T) {
	cfg := Config{
		Weights: Weights{Similarity: 0.9, Keyword: 0.9, Recency: 0.9, Quality: 0.9},
		TopK:    5,
	}
	r := NewRetriever(&fakeSearcher{}, cfg, discardLogger())

	if r.cfg.Weights != DefaultWeights() {
		t.Errorf("weights = %+v, want defaults when the configured set does not sum to 1", r.cfg.Weights)
	}
}

func TestRecencyScoreHalfLife(t *testing.T) {
	halfLife := 90 * 24 * time.Hour

	score := recencyScore(fixedNow, fixedNow.Add(-halfLife), halfLife)
	if score < 0.499 || score > 0.501 {
		t.Errorf("one half-life old scored %f, want 0.5", score)
	}

	if got := recencyScore(fixedNow, time.Time{}, halfLife); got != 1.0 {
		t.Errorf("zero UpdatedAt scored %f, want 1.0", got)
	}
}

func TestKeywordOverlapIgnoresStopwords(t *testing.T) {
	terms := tokenize("How do I reset my password")
	// "how", "do", "i", "my" are stopwords; "reset" and "password" remain.
	if len(terms) != 2 {
		t.Fatalf("tokenize kept %d terms (%v), want 2", len(terms), terms)
	}

	if got := keywordOverlap(terms, "To reset a password, open settings."); got != 1.0 {
		t.Errorf("overlap = %f, want 1.0", got)
	}
	if got := keywordOverlap(terms, "Shipping takes 3-5 days."); got != 0.0 {
		t.Errorf("overlap = %f, want 0.0", got)
	}
}
