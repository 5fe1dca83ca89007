package retrieval

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"support-copilot-be/pkg/identity"
)

// ErrUnavailable marks the vector store as unreachable. Callers degrade to an
// empty context with reduced confidence instead of failing the turn.
var ErrUnavailable = errors.New("retrieval: knowledge store unavailable")

// Document is one knowledge-base chunk returned by the store, with the raw
// similarity already computed against the query embedding.
type Document struct {
	ID         string
	Content    string
	Source     string
	Similarity float64
	Quality    float64
	UpdatedAt  time.Time
}

// ScoredDocument carries the composite relevance score alongside its parts.
type ScoredDocument struct {
	Document
	Score        float64
	KeywordScore float64
	RecencyScore float64
}

// Searcher is the access-scoped vector search. Implementations must restrict
// results to the identity's tenant and role before returning; the retriever
// never re-checks access.
type Searcher interface {
	Search(ctx context.Context, query string, id identity.Identity, limit int) ([]Document, error)
}

// Weights for the composite score. They must sum to 1.
type Weights struct {
	Similarity float64
	Keyword    float64
	Recency    float64
	Quality    float64
}

func DefaultWeights() Weights {
	return Weights{Similarity: 0.5, Keyword: 0.2, Recency: 0.15, Quality: 0.15}
}

// Valid reports whether the weights are non-negative and sum to 1 within a
// float tolerance.
func (w Weights) Valid() bool {
	if w.Similarity < 0 || w.Keyword < 0 || w.Recency < 0 || w.Quality < 0 {
		return false
	}
	sum := w.Similarity + w.Keyword + w.Recency + w.Quality
	return math.Abs(sum-1.0) < 1e-6
}

// Config tunes retrieval depth and scoring.
type Config struct {
	Weights         Weights
	TopK            int
	MinSimilarity   float64
	RecencyHalfLife time.Duration
}

func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		TopK:            5,
		MinSimilarity:   0.3,
		RecencyHalfLife: 90 * 24 * time.Hour,
	}
}

// Retriever ranks access-scoped search results with a composite score.
type Retriever struct {
	searcher Searcher
	cfg      Config
	logger   *log.Logger
	now      func() time.Time
}

func NewRetriever(searcher Searcher, cfg Config, logger *log.Logger) *Retriever {
	if !cfg.Weights.Valid() {
		logger.Printf("[WARN] Invalid scoring weights, falling back to defaults")
		cfg.Weights = DefaultWeights()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.RecencyHalfLife <= 0 {
		cfg.RecencyHalfLife = DefaultConfig().RecencyHalfLife
	}
	return &Retriever{
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Retrieve runs the scoped search and returns the top-K documents ranked by
// composite score. Ties break by recency, then by document id, so identical
// inputs always produce identical ordering.
func (r *Retriever) Retrieve(ctx context.Context, query string, id identity.Identity) ([]ScoredDocument, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	// Over-fetch so composite re-ranking has room to reorder.
	docs, err := r.searcher.Search(ctx, query, id, r.cfg.TopK*3)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		r.logger.Printf("[ERROR] Knowledge search failed: %v", err)
		return nil, ErrUnavailable
	}

	now := r.now()
	queryTerms := tokenize(query)

	scored := make([]ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Similarity < r.cfg.MinSimilarity {
			continue
		}
		kw := keywordOverlap(queryTerms, doc.Content)
		rec := recencyScore(now, doc.UpdatedAt, r.cfg.RecencyHalfLife)
		w := r.cfg.Weights
		score := w.Similarity*doc.Similarity + w.Keyword*kw + w.Recency*rec + w.Quality*clamp01(doc.Quality)
		scored = append(scored, ScoredDocument{
			Document:     doc,
			Score:        score,
			KeywordScore: kw,
			RecencyScore: rec,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].UpdatedAt.Equal(scored[j].UpdatedAt) {
			return scored[i].UpdatedAt.After(scored[j].UpdatedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > r.cfg.TopK {
		scored = scored[:r.cfg.TopK]
	}

	r.logger.Printf("[RETRIEVE] tenant=%s role=%s candidates=%d kept=%d", id.TenantID, id.Role, len(docs), len(scored))
	return scored, nil
}

// keywordOverlap is the fraction of query terms appearing in the document.
func keywordOverlap(queryTerms []string, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, term := range queryTerms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// recencyScore decays exponentially with document age. A document exactly one
// half-life old scores 0.5.
func recencyScore(now, updatedAt time.Time, halfLife time.Duration) float64 {
	if updatedAt.IsZero() || updatedAt.After(now) {
		return 1.0
	}
	age := now.Sub(updatedAt)
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "to": {},
	"of": {}, "in": {}, "on": {}, "for": {}, "and": {}, "or": {}, "my": {},
	"i": {}, "you": {}, "do": {}, "does": {}, "how": {}, "what": {}, "can": {},
}

func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var terms []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
