package contract

import (
	"context"

	"github.com/google/uuid"

	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/repository/specification"
)

// ScoredKnowledgeDocument wraps a document with its cosine similarity
type ScoredKnowledgeDocument struct {
	Document   *entity.KnowledgeDocument
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type KnowledgeRepository interface {
	Create(ctx context.Context, doc *entity.KnowledgeDocument) error
	CreateBulk(ctx context.Context, docs []*entity.KnowledgeDocument) error
	Update(ctx context.Context, doc *entity.KnowledgeDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore runs the access-scoped cosine search. The tenant
	// and role filter is part of the SQL query, never a post-filter.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, tenantID, role string, threshold float64) ([]*ScoredKnowledgeDocument, error)
}
