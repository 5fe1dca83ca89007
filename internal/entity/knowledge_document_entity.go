package entity

import (
	"time"

	"github.com/google/uuid"
)

// Visibility levels for knowledge documents.
const (
	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityRestricted = "restricted"
)

type KnowledgeDocument struct {
	Id             uuid.UUID
	Content        string
	Source         string
	EmbeddingValue []float32
	TenantId       string
	AccessRoles    []string
	Visibility     string
	QualityScore   float64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
