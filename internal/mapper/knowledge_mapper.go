package mapper

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/model"
)

type KnowledgeMapper struct{}

func NewKnowledgeMapper() *KnowledgeMapper {
	return &KnowledgeMapper{}
}

func (m *KnowledgeMapper) ToEntity(doc *model.KnowledgeDocument) *entity.KnowledgeDocument {
	if doc == nil {
		return nil
	}

	var deletedAt *time.Time
	if doc.DeletedAt.Valid {
		t := doc.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !doc.UpdatedAt.IsZero() {
		t := doc.UpdatedAt
		updatedAt = &t
	}

	var roles []string
	// A malformed column yields an empty role set, which makes the document
	// unreachable rather than accidentally visible.
	_ = json.Unmarshal(doc.AccessRoles, &roles)

	return &entity.KnowledgeDocument{
		Id:             doc.Id,
		Content:        doc.Content,
		Source:         doc.Source,
		EmbeddingValue: doc.EmbeddingValue.Slice(),
		TenantId:       doc.TenantId,
		AccessRoles:    roles,
		Visibility:     doc.Visibility,
		QualityScore:   doc.QualityScore,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      doc.DeletedAt.Valid,
	}
}

func (m *KnowledgeMapper) ToModel(doc *entity.KnowledgeDocument) *model.KnowledgeDocument {
	if doc == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if doc.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *doc.DeletedAt, Valid: true}
	} else if doc.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if doc.UpdatedAt != nil {
		updatedAt = *doc.UpdatedAt
	}

	roles, _ := json.Marshal(doc.AccessRoles)

	return &model.KnowledgeDocument{
		Id:             doc.Id,
		Content:        doc.Content,
		Source:         doc.Source,
		EmbeddingValue: pgvector.NewVector(doc.EmbeddingValue),
		TenantId:       doc.TenantId,
		AccessRoles:    datatypes.JSON(roles),
		Visibility:     doc.Visibility,
		QualityScore:   doc.QualityScore,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}
