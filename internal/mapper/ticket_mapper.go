package mapper

import (
	"time"

	"gorm.io/gorm"

	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/model"
)

type TicketMapper struct{}

func NewTicketMapper() *TicketMapper {
	return &TicketMapper{}
}

func (m *TicketMapper) ToEntity(t *model.Ticket) *entity.Ticket {
	if t == nil {
		return nil
	}

	var deletedAt *time.Time
	if t.DeletedAt.Valid {
		dt := t.DeletedAt.Time
		deletedAt = &dt
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		ut := t.UpdatedAt
		updatedAt = &ut
	}

	return &entity.Ticket{
		Id:           t.Id,
		ExternalId:   t.ExternalId,
		Type:         t.Type,
		TenantId:     t.TenantId,
		RoleOrigin:   t.RoleOrigin,
		Status:       t.Status,
		TurnKey:      t.TurnKey,
		QueryText:    t.QueryText,
		LinkedAnswer: t.LinkedAnswer,
		Urgency:      t.Urgency,
		Sentiment:    t.Sentiment,
		SessionId:    t.SessionId,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
		IsDeleted:    t.DeletedAt.Valid,
	}
}

func (m *TicketMapper) ToModel(t *entity.Ticket) *model.Ticket {
	if t == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if t.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	} else if t.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	return &model.Ticket{
		Id:           t.Id,
		ExternalId:   t.ExternalId,
		Type:         t.Type,
		TenantId:     t.TenantId,
		RoleOrigin:   t.RoleOrigin,
		Status:       t.Status,
		TurnKey:      t.TurnKey,
		QueryText:    t.QueryText,
		LinkedAnswer: t.LinkedAnswer,
		Urgency:      t.Urgency,
		Sentiment:    t.Sentiment,
		SessionId:    t.SessionId,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
	}
}
