package contract

import (
	"context"

	"github.com/google/uuid"

	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/repository/specification"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	Update(ctx context.Context, ticket *entity.Ticket) error
	// UpdateStatus moves a ticket to a new status, optionally recording the
	// external key returned by the tracker.
	UpdateStatus(ctx context.Context, id uuid.UUID, status, externalID string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Ticket, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Ticket, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
