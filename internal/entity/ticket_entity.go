package entity

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses. Pending is the pre-external-call state; Created and
// LocalOnly are terminal.
const (
	TicketStatusPending   = "pending"
	TicketStatusCreated   = "created"
	TicketStatusLocalOnly = "local_only"
)

type Ticket struct {
	Id           uuid.UUID
	ExternalId   string
	Type         string
	TenantId     string
	RoleOrigin   string
	Status       string
	TurnKey      string
	QueryText    string
	LinkedAnswer string
	Urgency      string
	Sentiment    string
	SessionId    string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}

// Terminal reports whether the ticket already reached a final external state.
func (t *Ticket) Terminal() bool {
	return t.Status == TicketStatusCreated || t.Status == TicketStatusLocalOnly
}
