package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	Intent    string    `json:"intent,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	TicketId  string    `json:"ticket_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type HandleTurnRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Query     string    `json:"query" validate:"required,max=4000"`
}

type IntentDTO struct {
	Intent     string  `json:"intent"`
	Urgency    string  `json:"urgency"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

type TicketRefDTO struct {
	LocalId    string `json:"local_id"`
	ExternalId string `json:"external_id,omitempty"`
	Status     string `json:"status"`
}

type HandleTurnResponse struct {
	SessionId         uuid.UUID     `json:"session_id"`
	Answer            string        `json:"answer"`
	Intent            IntentDTO     `json:"intent"`
	Sources           []string      `json:"sources,omitempty"`
	Ticket            *TicketRefDTO `json:"ticket,omitempty"`
	Rationale         string        `json:"rationale,omitempty"`
	Verified          bool          `json:"verified"`
	ReducedConfidence bool          `json:"reduced_confidence"`
}

type KnowledgeStatsResponse struct {
	TenantId      string `json:"tenant_id"`
	DocumentCount int64  `json:"document_count"`
}
