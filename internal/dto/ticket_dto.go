package dto

import (
	"time"

	"github.com/google/uuid"
)

type TicketResponse struct {
	LocalId      uuid.UUID `json:"local_id"`
	ExternalId   string    `json:"external_id,omitempty"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	Urgency      string    `json:"urgency"`
	Sentiment    string    `json:"sentiment"`
	QueryText    string    `json:"query_text"`
	LinkedAnswer string    `json:"linked_answer,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
