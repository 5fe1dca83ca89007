package store

import (
	"time"

	"support-copilot-be/pkg/identity"
)

// Turn is one completed query/response cycle kept in the session window.
type Turn struct {
	Query     string    `json:"query"`
	Intent    string    `json:"intent"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	TicketID  string    `json:"ticket_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the in-memory per-conversation state owned by the orchestrator.
// Identity is immutable for the lifetime of the session; turns within one
// session are processed strictly sequentially.
type Session struct {
	ID        string            `json:"id"`
	Identity  identity.Identity `json:"identity"`
	Turns     []Turn            `json:"turns"`
	CreatedAt time.Time         `json:"created_at"`
}

// HistoryWindow returns the most recent n turns, oldest first.
func (s *Session) HistoryWindow(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// AppendTurn records a completed turn.
func (s *Session) AppendTurn(t Turn) {
	s.Turns = append(s.Turns, t)
}
