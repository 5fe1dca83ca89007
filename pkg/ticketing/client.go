package ticketing

import (
	"context"
	"errors"
)

// ErrExternalUnavailable signals that the external tracker could not be
// reached or rejected the request; the caller degrades to a local-only ticket.
var ErrExternalUnavailable = errors.New("external ticket system unavailable")

// IssueRequest describes an issue to create in the external tracker.
// IdempotencyKey is the local ticket id; implementations must pass it
// through so a retried create never produces a duplicate.
type IssueRequest struct {
	IdempotencyKey string
	IssueType      string // complaint | service_request | feature_request
	Summary        string
	Description    string
	Urgency        string // high | medium | low
	Sentiment      string
	TenantID       string
}

// Client is the outbound contract to the external ticket system.
type Client interface {
	CreateIssue(ctx context.Context, req IssueRequest) (externalID string, err error)
}
