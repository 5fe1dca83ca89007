package events

import "time"

// Event type codes for the ticket workflow.
const (
	TypeTicketCreated   = "TICKET_CREATED"
	TypeTicketLocalOnly = "TICKET_LOCAL_ONLY"
	TypeTurnCompleted   = "TURN_COMPLETED"
)

// NewTicketCreated is emitted after a ticket is mirrored to the external tracker.
func NewTicketCreated(localID, externalID, ticketType, tenantID, urgency string) Event {
	return BaseEvent{
		Type: TypeTicketCreated,
		Data: map[string]interface{}{
			"local_id":    localID,
			"external_id": externalID,
			"type":        ticketType,
			"tenant_id":   tenantID,
			"urgency":     urgency,
		},
		OccurredAt: time.Now(),
	}
}

// NewTicketLocalOnly is emitted when the external call failed and the ticket
// is usable internally only.
func NewTicketLocalOnly(localID, ticketType, tenantID, urgency string) Event {
	return BaseEvent{
		Type: TypeTicketLocalOnly,
		Data: map[string]interface{}{
			"local_id":  localID,
			"type":      ticketType,
			"tenant_id": tenantID,
			"urgency":   urgency,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnCompleted is emitted once per completed copilot turn.
func NewTurnCompleted(sessionID, tenantID, intent string, ticketCreated bool) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"tenant_id":      tenantID,
			"intent":         intent,
			"ticket_created": ticketCreated,
		},
		OccurredAt: time.Now(),
	}
}
