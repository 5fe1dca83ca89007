package tooling

import (
	"context"
	"log"

	"support-copilot-be/pkg/copilot/intent"
	"support-copilot-be/pkg/identity"
)

// Action is what the decision engine asks the turn to do next.
type Action string

const (
	ActionNone         Action = "none"
	ActionCreateTicket Action = "create_ticket"
)

// TicketType mirrors the intents that qualify for escalation.
type TicketType string

const (
	TicketComplaint      TicketType = "complaint"
	TicketServiceRequest TicketType = "service_request"
	TicketFeatureRequest TicketType = "feature_request"
)

// Decision is the zero-or-one tool invocation for a turn. Rationale is
// user-visible whenever the action is none for a reason the user should hear.
type Decision struct {
	Action     Action
	TicketType TicketType
	Rationale  string
}

// Config holds the confidence floor below which no ticket is ever created.
type Config struct {
	ConfidenceFloor float64
}

func DefaultConfig() Config {
	return Config{ConfidenceFloor: 0.6}
}

// Engine maps (intent, identity, validation) to a tool decision.
type Engine struct {
	validator *ComplaintValidator
	cfg       Config
	logger    *log.Logger
}

func NewEngine(validator *ComplaintValidator, cfg Config, logger *log.Logger) *Engine {
	if cfg.ConfidenceFloor <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Decide applies the escalation rules. Low classifier confidence always wins:
// an unsure intent never creates a ticket regardless of its label.
func (e *Engine) Decide(ctx context.Context, query string, intentResult intent.Result, id identity.Identity) Decision {
	if intentResult.Confidence < e.cfg.ConfidenceFloor {
		e.logger.Printf("[DECIDE] confidence %.2f below floor %.2f, no tool call",
			intentResult.Confidence, e.cfg.ConfidenceFloor)
		return Decision{Action: ActionNone, Rationale: "intent confidence too low for automatic escalation"}
	}

	switch intentResult.Intent {
	case intent.IntentComplaint:
		validation := e.validator.Validate(ctx, query, id)
		if !validation.Valid {
			e.logger.Printf("[DECIDE] complaint rejected by validator: %s", validation.Rationale)
			return Decision{Action: ActionNone, Rationale: validation.Rationale}
		}
		return Decision{Action: ActionCreateTicket, TicketType: TicketComplaint}

	case intent.IntentServiceRequest:
		return Decision{Action: ActionCreateTicket, TicketType: TicketServiceRequest}

	case intent.IntentFeatureRequest:
		if id.Role != identity.RoleAssociate {
			return Decision{
				Action:    ActionNone,
				Rationale: "feature requests can only be filed by associates; please route this through your account contact",
			}
		}
		return Decision{Action: ActionCreateTicket, TicketType: TicketFeatureRequest}

	default:
		return Decision{Action: ActionNone}
	}
}
