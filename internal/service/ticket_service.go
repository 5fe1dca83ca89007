package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"support-copilot-be/internal/dto"
	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/pkg/logger"
	"support-copilot-be/internal/pkg/mailer"
	"support-copilot-be/internal/repository/contract"
	"support-copilot-be/internal/repository/specification"
	"support-copilot-be/internal/repository/unitofwork"
	"support-copilot-be/pkg/copilot/orchestrator"
	"support-copilot-be/pkg/events"
	"support-copilot-be/pkg/identity"
	pkgNats "support-copilot-be/pkg/nats"
	"support-copilot-be/pkg/ticketing"
)

// TicketEventsTopic is the in-process bus topic for ticket lifecycle events.
const TicketEventsTopic = "TICKET_EVENTS"

type ITicketService interface {
	orchestrator.TicketCreator
	GetByLocalId(ctx context.Context, id identity.Identity, localId uuid.UUID) (*dto.TicketResponse, error)
	List(ctx context.Context, id identity.Identity, sessionID string) ([]*dto.TicketResponse, error)
}

type ticketService struct {
	uowFactory      unitofwork.RepositoryFactory
	external        ticketing.Client
	pubSub          *gochannel.GoChannel
	natsPub         *pkgNats.Publisher
	emailService    mailer.IEmailService
	escalationInbox string
	logger          logger.ILogger
}

func NewTicketService(
	uowFactory unitofwork.RepositoryFactory,
	external ticketing.Client,
	pubSub *gochannel.GoChannel,
	natsPub *pkgNats.Publisher,
	emailService mailer.IEmailService,
	escalationInbox string,
	sysLogger logger.ILogger,
) ITicketService {
	return &ticketService{
		uowFactory:      uowFactory,
		external:        external,
		pubSub:          pubSub,
		natsPub:         natsPub,
		emailService:    emailService,
		escalationInbox: escalationInbox,
		logger:          sysLogger,
	}
}

// Create runs the idempotent ticket workflow. The local record is persisted
// in status=pending BEFORE the external call; a retry for the same turn finds
// that pending record and reuses its local id, so the external tracker never
// sees two tickets for one turn. External failure degrades to local_only,
// which is a successful outcome for the turn.
func (s *ticketService) Create(ctx context.Context, req orchestrator.CreateTicketRequest) (orchestrator.TicketRef, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TicketRepository()

	ticket, err := s.findOrCreatePending(ctx, repo, req)
	if err != nil {
		return orchestrator.TicketRef{}, err
	}
	if ticket.Terminal() {
		// Retry of an already-settled turn: return the existing outcome.
		s.logger.Info("TicketService", "Reusing settled ticket", map[string]interface{}{
			"local_id": ticket.Id, "status": ticket.Status,
		})
		return orchestrator.TicketRef{
			LocalID:    ticket.Id.String(),
			ExternalID: ticket.ExternalId,
			Status:     ticket.Status,
		}, nil
	}

	externalID, err := s.external.CreateIssue(ctx, ticketing.IssueRequest{
		IdempotencyKey: ticket.Id.String(),
		IssueType:      ticket.Type,
		Summary:        summarize(ticket.QueryText),
		Description:    fmt.Sprintf("%s\n\nCopilot answer:\n%s", ticket.QueryText, ticket.LinkedAnswer),
		Urgency:        ticket.Urgency,
		Sentiment:      ticket.Sentiment,
		TenantID:       ticket.TenantId,
	})

	status := entity.TicketStatusCreated
	if err != nil {
		if !errors.Is(err, ticketing.ErrExternalUnavailable) {
			s.logger.Error("TicketService", "External ticket call failed", map[string]interface{}{
				"local_id": ticket.Id, "error": err.Error(),
			})
		}
		status = entity.TicketStatusLocalOnly
		externalID = ""
	}

	if err := repo.UpdateStatus(ctx, ticket.Id, status, externalID); err != nil {
		return orchestrator.TicketRef{}, fmt.Errorf("failed to settle ticket %s: %w", ticket.Id, err)
	}
	ticket.Status = status
	ticket.ExternalId = externalID

	s.publishLifecycleEvent(ctx, ticket)
	s.maybeEscalate(ticket)

	return orchestrator.TicketRef{
		LocalID:    ticket.Id.String(),
		ExternalID: externalID,
		Status:     status,
	}, nil
}

// findOrCreatePending returns the existing ticket for this logical turn when
// one exists (retry path) or inserts a fresh pending record. The lookup keys
// on the turn key, so a later turn repeating the same query never collides
// with an earlier turn's ticket, and a retry keeps its match even when other
// turns settled tickets in between.
func (s *ticketService) findOrCreatePending(ctx context.Context, repo contract.TicketRepository, req orchestrator.CreateTicketRequest) (*entity.Ticket, error) {
	existing, err := repo.FindOne(ctx,
		specification.ByTurnKey{TurnKey: req.TurnKey},
		specification.ByTenantID{TenantID: req.Identity.TenantID},
	)
	if err != nil {
		return nil, fmt.Errorf("ticket lookup failed: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	ticket := &entity.Ticket{
		Id:           uuid.New(),
		Type:         string(req.Type),
		TenantId:     req.Identity.TenantID,
		RoleOrigin:   string(req.Identity.Role),
		Status:       entity.TicketStatusPending,
		TurnKey:      req.TurnKey,
		QueryText:    req.Query,
		LinkedAnswer: req.Answer,
		Urgency:      req.Urgency,
		Sentiment:    req.Sentiment,
		SessionId:    req.SessionID,
	}
	if err := repo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to persist pending ticket: %w", err)
	}
	s.logger.Info("TicketService", "Pending ticket persisted", map[string]interface{}{
		"local_id": ticket.Id, "type": ticket.Type, "tenant_id": ticket.TenantId,
	})
	return ticket, nil
}

func (s *ticketService) publishLifecycleEvent(ctx context.Context, ticket *entity.Ticket) {
	var event events.Event
	if ticket.Status == entity.TicketStatusCreated {
		event = events.NewTicketCreated(ticket.Id.String(), ticket.ExternalId, ticket.Type, ticket.TenantId, ticket.Urgency)
	} else {
		event = events.NewTicketLocalOnly(ticket.Id.String(), ticket.Type, ticket.TenantId, ticket.Urgency)
	}

	// In-process bus feeds the notification consumer (websocket push).
	if s.pubSub != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"type": event.EventType(),
			"data": event.Payload(),
		})
		if err == nil {
			msg := message.NewMessage(watermill.NewUUID(), payload)
			if err := s.pubSub.Publish(TicketEventsTopic, msg); err != nil {
				s.logger.Warn("TicketService", "Failed to publish ticket event to bus", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	// Durable publication for external consumers.
	if s.natsPub != nil {
		if err := s.natsPub.Publish(ctx, event); err != nil {
			s.logger.Warn("TicketService", "Failed to publish ticket event to NATS", map[string]interface{}{"error": err.Error()})
		}
	}
}

// maybeEscalate mails the support inbox for high-urgency tickets. Fire and
// forget: mail trouble never fails the workflow.
func (s *ticketService) maybeEscalate(ticket *entity.Ticket) {
	if ticket.Urgency != "high" || s.emailService == nil || s.escalationInbox == "" {
		return
	}
	go func(t entity.Ticket) {
		_ = s.emailService.SendTicketEscalation(
			s.escalationInbox,
			t.Id.String(),
			t.ExternalId,
			t.TenantId,
			summarize(t.QueryText),
		)
	}(*ticket)
}

func (s *ticketService) GetByLocalId(ctx context.Context, id identity.Identity, localId uuid.UUID) (*dto.TicketResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	ticket, err := uow.TicketRepository().FindOne(ctx,
		specification.ByID{ID: localId},
		specification.ByTenantID{TenantID: id.TenantID},
	)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, nil
	}
	return ticketToDTO(ticket), nil
}

// List returns the tenant's tickets, optionally narrowed to one session.
func (s *ticketService) List(ctx context.Context, id identity.Identity, sessionID string) ([]*dto.TicketResponse, error) {
	specs := []specification.Specification{
		specification.ByTenantID{TenantID: id.TenantID},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if sessionID != "" {
		specs = append(specs, specification.BySessionID{SessionID: sessionID})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	tickets, err := uow.TicketRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.TicketResponse, len(tickets))
	for i, t := range tickets {
		res[i] = ticketToDTO(t)
	}
	return res, nil
}

func ticketToDTO(t *entity.Ticket) *dto.TicketResponse {
	return &dto.TicketResponse{
		LocalId:      t.Id,
		ExternalId:   t.ExternalId,
		Type:         t.Type,
		Status:       t.Status,
		Urgency:      t.Urgency,
		Sentiment:    t.Sentiment,
		QueryText:    t.QueryText,
		LinkedAnswer: t.LinkedAnswer,
		CreatedAt:    t.CreatedAt,
	}
}

// summarize trims a query into an external-tracker summary line. Trimming
// counts runes so a multi-byte character is never split.
func summarize(query string) string {
	const maxLen = 120
	runes := []rune(query)
	if len(runes) <= maxLen {
		return query
	}
	return string(runes[:maxLen-3]) + "..."
}
