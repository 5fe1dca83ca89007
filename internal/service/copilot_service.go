package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"support-copilot-be/internal/dto"
	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/pkg/logger"
	"support-copilot-be/internal/repository/memory"
	"support-copilot-be/internal/repository/specification"
	"support-copilot-be/internal/repository/unitofwork"
	"support-copilot-be/pkg/copilot/orchestrator"
	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/embedding"
	"support-copilot-be/pkg/events"
	"support-copilot-be/pkg/identity"
	pkgNats "support-copilot-be/pkg/nats"
	"support-copilot-be/pkg/store"
)

type ICopilotService interface {
	CreateSession(ctx context.Context, id identity.Identity) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, id identity.Identity) ([]dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, id identity.Identity, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, id identity.Identity, sessionId uuid.UUID) error
	HandleTurn(ctx context.Context, id identity.Identity, req *dto.HandleTurnRequest) (*dto.HandleTurnResponse, error)
	KnowledgeStats(ctx context.Context, id identity.Identity) (*dto.KnowledgeStatsResponse, error)
}

type copilotService struct {
	uowFactory   unitofwork.RepositoryFactory
	sessionRepo  *memory.SessionRepository
	orchestrator *orchestrator.Orchestrator
	natsPub      *pkgNats.Publisher
	logger       logger.ILogger
}

func NewCopilotService(
	uowFactory unitofwork.RepositoryFactory,
	sessionRepo *memory.SessionRepository,
	orch *orchestrator.Orchestrator,
	natsPub *pkgNats.Publisher,
	sysLogger logger.ILogger,
) ICopilotService {
	return &copilotService{
		uowFactory:   uowFactory,
		sessionRepo:  sessionRepo,
		orchestrator: orch,
		natsPub:      natsPub,
		logger:       sysLogger,
	}
}

func (s *copilotService) CreateSession(ctx context.Context, id identity.Identity) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := &entity.ChatSession{
		Id:       uuid.New(),
		TenantId: id.TenantID,
		Role:     string(id.Role),
		Title:    "New Conversation",
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	s.sessionRepo.Save(&store.Session{
		ID:        session.Id.String(),
		Identity:  id,
		CreatedAt: time.Now(),
	})

	s.logger.Info("CopilotService", "Session created", map[string]interface{}{
		"session_id": session.Id, "tenant_id": id.TenantID,
	})
	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (s *copilotService) GetAllSessions(ctx context.Context, id identity.Identity) ([]dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByTenantID{TenantID: id.TenantID},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]dto.GetAllSessionsResponse, len(sessions))
	for i, sess := range sessions {
		res[i] = dto.GetAllSessionsResponse{
			Id:        sess.Id,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		}
	}
	return res, nil
}

func (s *copilotService) GetChatHistory(ctx context.Context, id identity.Identity, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedSession(ctx, uow, id, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]dto.GetChatHistoryResponse, len(messages))
	for i, msg := range messages {
		res[i] = dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			Intent:    msg.Intent,
			Sources:   msg.Sources,
			TicketId:  msg.TicketId,
			CreatedAt: msg.CreatedAt,
		}
	}
	return res, nil
}

func (s *copilotService) DeleteSession(ctx context.Context, id identity.Identity, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if _, err := s.ownedSession(ctx, uow, id, sessionId); err != nil {
		return err
	}

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.sessionRepo.Delete(sessionId.String())
	s.orchestrator.ReleaseSession(sessionId.String())
	return nil
}

// HandleTurn runs one full copilot turn for the session and persists the
// transcript. The durable chat tables are the source of truth; the in-memory
// session is a cache rebuilt from them after eviction or restart.
func (s *copilotService) HandleTurn(ctx context.Context, id identity.Identity, req *dto.HandleTurnRequest) (*dto.HandleTurnResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessionEntity, err := s.ownedSession(ctx, uow, id, req.SessionId)
	if err != nil {
		return nil, err
	}

	session, err := s.loadSession(ctx, uow, id, req.SessionId)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.HandleTurn(ctx, session, req.Query)
	if err != nil {
		// A durable ticket can outlive a cancelled turn; nothing else of
		// this turn is persisted or returned.
		if result.Ticket != nil {
			s.logger.Warn("CopilotService", "Turn cancelled after ticket creation", map[string]interface{}{
				"session_id": req.SessionId, "ticket_id": result.Ticket.LocalID,
			})
		}
		return nil, err
	}

	s.sessionRepo.Save(session)

	if err := s.persistTurn(ctx, uow, sessionEntity, req.Query, result); err != nil {
		s.logger.Error("CopilotService", "Failed to persist turn transcript", map[string]interface{}{
			"session_id": req.SessionId, "error": err.Error(),
		})
	}

	if s.natsPub != nil {
		event := events.NewTurnCompleted(req.SessionId.String(), id.TenantID, string(result.Intent.Intent), result.Ticket != nil)
		if err := s.natsPub.Publish(ctx, event); err != nil {
			s.logger.Warn("CopilotService", "Failed to publish turn event", map[string]interface{}{"error": err.Error()})
		}
	}

	return turnResultToDTO(req.SessionId, result), nil
}

func (s *copilotService) KnowledgeStats(ctx context.Context, id identity.Identity) (*dto.KnowledgeStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.KnowledgeRepository().Count(ctx, specification.ByTenantID{TenantID: id.TenantID})
	if err != nil {
		return nil, err
	}
	return &dto.KnowledgeStatsResponse{TenantId: id.TenantID, DocumentCount: count}, nil
}

// ownedSession loads the session and enforces tenant ownership. A session
// belonging to another tenant is indistinguishable from a missing one.
func (s *copilotService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, id identity.Identity, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByTenantID{TenantID: id.TenantID},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "chat session not found")
	}
	return session, nil
}

// loadSession returns the cached orchestrator session or rebuilds it from the
// durable transcript.
func (s *copilotService) loadSession(ctx context.Context, uow unitofwork.UnitOfWork, id identity.Identity, sessionId uuid.UUID) (*store.Session, error) {
	if cached, found := s.sessionRepo.Get(sessionId.String()); found {
		return cached, nil
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	session := &store.Session{
		ID:        sessionId.String(),
		Identity:  id,
		CreatedAt: time.Now(),
	}

	// Pair user/assistant rows back into turns. An unpaired trailing user
	// message (crashed turn) is dropped from history.
	var pending *store.Turn
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleUser:
			pending = &store.Turn{Query: msg.Chat, CreatedAt: msg.CreatedAt}
		case entity.RoleAssistant:
			if pending == nil {
				continue
			}
			pending.Answer = msg.Chat
			pending.Intent = msg.Intent
			pending.Sources = msg.Sources
			pending.TicketID = msg.TicketId
			session.AppendTurn(*pending)
			pending = nil
		}
	}

	s.sessionRepo.Save(session)
	return session, nil
}

func (s *copilotService) persistTurn(ctx context.Context, uow unitofwork.UnitOfWork, sessionEntity *entity.ChatSession, query string, result orchestrator.TurnResult) error {
	userMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          query,
		Role:          entity.RoleUser,
		ChatSessionId: sessionEntity.Id,
	}
	assistantMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          result.Answer,
		Role:          entity.RoleAssistant,
		Intent:        string(result.Intent.Intent),
		Sources:       result.Sources,
		ChatSessionId: sessionEntity.Id,
	}
	if result.Ticket != nil {
		assistantMsg.TicketId = result.Ticket.LocalID
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().CreateBulk(ctx, []*entity.ChatMessage{userMsg, assistantMsg}); err != nil {
		return err
	}

	// First turn names the conversation.
	if sessionEntity.Title == "" || sessionEntity.Title == "New Conversation" {
		sessionEntity.Title = summarize(query)
		if err := uow.ChatSessionRepository().Update(ctx, sessionEntity); err != nil {
			return err
		}
	}

	return uow.Commit()
}

func turnResultToDTO(sessionId uuid.UUID, result orchestrator.TurnResult) *dto.HandleTurnResponse {
	res := &dto.HandleTurnResponse{
		SessionId: sessionId,
		Answer:    result.Answer,
		Intent: dto.IntentDTO{
			Intent:     string(result.Intent.Intent),
			Urgency:    result.Intent.Urgency,
			Sentiment:  result.Intent.Sentiment,
			Confidence: result.Intent.Confidence,
		},
		Sources:           result.Sources,
		Rationale:         result.DecisionRationale,
		Verified:          !result.Unverified,
		ReducedConfidence: result.ReducedConfidence,
	}
	if result.Ticket != nil {
		res.Ticket = &dto.TicketRefDTO{
			LocalId:    result.Ticket.LocalID,
			ExternalId: result.Ticket.ExternalID,
			Status:     result.Ticket.Status,
		}
	}
	return res
}

// knowledgeSearcher adapts the pgvector-backed knowledge repository to the
// retrieval pipeline. Query embedding failure or a store error surfaces as
// retrieval.ErrUnavailable so the pipeline degrades instead of failing.
type knowledgeSearcher struct {
	uowFactory    unitofwork.RepositoryFactory
	embedder      embedding.EmbeddingProvider
	minSimilarity float64
	logger        logger.ILogger
}

func NewKnowledgeSearcher(
	uowFactory unitofwork.RepositoryFactory,
	embedder embedding.EmbeddingProvider,
	minSimilarity float64,
	sysLogger logger.ILogger,
) retrieval.Searcher {
	return &knowledgeSearcher{
		uowFactory:    uowFactory,
		embedder:      embedder,
		minSimilarity: minSimilarity,
		logger:        sysLogger,
	}
}

func (k *knowledgeSearcher) Search(ctx context.Context, query string, id identity.Identity, limit int) ([]retrieval.Document, error) {
	embResp, err := k.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		k.logger.Warn("KnowledgeSearcher", "Query embedding failed", map[string]interface{}{"error": err.Error()})
		return nil, retrieval.ErrUnavailable
	}

	uow := k.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.KnowledgeRepository().SearchSimilarWithScore(
		ctx, embResp.Embedding.Values, limit, id.TenantID, string(id.Role), k.minSimilarity,
	)
	if err != nil {
		k.logger.Warn("KnowledgeSearcher", "Vector search failed", map[string]interface{}{"error": err.Error()})
		return nil, retrieval.ErrUnavailable
	}

	docs := make([]retrieval.Document, len(scored))
	for i, sc := range scored {
		updatedAt := sc.Document.CreatedAt
		if sc.Document.UpdatedAt != nil {
			updatedAt = *sc.Document.UpdatedAt
		}
		docs[i] = retrieval.Document{
			ID:         sc.Document.Id.String(),
			Content:    sc.Document.Content,
			Source:     sc.Document.Source,
			Similarity: sc.Similarity,
			Quality:    sc.Document.QualityScore,
			UpdatedAt:  updatedAt,
		}
	}
	return docs, nil
}
