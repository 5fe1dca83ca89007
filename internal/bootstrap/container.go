package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"support-copilot-be/internal/config"
	"support-copilot-be/internal/controller"
	"support-copilot-be/internal/handler"
	"support-copilot-be/internal/pkg/logger"
	"support-copilot-be/internal/pkg/mailer"
	"support-copilot-be/internal/repository/memory"
	"support-copilot-be/internal/repository/unitofwork"
	"support-copilot-be/internal/service"
	"support-copilot-be/internal/websocket"
	"support-copilot-be/pkg/copilot/decompose"
	"support-copilot-be/pkg/copilot/generate"
	"support-copilot-be/pkg/copilot/intent"
	"support-copilot-be/pkg/copilot/orchestrator"
	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/copilot/review"
	"support-copilot-be/pkg/copilot/tooling"
	"support-copilot-be/pkg/embedding"
	"support-copilot-be/pkg/llm/factory"
	pktNats "support-copilot-be/pkg/nats"
	"support-copilot-be/pkg/ticketing/jira"
)

type Container struct {
	// Controllers
	CopilotController   controller.ICopilotController
	TicketController    controller.ITicketController
	KnowledgeController controller.IKnowledgeController

	// Background services (exposed for main.go to run)
	NotificationService service.INotificationService

	// WebSocket
	TicketStreamHandler *handler.TicketStreamHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// Pipeline trace log, rotated separately from the system log.
	pipelineLogger := log.New(&lumberjack.Logger{
		Filename:   cfg.Copilot.PipelineLogPath,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, "", log.LstdFlags)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
		cfg.Ai.RequestTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	sessionRepo := memory.NewSessionRepository(cfg.Copilot.SessionTTL)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	wsLogger := logger.NewIsolatedLogger("logs/ticket_stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	jiraClient := jira.NewClient(
		cfg.Jira.BaseURL,
		cfg.Jira.Username,
		cfg.Jira.APIToken,
		cfg.Jira.ProjectKey,
		cfg.Jira.Timeout,
	)
	if !jiraClient.Configured() {
		log.Printf("[WARN] Jira credentials missing, all tickets will be local_only")
	}

	// 5. Copilot pipeline
	searcher := service.NewKnowledgeSearcher(uowFactory, embeddingProvider, cfg.Copilot.MinSimilarity, sysLogger)

	classifier := intent.NewClassifier(llmProvider, pipelineLogger)
	decomposer := decompose.NewDecomposer(llmProvider, decompose.Config{
		MaxSubQueries:  cfg.Copilot.MaxSubQueries,
		VagueWordCount: cfg.Copilot.VagueWordCount,
	}, pipelineLogger)
	retriever := retrieval.NewRetriever(searcher, retrieval.Config{
		Weights: retrieval.Weights{
			Similarity: cfg.Copilot.WeightSimilarity,
			Keyword:    cfg.Copilot.WeightKeyword,
			Recency:    cfg.Copilot.WeightRecency,
			Quality:    cfg.Copilot.WeightQuality,
		},
		TopK:          cfg.Copilot.TopK,
		MinSimilarity: cfg.Copilot.MinSimilarity,
	}, pipelineLogger)
	generator := generate.NewGenerator(llmProvider, generate.Config{
		MaxContextDocs: cfg.Copilot.MaxContextDocs,
		HistoryWindow:  cfg.Copilot.HistoryWindow,
	}, pipelineLogger)
	reviewer := review.NewReviewer(llmProvider, review.Thresholds{
		Faithfulness: cfg.Copilot.ThresholdFaithfulness,
		Completeness: cfg.Copilot.ThresholdCompleteness,
		Clarity:      cfg.Copilot.ThresholdClarity,
	}, pipelineLogger)
	validator := tooling.NewComplaintValidator(llmProvider, retriever, pipelineLogger)
	decider := tooling.NewEngine(validator, tooling.Config{
		ConfidenceFloor: cfg.Copilot.ConfidenceFloor,
	}, pipelineLogger)

	// 6. Services
	ticketService := service.NewTicketService(
		uowFactory,
		jiraClient,
		pubSub,
		natsPub,
		emailService,
		cfg.SMTP.EscalationInbox,
		sysLogger,
	)

	orch := orchestrator.New(
		classifier,
		decomposer,
		retriever,
		generator,
		reviewer,
		decider,
		ticketService,
		orchestrator.Config{
			MaxReviewRetries: cfg.Copilot.MaxReviewRetries,
			MaxContextDocs:   cfg.Copilot.MaxContextDocs,
			HistoryWindow:    cfg.Copilot.HistoryWindow,
		},
		pipelineLogger,
	)

	copilotService := service.NewCopilotService(uowFactory, sessionRepo, orch, natsPub, sysLogger)
	notificationService := service.NewNotificationService(pubSub, wsHub, wsLogger)

	ticketStreamHandler := handler.NewTicketStreamHandler(wsHub, wsLogger)

	// 7. Controllers
	return &Container{
		CopilotController:   controller.NewCopilotController(copilotService),
		TicketController:    controller.NewTicketController(ticketService),
		KnowledgeController: controller.NewKnowledgeController(copilotService),

		NotificationService: notificationService,

		TicketStreamHandler: ticketStreamHandler,
		WebSocketHub:        wsHub,
	}
}
