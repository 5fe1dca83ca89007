package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"support-copilot-be/internal/config"
	"support-copilot-be/internal/entity"
	"support-copilot-be/internal/repository/unitofwork"
	"support-copilot-be/pkg/database"
	"support-copilot-be/pkg/embedding"
)

type seedDoc struct {
	Content      string
	Source       string
	TenantId     string
	AccessRoles  []string
	Visibility   string
	QualityScore float64
}

// Fixture knowledge base for local development. Two tenants, mixed
// visibility tiers, so access scoping is exercisable out of the box.
var seedDocs = []seedDoc{
	{
		Content:      "Refunds are issued to the original payment method within 5-7 business days. Duplicate charges are refunded in full once verified against the billing ledger.",
		Source:       "billing/refund-policy",
		TenantId:     "acme",
		AccessRoles:  []string{"customer", "associate", "leadership"},
		Visibility:   entity.VisibilityPublic,
		QualityScore: 0.9,
	},
	{
		Content:      "To reset a password, use Settings > Security > Reset Password. A reset link expires after 30 minutes. Locked accounts unlock automatically after 15 minutes.",
		Source:       "account/password-reset",
		TenantId:     "acme",
		AccessRoles:  []string{"customer", "associate"},
		Visibility:   entity.VisibilityPublic,
		QualityScore: 0.85,
	},
	{
		Content:      "Escalation runbook: complaints about double billing go to the billing queue with priority P2. Attach the ledger extract before escalating to the payments vendor.",
		Source:       "internal/escalation-runbook",
		TenantId:     "acme",
		AccessRoles:  []string{"associate", "leadership"},
		Visibility:   entity.VisibilityPrivate,
		QualityScore: 0.8,
	},
	{
		Content:      "Quarterly vendor SLA review: credits apply when uptime falls below 99.5 percent for two consecutive months. Leadership sign-off required for credits above 10k.",
		Source:       "internal/vendor-sla",
		TenantId:     "acme",
		AccessRoles:  []string{"leadership", "hr"},
		Visibility:   entity.VisibilityRestricted,
		QualityScore: 0.75,
	},
	{
		Content:      "Shipping: standard delivery takes 3-5 business days. Expedited orders placed before 2pm ship same day. Lost packages are reshipped after a 10 day carrier trace.",
		Source:       "orders/shipping-policy",
		TenantId:     "globex",
		AccessRoles:  []string{"customer", "associate"},
		Visibility:   entity.VisibilityPublic,
		QualityScore: 0.9,
	},
	{
		Content:      "Feature request intake: associates log requests in the product board with customer impact notes. Requests with 20+ linked tickets get a quarterly roadmap review.",
		Source:       "internal/feature-intake",
		TenantId:     "globex",
		AccessRoles:  []string{"associate", "leadership"},
		Visibility:   entity.VisibilityPrivate,
		QualityScore: 0.7,
	},
}

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	docs := make([]*entity.KnowledgeDocument, 0, len(seedDocs))
	for _, sd := range seedDocs {
		res, err := provider.Generate(ctx, sd.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Fatalf("Error: Embedding failed for %s: %v", sd.Source, err)
		}

		docs = append(docs, &entity.KnowledgeDocument{
			Id:             uuid.New(),
			Content:        sd.Content,
			Source:         sd.Source,
			EmbeddingValue: res.Embedding.Values,
			TenantId:       sd.TenantId,
			AccessRoles:    sd.AccessRoles,
			Visibility:     sd.Visibility,
			QualityScore:   sd.QualityScore,
			CreatedAt:      time.Now(),
		})
		log.Printf("Embedded %s (%s)", sd.Source, sd.TenantId)
	}

	if err := uow.KnowledgeRepository().CreateBulk(ctx, docs); err != nil {
		log.Fatalf("Error: Failed to insert seed documents: %v", err)
	}

	log.Printf("✅ Seeded %d knowledge documents", len(docs))
}
