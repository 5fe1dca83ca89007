package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"support-copilot-be/internal/pkg/logger"
	"support-copilot-be/internal/websocket"
)

// INotificationService consumes ticket lifecycle events from the in-process
// bus and pushes them to the tenant's connected agents.
type INotificationService interface {
	Consume(ctx context.Context) error
}

type notificationService struct {
	pubSub *gochannel.GoChannel
	hub    *websocket.Hub
	logger logger.ILogger
}

func NewNotificationService(pubSub *gochannel.GoChannel, hub *websocket.Hub, sysLogger logger.ILogger) INotificationService {
	return &notificationService{
		pubSub: pubSub,
		hub:    hub,
		logger: sysLogger,
	}
}

func (ns *notificationService) Consume(ctx context.Context) error {
	messages, err := ns.pubSub.Subscribe(ctx, TicketEventsTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ns.processMessage(msg)
		}
	}()

	ns.logger.Info("NotificationService", "Listening for ticket events", map[string]interface{}{"topic": TicketEventsTopic})
	return nil
}

func (ns *notificationService) processMessage(msg *message.Message) {
	var payload struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal ticket event: %v", err)
		msg.Ack() // malformed payloads never become valid on retry
		return
	}

	tenantID, _ := payload.Data["tenant_id"].(string)
	if tenantID == "" {
		log.Printf("[WARN] Ticket event %s has no tenant_id, dropping", payload.Type)
		msg.Ack()
		return
	}

	ns.hub.SendToTenant(tenantID, payload.Type, payload.Data)
	msg.Ack()
}
