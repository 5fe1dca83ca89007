package handler

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"

	"support-copilot-be/internal/pkg/logger"
	internalWS "support-copilot-be/internal/websocket"
	"support-copilot-be/pkg/identity"
)

// TicketStreamHandler upgrades agent connections onto the tenant-scoped
// ticket update stream.
type TicketStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewTicketStreamHandler(hub *internalWS.Hub, log logger.ILogger) *TicketStreamHandler {
	return &TicketStreamHandler{hub: hub, logger: log}
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted as a query param.
func (h *TicketStreamHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("TicketStreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	tenantID, _ := claims["tenant_id"].(string)
	role, _ := claims["role"].(string)
	id, err := identity.New(tenantID, role)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing tenant or role"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("TicketStreamHandler", "Starting websocket session", map[string]interface{}{"tenant_id": id.TenantID})
			internalWS.ServeWs(h.hub, conn, id.TenantID)
			h.logger.Info("TicketStreamHandler", "Websocket session ended", map[string]interface{}{"tenant_id": id.TenantID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *TicketStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/tickets", h.ServeWs)
}
