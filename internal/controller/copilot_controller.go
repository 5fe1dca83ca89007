package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"support-copilot-be/internal/dto"
	"support-copilot-be/internal/pkg/serverutils"
	"support-copilot-be/internal/service"
)

type ICopilotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	HandleTurn(ctx *fiber.Ctx) error
}

type copilotController struct {
	copilotService service.ICopilotService
}

func NewCopilotController(copilotService service.ICopilotService) ICopilotController {
	return &copilotController{
		copilotService: copilotService,
	}
}

func (c *copilotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/copilot/v1")
	h.Use(serverutils.IdentityMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("session", c.GetAllSessions)
	h.Get("session/:id/history", c.GetChatHistory)
	h.Delete("session/:id", c.DeleteSession)
	h.Post("turn", c.HandleTurn)
}

func (c *copilotController) CreateSession(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	res, err := c.copilotService.CreateSession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *copilotController) GetAllSessions(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	res, err := c.copilotService.GetAllSessions(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *copilotController) GetChatHistory(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.copilotService.GetChatHistory(ctx.Context(), id, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *copilotController) DeleteSession(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.copilotService.DeleteSession(ctx.Context(), id, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

func (c *copilotController) HandleTurn(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req dto.HandleTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.copilotService.HandleTurn(ctx.Context(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success handle turn", res))
}
