package controller

import (
	"github.com/gofiber/fiber/v2"

	"support-copilot-be/internal/pkg/serverutils"
	"support-copilot-be/internal/service"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	Stats(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	copilotService service.ICopilotService
}

func NewKnowledgeController(copilotService service.ICopilotService) IKnowledgeController {
	return &knowledgeController{
		copilotService: copilotService,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Use(serverutils.IdentityMiddleware)
	h.Get("stats", c.Stats)
}

func (c *knowledgeController) Stats(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	res, err := c.copilotService.KnowledgeStats(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge stats", res))
}
