package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"support-copilot-be/internal/pkg/serverutils"
	"support-copilot-be/internal/service"
)

type ITicketController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
}

type ticketController struct {
	ticketService service.ITicketService
}

func NewTicketController(ticketService service.ITicketService) ITicketController {
	return &ticketController{
		ticketService: ticketService,
	}
}

func (c *ticketController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ticket/v1")
	h.Use(serverutils.IdentityMiddleware)
	h.Get("", c.List)
	h.Get(":id", c.Show)
}

func (c *ticketController) Show(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	localId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ticket id")
	}

	res, err := c.ticketService.GetByLocalId(ctx.Context(), id, localId)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "ticket not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get ticket", res))
}

func (c *ticketController) List(ctx *fiber.Ctx) error {
	id, ok := serverutils.IdentityFromCtx(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	res, err := c.ticketService.List(ctx.Context(), id, ctx.Query("session_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get tickets", res))
}
