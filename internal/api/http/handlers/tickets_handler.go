package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/ticket-desk/internal/api/dto"
	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/service"
	apperrors "github.com/deskops/ticket-desk/pkg/util/errorutil"
)

// TicketsHandler serves the ticket submission form.
type TicketsHandler struct {
	service *service.TicketService
	cols    domain.Columns
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, cols domain.Columns) *TicketsHandler {
	return &TicketsHandler{service: ticketService, cols: cols.WithDefaults()}
}

// SubmitTicket POST /tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Submit(c.UserContext(), *principal, req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitTicketResponse{
		Ticket:  dto.NewTicketRow(*ticket, h.cols),
		Message: "Ticket submitted successfully!",
	}})
}
