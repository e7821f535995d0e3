package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/deskops/ticket-desk/internal/api/dto"
	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/service"
	"github.com/deskops/ticket-desk/internal/session"
	"github.com/deskops/ticket-desk/internal/view"
	"github.com/deskops/ticket-desk/internal/workspace"
	apperrors "github.com/deskops/ticket-desk/pkg/util/errorutil"
)

const keepAliveInterval = 15 * time.Second

// AdminHandler serves the operator dashboard backed by the caller's workspace.
type AdminHandler struct {
	workspaces *service.WorkspaceService
	history    *service.HistoryService
	cols       domain.Columns
}

// NewAdminHandler constructs handler. history may be nil.
func NewAdminHandler(workspaces *service.WorkspaceService, history *service.HistoryService, cols domain.Columns) *AdminHandler {
	return &AdminHandler{workspaces: workspaces, history: history, cols: cols.WithDefaults()}
}

func (h *AdminHandler) workspace(c *fiber.Ctx) (*workspace.Workspace, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return h.workspaces.Get(c.UserContext(), *principal)
}

func (h *AdminHandler) projection(c *fiber.Ctx, p workspace.Projection) error {
	return c.JSON(fiber.Map{"data": dto.NewProjectionResponse(p, h.cols)})
}

// ListTickets GET /admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	return h.projection(c, ws.Projection())
}

// Reload POST /admin/tickets/reload. A failed load still returns the empty
// projection so the dashboard can show its "could not load" state.
func (h *AdminHandler) Reload(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	p, err := ws.Reload(c.UserContext())
	if err != nil {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).JSON(fiber.Map{
			"data":  dto.NewProjectionResponse(p, h.cols),
			"error": fiber.Map{"code": de.Code, "message": de.Message},
		})
	}
	return h.projection(c, p)
}

// History GET /admin/tickets/:id/history.
func (h *AdminHandler) History(c *fiber.Ctx) error {
	entries, err := h.history.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries, "recorded": h.history.Enabled()})
}

// SetView PUT /admin/view.
func (h *AdminHandler) SetView(c *fiber.Ctx) error {
	var req dto.ViewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	criteria, err := view.ParseCriteria(req.Status, req.Urgency, req.Search)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	return h.projection(c, ws.SetCriteria(criteria))
}

// Sort POST /admin/view/sort.
func (h *AdminHandler) Sort(c *fiber.Ctx) error {
	var req dto.SortRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	column, err := view.ParseColumn(req.Column)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	if req.Ascending == nil {
		return h.projection(c, ws.ToggleSort(column))
	}
	return h.projection(c, ws.SetSort(view.SortState{Column: column, Ascending: *req.Ascending}))
}

// Events GET /admin/events streams projections as server-sent events.
func (h *AdminHandler) Events(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}

	updates := make(chan workspace.Projection, 1)
	push := func(p workspace.Projection) {
		for {
			select {
			case updates <- p:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}
	cancel := ws.Subscribe(push)
	initial := ws.Projection()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := h.writeEvent(w, initial); err != nil {
			return
		}
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case p := <-updates:
				if err := h.writeEvent(w, p); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func (h *AdminHandler) writeEvent(w *bufio.Writer, p workspace.Projection) error {
	payload, err := json.Marshal(dto.NewProjectionResponse(p, h.cols))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: projection\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// OpenSession POST /admin/session.
func (h *AdminHandler) OpenSession(c *fiber.Ctx) error {
	var req dto.OpenSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	state, err := ws.OpenTicket(c.UserContext(), strings.TrimSpace(req.TicketID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": req.TicketID})
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSessionResponse(state, h.cols)})
}

// GetSession GET /admin/session.
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	state, ok := ws.Session()
	if !ok {
		return domain.ErrNoSession
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(state, h.cols)})
}

// UpdateDraft PATCH /admin/session/draft.
func (h *AdminHandler) UpdateDraft(c *fiber.Ctx) error {
	var req dto.DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return apperrors.NewValidationError("no draft fields provided", nil)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	var state session.State
	for _, ch := range changes {
		if state, err = ws.UpdateDraft(ch.Field, ch.Value); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(state, h.cols)})
}

// ResetDraft POST /admin/session/reset.
func (h *AdminHandler) ResetDraft(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	state, err := ws.ResetDraft()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(state, h.cols)})
}

// Commit POST /admin/session/commit.
func (h *AdminHandler) Commit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.workspaces.Commit(c.UserContext(), *principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommitResponse(report)})
}

// CloseSession DELETE /admin/session.
func (h *AdminHandler) CloseSession(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	ws.CloseTicket()
	return c.SendStatus(http.StatusNoContent)
}
