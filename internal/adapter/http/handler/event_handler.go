package handler

import (
	"ticketchain/internal/adapter/http/dto"
	"ticketchain/internal/adapter/http/middleware"
	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"
	"ticketchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventHandler handles event creation and the event query surface.
type EventHandler struct {
	commandSvc    ports.CommandService
	querySvc      ports.QueryService
	organizerRepo ports.OrganizerRepository
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(commandSvc ports.CommandService, querySvc ports.QueryService, organizerRepo ports.OrganizerRepository) *EventHandler {
	return &EventHandler{commandSvc: commandSvc, querySvc: querySvc, organizerRepo: organizerRepo}
}

// Create handles POST /api/v1/events. The acting organizer comes from
// the session token; their wallet becomes the event's organizer wallet.
func (h *EventHandler) Create(c *gin.Context) {
	organizerID, ok := c.Get(middleware.CtxOrganizerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	organizer, err := h.organizerRepo.GetByID(c.Request.Context(), organizerID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}
	if organizer == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	types := make([]domain.TicketTypeDef, 0, len(req.TicketTypes))
	for _, tt := range req.TicketTypes {
		types = append(types, domain.TicketTypeDef{
			Code:     tt.Code,
			Price:    tt.Price,
			Capacity: tt.Capacity,
		})
	}

	receipt, err := h.commandSvc.CreateEvent(c.Request.Context(), ports.CreateEventRequest{
		Name:            req.Name,
		Venue:           req.Venue,
		StartsAt:        req.StartsAt,
		RefundableUntil: req.RefundableUntil,
		MaxPerWallet:    req.MaxPerWallet,
		OrganizerWallet: organizer.WalletID,
		TicketTypes:     types,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeCommit(c, receipt)
}

// List handles GET /api/v1/events.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.querySvc.ListEvents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	response.OK(c, events)
}

// Get handles GET /api/v1/events/:id.
func (h *EventHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("event id must be a UUID"))
		return
	}

	event, err := h.querySvc.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Stats handles GET /api/v1/events/:id/stats.
func (h *EventHandler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("event id must be a UUID"))
		return
	}

	stats, err := h.querySvc.EventStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Tickets handles GET /api/v1/events/:id/tickets.
func (h *EventHandler) Tickets(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("event id must be a UUID"))
		return
	}

	tickets, err := h.querySvc.TicketsByEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromTickets(tickets))
}
