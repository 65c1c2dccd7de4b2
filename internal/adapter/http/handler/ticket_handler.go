package handler

import (
	"ticketchain/internal/adapter/http/dto"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"
	"ticketchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TicketHandler handles the ticket command and query endpoints.
type TicketHandler struct {
	commandSvc ports.CommandService
	querySvc   ports.QueryService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(commandSvc ports.CommandService, querySvc ports.QueryService) *TicketHandler {
	return &TicketHandler{commandSvc: commandSvc, querySvc: querySvc}
}

// Mint handles POST /api/v1/tickets/mint.
func (h *TicketHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.Error(c, apperror.Validation("event_id must be a UUID"))
		return
	}

	receipt, err := h.commandSvc.Mint(c.Request.Context(), ports.MintRequest{
		EventID:        eventID,
		TicketTypeCode: req.TicketTypeCode,
		OwnerWallet:    req.OwnerWallet,
		Amount:         req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeCommit(c, receipt)
}

// Transfer handles POST /api/v1/tickets/:id/transfer.
func (h *TicketHandler) Transfer(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("ticket id must be a UUID"))
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	portReq, err := req.ToPort(ticketID)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	receipt, err := h.commandSvc.Transfer(c.Request.Context(), portReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeCommit(c, receipt)
}

// Refund handles POST /api/v1/tickets/:id/refund.
func (h *TicketHandler) Refund(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("ticket id must be a UUID"))
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	portReq, err := req.ToPort(ticketID)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	receipt, err := h.commandSvc.Refund(c.Request.Context(), portReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeCommit(c, receipt)
}

// Get handles GET /api/v1/tickets/:id.
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("ticket id must be a UUID"))
		return
	}

	ticket, err := h.querySvc.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.FromTicket(ticket)
	response.OK(c, resp)
}

// Artifact handles GET /api/v1/tickets/:id/artifact. The payload is what
// an external QR generator encodes; verification recomputes the digest
// against the catalog.
func (h *TicketHandler) Artifact(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("ticket id must be a UUID"))
		return
	}

	ticket, err := h.querySvc.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ArtifactResponse{
		TicketID: ticket.ID.String(),
		Payload:  ticket.ArtifactPayload(),
	})
}

// writeCommit renders a commit receipt. Flagged commits succeed but
// carry the triggered fraud tags as warnings.
func writeCommit(c *gin.Context, receipt *ports.CommitReceipt) {
	body := dto.FromReceipt(receipt)
	if receipt.Transaction.Flagged {
		response.CreatedWithWarnings(c, body, receipt.Verdict.Reasons)
		return
	}
	response.Created(c, body)
}
