package handler

import (
	"encoding/hex"
	"time"

	"ticketchain/internal/adapter/http/dto"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"
	"ticketchain/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet registry endpoints.
type WalletHandler struct {
	registrySvc ports.RegistryService
	querySvc    ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(registrySvc ports.RegistryService, querySvc ports.QueryService) *WalletHandler {
	return &WalletHandler{registrySvc: registrySvc, querySvc: querySvc}
}

// Register handles POST /api/v1/wallets.
func (h *WalletHandler) Register(c *gin.Context) {
	var req dto.RegisterWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	publicKey, err := req.DecodePublicKey()
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.registrySvc.Register(c.Request.Context(), req.WalletID, publicKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WalletResponse{
		WalletID:  wallet.ID,
		PublicKey: hex.EncodeToString(wallet.PublicKey),
		CreatedAt: wallet.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Tickets handles GET /api/v1/wallets/:id/tickets.
func (h *WalletHandler) Tickets(c *gin.Context) {
	walletID := c.Param("id")
	if walletID == "" {
		response.Error(c, apperror.Validation("wallet id is required"))
		return
	}

	tickets, err := h.querySvc.TicketsByWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTickets(tickets))
}
