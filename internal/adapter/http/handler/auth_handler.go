package handler

import (
	"ticketchain/internal/adapter/http/dto"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"
	"ticketchain/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles organizer account endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterOrganizerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	organizer, err := h.authSvc.Register(c.Request.Context(), ports.RegisterOrganizerRequest{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		WalletID:    req.WalletID,
		WebhookURL:  req.WebhookURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterOrganizerResponse{
		OrganizerID:   organizer.ID.String(),
		Username:      organizer.Username,
		WalletID:      organizer.WalletID,
		WebhookSecret: organizer.WebhookSecret,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}
