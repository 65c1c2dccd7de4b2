package handler

import (
	"net/http"

	"ticketchain/internal/core/ports"
	"ticketchain/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChainHandler exposes the ledger status and integrity audit endpoints.
type ChainHandler struct {
	querySvc ports.QueryService
}

// NewChainHandler creates a new ChainHandler.
func NewChainHandler(querySvc ports.QueryService) *ChainHandler {
	return &ChainHandler{querySvc: querySvc}
}

// Status handles GET /api/v1/chain/status.
func (h *ChainHandler) Status(c *gin.Context) {
	status, err := h.querySvc.ChainStatus(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Verify handles GET /api/v1/chain/verify. It walks the full chain
// recomputing hashes; a failed audit halts ledger writes, so the status
// in the error path still reports the (now halted) chain.
func (h *ChainHandler) Verify(c *gin.Context) {
	status, err := h.querySvc.VerifyChain(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// HealthCheck handles GET /health — deep health check verifying all
// dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
