package handler

import (
	"ticketchain/internal/adapter/http/middleware"
	redisStore "ticketchain/internal/adapter/storage/redis"
	"ticketchain/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CommandSvc     ports.CommandService
	QuerySvc       ports.QueryService
	RegistrySvc    ports.RegistryService
	OrganizerRepo  ports.OrganizerRepository
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Organizer accounts ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- Wallet registry ---
	walletHandler := NewWalletHandler(deps.RegistrySvc, deps.QuerySvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets"), walletHandler.Register)
		wallets.GET("/:id/tickets", walletHandler.Tickets)
	}

	// --- Events (creation needs an organizer session) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	eventHandler := NewEventHandler(deps.CommandSvc, deps.QuerySvc, deps.OrganizerRepo)
	events := v1.Group("/events")
	{
		events.POST("", jwtAuth, rl("events"), eventHandler.Create)
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.GET("/:id/stats", eventHandler.Stats)
		events.GET("/:id/tickets", eventHandler.Tickets)
	}

	// --- Tickets: all commands flow through the coordinator ---
	ticketHandler := NewTicketHandler(deps.CommandSvc, deps.QuerySvc)
	tickets := v1.Group("/tickets")
	{
		tickets.POST("/mint", rl("mint"), ticketHandler.Mint)
		tickets.POST("/:id/transfer", rl("transfers"), ticketHandler.Transfer)
		tickets.POST("/:id/refund", rl("refunds"), ticketHandler.Refund)
		tickets.GET("/:id", ticketHandler.Get)
		tickets.GET("/:id/artifact", ticketHandler.Artifact)
	}

	// --- Chain audit ---
	chainHandler := NewChainHandler(deps.QuerySvc)
	chain := v1.Group("/chain")
	{
		chain.GET("/status", chainHandler.Status)
		chain.GET("/verify", chainHandler.Verify)
	}

	return r
}
