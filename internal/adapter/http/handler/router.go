package handler

import (
	"collateral-ledger/internal/adapter/http/middleware"
	redisStore "collateral-ledger/internal/adapter/storage/redis"
	"collateral-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger           ports.LedgerService
	TokenSvc         ports.TokenService
	RateLimitStore   *redisStore.RateLimitStore   // nil = rate limiting disabled
	IdempotencyStore middleware.IdempotencyStore // nil = Idempotency-Key ignored
	HealthCheckers   []ports.HealthChecker
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: pings PostgreSQL and Redis when configured)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	noop := func(c *gin.Context) { c.Next() }

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return noop
		}
		rule, ok := rules[group]
		if !ok {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	idem := noop
	if deps.IdempotencyStore != nil {
		idem = middleware.Idempotency(deps.IdempotencyStore, deps.Logger)
	}

	listingHandler := NewListingHandler(deps.Ledger)
	loanHandler := NewLoanHandler(deps.Ledger)
	proceedsHandler := NewProceedsHandler(deps.Ledger)

	// Every ledger route acts as or reads for an authenticated principal.
	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	listings := v1.Group("/listings")
	{
		listings.POST("", rl(middleware.GroupListings), idem, listingHandler.List)
		listings.DELETE("/:collection/:token", rl(middleware.GroupListings), idem, listingHandler.Cancel)
		listings.GET("/:collection/:token", rl(middleware.GroupReads), listingHandler.Get)
	}

	loans := v1.Group("/loans")
	{
		loans.POST("/fund", rl(middleware.GroupLoans), idem, loanHandler.Fund)
		loans.POST("/repay", rl(middleware.GroupLoans), idem, loanHandler.Repay)
		loans.GET("/:borrower", rl(middleware.GroupReads), loanHandler.Get)
	}

	proceeds := v1.Group("/proceeds")
	{
		proceeds.POST("/loan/withdraw", rl(middleware.GroupProceeds), idem, proceedsHandler.WithdrawLoan)
		proceeds.POST("/repayment/withdraw", rl(middleware.GroupProceeds), idem, proceedsHandler.WithdrawRepayment)
		proceeds.GET("/:principal", rl(middleware.GroupReads), proceedsHandler.Balances)
	}

	return r
}
