package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "collateral-ledger/internal/adapter/storage/redis"
	"collateral-ledger/pkg/apperror"
	"collateral-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Rate limit groups.
const (
	GroupListings = "listings"
	GroupLoans    = "loans"
	GroupProceeds = "proceeds"
	GroupReads    = "reads"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupListings: {Limit: 30, Window: time.Minute},
		GroupLoans:    {Limit: 30, Window: time.Minute},
		GroupProceeds: {Limit: 20, Window: time.Minute},
		GroupReads:    {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store errors let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.FormatInt(result.RetryAfter(time.Now()), 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by principal, falling back to client IP for
// unauthenticated routes.
func extractIdentifier(c *gin.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return "principal:" + string(p)
	}
	return "ip:" + c.ClientIP()
}
