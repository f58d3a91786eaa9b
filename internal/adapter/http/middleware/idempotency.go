package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"collateral-ledger/internal/core/ports"
	"collateral-ledger/pkg/apperror"
	"collateral-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderIdempotentReplay  = "Idempotent-Replayed"
	idempotencyResponseTTL  = 24 * time.Hour
	idempotencyClaimTTL     = 30 * time.Second
	maxIdempotencyKeyLength = 255
)

// IdempotencyStore caches responses and serializes concurrent duplicates.
type IdempotencyStore interface {
	ports.IdempotencyCache
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request that carried the same
// Idempotency-Key from the same principal. Responses below 500 are stored
// for 24h. Requests without the header pass through. Store errors let the
// request through without protection.
func Idempotency(store IdempotencyStore, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(HeaderIdempotencyKey)
		if header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKeyLength {
			response.Error(c, apperror.Validation("Idempotency-Key is too long"))
			c.Abort()
			return
		}
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("%s:%s:%s:%s", principal, c.Request.Method, c.Request.URL.Path, header)

		raw, err := store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("idempotency lookup failed, processing request (degraded mode)")
			c.Next()
			return
		}
		if replayStored(c, raw, key, log) {
			return
		}

		claimed, err := store.Claim(ctx, key, idempotencyClaimTTL)
		if err != nil {
			log.Warn().Err(err).Msg("idempotency claim failed, processing request (degraded mode)")
			c.Next()
			return
		}
		if !claimed {
			response.Error(c, apperror.ErrRequestInProgress())
			c.Abort()
			return
		}
		defer func() {
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency claim")
			}
		}()

		// A duplicate may have stored its response and released the claim
		// between the first lookup and the claim.
		raw, err = store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency recheck failed")
		} else if replayStored(c, raw, key, log) {
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		payload, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to encode idempotency record")
			return
		}
		if err := store.Set(context.WithoutCancel(ctx), key, payload, idempotencyResponseTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to store idempotency record")
		}
	}
}

// replayStored writes a stored response and aborts the chain. It reports
// false when raw is empty or unreadable.
func replayStored(c *gin.Context, raw []byte, key string, log zerolog.Logger) bool {
	if raw == nil {
		return false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		log.Warn().Str("key", key).Msg("discarding unreadable idempotency record")
		return false
	}
	c.Header(HeaderIdempotentReplay, "true")
	c.Data(cached.Status, cached.ContentType, cached.Body)
	c.Abort()
	return true
}
