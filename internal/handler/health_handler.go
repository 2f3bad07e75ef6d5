package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

// HealthHandler reports the status of Postgres and Redis.
type HealthHandler struct {
	postgres PingFunc
	redis    PingFunc
	log      zerolog.Logger
}

// NewHealthHandler creates a HealthHandler. A nil redis ping means Redis is
// not configured and is reported as "disabled".
func NewHealthHandler(postgres, redis PingFunc, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		redis:    redis,
		log:      log.With().Str("component", "health_handler").Logger(),
	}
}

// Health godoc
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	pg := h.check(ctx, "postgres", h.postgres)
	rd := h.check(ctx, "redis", h.redis)

	status := http.StatusOK
	overall := "ok"
	// Redis only degrades throttling and touch batching.
	if pg == "error" {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	} else if rd == "error" {
		overall = "degraded"
	}

	response.Success(c, status, gin.H{
		"status":   overall,
		"postgres": pg,
		"redis":    rd,
	})
}

func (h *HealthHandler) check(ctx context.Context, name string, ping PingFunc) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
		return "error"
	}
	return "ok"
}
