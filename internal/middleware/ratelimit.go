package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitTimeout = 500 * time.Millisecond

// RateLimiter is a per-IP fixed-window limiter backed by Redis, so the limit
// holds across server instances.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute).
// A nil client or non-positive limit disables limiting.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Redis errors let the request through; throttling never decides
// authentication.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rdb == nil || rl.limit <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		now := rl.now()
		windowStart := now.Truncate(rl.window)
		key := config.CacheKey.LoginAttemptsKey(ip, windowStart)

		ctx, cancel := context.WithTimeout(c.Request.Context(), rateLimitTimeout)
		defer cancel()

		var incr *redis.IntCmd
		_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, rl.window)
			return nil
		})
		if err != nil {
			rl.log.Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if incr.Val() > int64(rl.limit) {
			retry := windowStart.Add(rl.window).Sub(now)
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			rl.log.Warn().Str("client_ip", ip).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}
