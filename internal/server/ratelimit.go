package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cryptoguide/config"
	"cryptoguide/logger"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterPruneAbove = 1024
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// rateLimiter throttles chat requests per client IP. Idle clients are
// pruned while new ones are added, so no background goroutine is needed.
type rateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time
	log   *logger.Entry

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

// newRateLimiter returns nil when cfg disables limiting.
func newRateLimiter(cfg config.RateLimitConfig, log *logger.Log) *rateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
		now:      time.Now,
		log:      log.WithComponent("rate_limiter"),
		limiters: make(map[string]*limiterEntry),
	}
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limiters[key]; ok {
		entry.lastAccess = now
		return entry.limiter
	}

	if len(rl.limiters) >= limiterPruneAbove {
		for k, entry := range rl.limiters {
			if now.Sub(entry.lastAccess) > limiterIdleTTL {
				delete(rl.limiters, k)
			}
		}
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst), lastAccess: now}
	rl.limiters[key] = entry
	return entry.limiter
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// middleware rejects requests over the limit with 429.
func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}

		clientID := "ip:" + c.ClientIP()
		if rl.getLimiter(clientID).AllowN(rl.now(), 1) {
			c.Next()
			return
		}

		rl.log.WithFields(logger.Fields{
			"client_id": clientID,
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		}).Warn("rate limit exceeded")

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%g", float64(rl.limit)))
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please try again later.",
			"retry_after": 1,
		})
	}
}
