package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// Idle clients drop out after this long without a request.
	clientIdleTTL = 5 * time.Minute
	sweepInterval = 3 * time.Minute
)

// clientEntry pairs a token bucket with the last time its client was seen.
type clientEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles a route group per client IP. Limits are expressed in
// requests per minute, matching how the endpoint budgets are stated. This
// guards against request floods only; the per-identifier sign-in lockout is
// enforced inside the sign-in flow itself.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	perMinute float64
	burst     int
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRateLimiter creates a per-IP limiter allowing perMinute requests per
// minute with the given burst. Call Close when the limiter is retired to
// stop its idle-client sweep.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients:   make(map[string]*clientEntry),
		perMinute: perMinute,
		burst:     burst,
		stop:      make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Close stops the sweep goroutine. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) bucketFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.clients[ip]; ok {
		entry.lastSeen = time.Now()
		return entry.bucket
	}

	bucket := rate.NewLimiter(rate.Limit(rl.perMinute/60.0), rl.burst)
	rl.clients[ip] = &clientEntry{bucket: bucket, lastSeen: time.Now()}
	return bucket
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, entry := range rl.clients {
				if time.Since(entry.lastSeen) > clientIdleTTL {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware returns the echo middleware enforcing the limit. Rejections
// carry a Retry-After hint derived from the refill rate.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.bucketFor(c.RealIP()).Allow() {
				retryAfter := int(math.Ceil(60.0 / rl.perMinute))
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
