package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Pilmik/order-book-parser/src/models"
)

// RateLimiter is a fixed-window counter per client.
type RateLimiter struct {
	maxRequests    int
	windowDuration time.Duration
	windows        map[string]*window
	lastSweep      time.Time
	now            func() time.Time
	mu             sync.Mutex
}

type window struct {
	start time.Time
	count int
}

func NewRateLimiter(maxRequests int, windowDuration time.Duration) *RateLimiter {
	if windowDuration <= 0 {
		windowDuration = time.Second
	}
	return &RateLimiter{
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		windows:        make(map[string]*window),
		now:            time.Now,
	}
}

func (rl *RateLimiter) getClientID(c *fiber.Ctx) string {
	ip := c.Get("X-Forwarded-For")
	// edge case: a proxy chain lists the original client first
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = c.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.IP()
	}
	return ip
}

func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[clientID]
	if !ok || now.Sub(w.start) >= rl.windowDuration {
		rl.windows[clientID] = &window{start: now, count: 1}
		return true
	}

	if w.count >= rl.maxRequests {
		return false
	}
	w.count++
	return true
}

// sweep drops expired windows at most once per window duration.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.windowDuration {
		return
	}
	for id, w := range rl.windows {
		if now.Sub(w.start) >= rl.windowDuration {
			delete(rl.windows, id)
		}
	}
	rl.lastSweep = now
}

// retryAfterSeconds rounds the window up to whole seconds.
func (rl *RateLimiter) retryAfterSeconds() int {
	return int(math.Ceil(rl.windowDuration.Seconds()))
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := rl.getClientID(c)

		if !rl.Allow(clientID) {
			log.Warn().
				Str("request_id", RequestID(c)).
				Str("client_ip", clientID).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("max_requests", rl.maxRequests).
				Msg("Rate limit exceeded")
			c.Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Rate limit exceeded: too many requests, please try again later",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Window", rl.windowDuration.String())

		return c.Next()
	}
}
