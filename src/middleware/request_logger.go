package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Pilmik/order-book-parser/src/metrics"
)

const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID returns the ID assigned by RequestLogger, or "" outside it.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// RequestLogger tags every request with an ID (kept from the client's
// X-Request-ID when present), records its latency and logs it at info level.
// m may be nil.
func RequestLogger(enabled bool, m *metrics.Metrics) fiber.Handler {
	shouldLog := enabled && zerolog.GlobalLevel() <= zerolog.InfoLevel

	return func(c *fiber.Ctx) error {
		id := strings.Clone(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		// edge case: the error handler has not run yet, so take the status from the error
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		if m != nil {
			m.RequestLatencyMs.
				WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
				Observe(float64(latency.Microseconds()) / 1000)
		}

		if shouldLog {
			log.Info().
				Str("request_id", id).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Int("status", status).
				Int64("latency_us", latency.Microseconds()).
				Int("bytes_in", len(c.Body())).
				Int("bytes_out", len(c.Response().Body())).
				Msg("HTTP request")
		}

		return err
	}
}
