package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pilmik/order-book-parser/src/metrics"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// other clients have their own window
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiterSweepsExpiredWindows(t *testing.T) {
	rl := NewRateLimiter(1, 100*time.Millisecond)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		rl.Allow(id)
	}
	now = now.Add(time.Second)
	rl.Allow("d")

	assert.Len(t, rl.windows, 1)
}

func TestRateLimiterSubSecondWindow(t *testing.T) {
	rl := NewRateLimiter(1, 500*time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	rl := NewRateLimiter(1, time.Minute)

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	send := func(forwarded string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := send("10.0.0.1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp = send("10.0.0.1, 192.168.0.1")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	resp = send("10.0.0.2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiterRetryAfterRoundsUp(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)

	tests := []struct {
		window time.Duration
		want   string
	}{
		{100 * time.Millisecond, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
	}
	for _, tt := range tests {
		rl := NewRateLimiter(1, tt.window)
		rl.now = func() time.Time { return time.Unix(1000, 0) }

		app := fiber.New()
		app.Use(rl.Middleware())
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, tt.window)
		assert.Equal(t, tt.want, resp.Header.Get("Retry-After"), tt.window)
	}
}

func TestServiceAvailabilityMaintenance(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	sa := NewServiceAvailability(true, 0, nil)

	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/api", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sa.SetMaintenanceMode(false)
	assert.False(t, sa.IsMaintenanceMode())
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceAvailabilityOverload(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	sa := NewServiceAvailability(false, 1, metrics.New(zerolog.Nop()))

	entered := make(chan struct{})
	release := make(chan struct{})

	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/slow", func(c *fiber.Ctx) error {
		close(entered)
		<-release
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/fast", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	var slowStatus int
	go func() {
		defer wg.Done()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil), -1)
		if err == nil {
			slowStatus = resp.StatusCode
		}
	}()

	<-entered
	assert.Equal(t, int64(1), sa.GetInFlightRequests())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fast", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, slowStatus)
	assert.Equal(t, int64(0), sa.GetInFlightRequests())
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)

	var seen string
	app := fiber.New()
	app.Use(RequestLogger(true, metrics.New(zerolog.Nop())))
	app.Get("/", func(c *fiber.Ctx) error {
		seen = RequestID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "client-42", seen)
	assert.Equal(t, "client-42", resp.Header.Get(RequestIDHeader))
}
