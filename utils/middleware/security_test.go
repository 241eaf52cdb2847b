package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsConfig(t *testing.T) {
	cfg := corsConfig("")
	assert.Equal(t, "*", cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)

	cfg = corsConfig(" http://localhost:3000 , https://elms.example.com,")
	assert.Equal(t, "http://localhost:3000,https://elms.example.com", cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
}

func TestRateLimitSkipsGatewayCallback(t *testing.T) {
	app := fiber.New()
	SetupSecurity(app, SecurityConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})
	app.Get("/api/v1/courses", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/v1/payments/verify", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/payments/verify", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/courses", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/courses", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
