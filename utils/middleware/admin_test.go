package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With a nil db any attempt to write an audit row would panic, so these
// requests prove the row is skipped for non-admin callers.
func TestAdminAuditLogSkipsNonAdmins(t *testing.T) {
	for _, p := range []*auth.Principal{
		nil,
		{UserID: 3, Username: "ravikumar", Role: "student"},
		{UserID: 4, Username: "asharao", Role: "teacher"},
	} {
		app := fiber.New()
		app.Post("/admin/earnings/pay/:course_id",
			func(c *fiber.Ctx) error {
				if p != nil {
					c.Locals(localsPrincipal, *p)
				}
				return c.Next()
			},
			AdminAuditLog(nil, "earnings_payout", "courses"),
			func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
		)

		resp, err := app.Test(httptest.NewRequest("POST", "/admin/earnings/pay/9", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestPrincipalRoles(t *testing.T) {
	assert.True(t, auth.Principal{Role: "admin"}.IsAdmin())
	assert.False(t, auth.Principal{Role: "teacher"}.IsAdmin())
}
