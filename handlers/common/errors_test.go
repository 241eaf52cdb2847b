package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{validation.Errors{"title is required"}, fiber.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{services.ErrCourseNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{gorm.ErrRecordNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{services.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
		{services.ErrNotEnrolled, fiber.StatusForbidden, "FORBIDDEN"},
		{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("wrapped: %w", services.ErrUsernameTaken), fiber.StatusConflict, "CONFLICT"},
		{services.ErrNothingToPay, fiber.StatusConflict, "CONFLICT"},
		{gorm.ErrDuplicatedKey, fiber.StatusConflict, "CONFLICT"},
		{services.ErrInvalidSignature, fiber.StatusBadRequest, "BAD_REQUEST"},
		{services.ErrStorageDisabled, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("%w: timeout", services.ErrGateway), fiber.StatusBadGateway, "GATEWAY_ERROR"},
		{errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return RespondError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body response.Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestRespondErrorListsValidationFields(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondError(c, validation.Errors{"title is required", "price must be a number"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"title is required", "price must be a number"}, body.Error.Fields)
}

func TestParamAndQueryID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, ok := ParamID(c, "id")
		return c.JSON(fiber.Map{"id": id, "ok": ok, "page": QueryID(c, "page")})
	})

	cases := map[string]string{
		"/items/7?page=3":   `{"id":7,"ok":true,"page":3}`,
		"/items/0":          `{"id":0,"ok":false,"page":0}`,
		"/items/abc?page=x": `{"id":0,"ok":false,"page":0}`,
	}
	for target, want := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		var expected map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(want), &expected))
		assert.Equal(t, expected, got, target)
	}
}
