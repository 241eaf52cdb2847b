package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// MakeHTTPHandleFunc adapts a storage-aware handler to a fiber handler.
// A returned error becomes a 500 envelope.
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return response.ErrorWithDetails(c, fiber.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR", err.Error())
		}
		return nil
	}
}
