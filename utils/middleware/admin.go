package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sahilchouksey/elms-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminAuditLog records an admin mutation after the handler ran.
// It must be mounted behind RequireAdmin so the principal is present.
func AdminAuditLog(db *gorm.DB, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := GetPrincipal(c)
		if !ok || !principal.IsAdmin() {
			return c.Next()
		}

		var resourceID uint
		for _, param := range []string{"id", "course_id"} {
			if raw := c.Params(param); raw != "" {
				if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
					resourceID = uint(parsed)
					break
				}
			}
		}

		var payload datatypes.JSON
		if body := c.Body(); len(body) > 0 && json.Valid(body) {
			// Copy, fiber reuses the request buffer after the handler returns
			payload = datatypes.JSON(append([]byte(nil), body...))
		}

		err := c.Next()

		// Capture everything from the context before leaving the request goroutine
		entry := model.AdminAuditLog{
			AdminID:     principal.UserID,
			Action:      action,
			Resource:    resource,
			ResourceID:  resourceID,
			Payload:     payload,
			StatusCode:  c.Response().StatusCode(),
			IPAddress:   utils.CopyString(c.IP()),
			UserAgent:   utils.CopyString(c.Get(fiber.HeaderUserAgent)),
			Description: c.Method() + " " + utils.CopyString(c.Path()),
		}

		go func() {
			if err := db.Create(&entry).Error; err != nil {
				log.Warnf("failed to write admin audit log: %v", err)
			}
		}()

		return err
	}
}
