package common

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/errorreport"
	"github.com/sahilchouksey/elms-api/utils/middleware"
	"github.com/sahilchouksey/elms-api/utils/response"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"gorm.io/gorm"
)

// RespondError maps a service error onto the response envelope
func RespondError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return response.ValidationError(c, verrs)
	}

	switch {
	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrLessonNotFound),
		errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrApplicationNotFound),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return response.NotFound(c, err.Error())

	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "You do not have access to this resource")
	case errors.Is(err, services.ErrNotEnrolled):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrSerialTaken),
		errors.Is(err, services.ErrNothingToPay),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConflict):
		return response.Conflict(c, err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return response.Conflict(c, "Resource already exists")

	case errors.Is(err, services.ErrInvalidSignature):
		return response.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrStorageDisabled):
		return response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrGateway):
		return response.ErrorWithDetails(c, fiber.StatusBadGateway, "Payment gateway is unavailable", "GATEWAY_ERROR", err.Error())
	}

	log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	errorreport.Error(err, map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("requestid"),
	})
	return response.InternalServerError(c, "")
}

// Principal returns the caller set by the auth middleware
func Principal(c *fiber.Ctx) (auth.Principal, bool) {
	return middleware.GetPrincipal(c)
}

// ParamID parses a positive numeric route parameter
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// QueryID parses an optional numeric query value; missing or invalid is 0
func QueryID(c *fiber.Ctx, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}
