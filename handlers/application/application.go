package application

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// ApplicationHandler accepts public teacher applications
type ApplicationHandler struct {
	applications *services.ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Submit handles the multipart POST /applications
func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	var req services.ApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid form data")
	}

	resume, err := c.FormFile("resume")
	if err != nil {
		resume = nil
	}

	app, err := h.applications.Submit(c.UserContext(), req, resume)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.Created(c, app)
}
