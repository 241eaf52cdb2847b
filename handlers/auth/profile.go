package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// GetProfile returns the caller with the profile matching their role
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	user, err := h.accounts.GetProfile(c.UserContext(), p)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.Success(c, user)
}

// UpdateStudentProfile edits the caller's student profile
func (h *AuthHandler) UpdateStudentProfile(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.UpdateStudentProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.accounts.UpdateStudentProfile(c.UserContext(), p, req)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", user)
}

// UpdateTeacherProfile edits the caller's teacher profile
func (h *AuthHandler) UpdateTeacherProfile(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.UpdateTeacherProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.accounts.UpdateTeacherProfile(c.UserContext(), p, req)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", user)
}
