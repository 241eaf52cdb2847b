package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/utils/middleware"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken rotates a refresh token into a new pair
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	tokens, err := h.accounts.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.Success(c, tokens)
}

// Logout revokes the access token used for this request
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	if err := h.accounts.Logout(c.UserContext(), claims); err != nil {
		return common.RespondError(c, err)
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
