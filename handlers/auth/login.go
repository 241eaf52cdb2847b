package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User UserResponse `json:"user"`
	services.TokenPair
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	ctx := c.UserContext()
	ip := c.IP()

	user, tokens, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) && h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(ctx, ip)
		}
		return common.RespondError(c, err)
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(ctx, ip)
	}

	return response.Success(c, LoginResponse{User: toUserResponse(user), TokenPair: *tokens})
}
