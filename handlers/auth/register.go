package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/middleware"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts             *services.AccountService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler; bruteForceProtection may be nil
func NewAuthHandler(accounts *services.AccountService, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		accounts:             accounts,
		bruteForceProtection: bruteForceProtection,
	}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// Register handles student sign-up
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.accounts.Register(c.UserContext(), req)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.Created(c, toUserResponse(user))
}
