package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/response"
	"gorm.io/gorm"
)

const (
	localsPrincipal = "principal"
	localsClaims    = "claims"
	localsUser      = "user"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

type authFailure struct {
	status  int
	message string
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) *authFailure {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return &authFailure{fiber.StatusUnauthorized, "Missing authorization token"}
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return &authFailure{fiber.StatusUnauthorized, "Invalid authorization format"}
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return &authFailure{fiber.StatusUnauthorized, "Token has expired"}
		}
		return &authFailure{fiber.StatusUnauthorized, "Invalid token"}
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return &authFailure{fiber.StatusUnauthorized, "Invalid token type"}
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return &authFailure{fiber.StatusInternalServerError, "Failed to check token status"}
	}
	if isRevoked {
		return &authFailure{fiber.StatusUnauthorized, "Token has been revoked"}
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &authFailure{fiber.StatusUnauthorized, "User not found"}
		}
		return &authFailure{fiber.StatusInternalServerError, "Failed to load user"}
	}

	if user.TokenVersion != claims.TokenVersion {
		return &authFailure{fiber.StatusUnauthorized, "Token has been invalidated"}
	}
	if !user.IsActive {
		return &authFailure{fiber.StatusForbidden, "Account is disabled"}
	}

	// The role comes from the database row, a stale token cannot keep an old role
	c.Locals(localsPrincipal, auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role})
	c.Locals(localsClaims, claims)
	c.Locals(localsUser, &user)
	return nil
}

func (f *authFailure) respond(c *fiber.Ctx) error {
	switch f.status {
	case fiber.StatusForbidden:
		return response.Forbidden(c, f.message)
	case fiber.StatusInternalServerError:
		return response.InternalServerError(c, f.message)
	default:
		return response.Unauthorized(c, f.message)
	}
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if failure := m.authenticate(c); failure != nil {
			return failure.respond(c)
		}
		return c.Next()
	}
}

// RequireRole authenticates the request and then checks the caller's role
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if failure := m.authenticate(c); failure != nil {
			return failure.respond(c)
		}

		principal, _ := GetPrincipal(c)
		for _, r := range roles {
			if principal.Role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// RequireAdmin is middleware that requires admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(model.RoleAdmin)
}

// GetPrincipal extracts the authenticated caller from context
func GetPrincipal(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals(localsPrincipal).(auth.Principal)
	return p, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals(localsUser).(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(localsClaims).(*auth.Claims)
	return claims, ok
}
