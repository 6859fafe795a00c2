package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/safrareport/auth-service/internal/auth/domain"
	"github.com/safrareport/auth-service/internal/auth/service"
	"github.com/safrareport/auth-service/pkg/constant"
)

// Locals keys for the authenticated principal. Handlers read these through
// CurrentIdentity/CurrentSession instead of poking at the request.
const (
	localIdentity = "auth_identity"
	localSession  = "auth_session"
)

func CurrentIdentity(c *fiber.Ctx) *domain.Identity {
	identity, _ := c.Locals(localIdentity).(*domain.Identity)
	return identity
}

func CurrentSession(c *fiber.Ctx) *domain.Session {
	session, _ := c.Locals(localSession).(*domain.Session)
	return session
}

// authenticate validates the bearer token and session and fills Locals.
// On failure it writes the response and returns false.
func authenticate(c *fiber.Ctx, svc *service.AuthService) bool {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"code":    "missing_token",
			"message": msgSessionExpired,
		})
		return false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	identity, session, err := svc.ValidateAccess(c.Context(), tokenString)
	if err != nil {
		apiErr := classify(err)
		_ = c.Status(apiErr.status).JSON(fiber.Map{
			"success": false,
			"code":    apiErr.code,
			"message": apiErr.message,
		})
		return false
	}

	c.Locals(localIdentity, identity)
	c.Locals(localSession, session)
	return true
}

// RequireAuth validates the bearer access token and the session behind it,
// then stores the principal in Locals for the handler.
func RequireAuth(svc *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authenticate(c, svc) {
			return nil
		}
		return c.Next()
	}
}

// RequireRole gates a route on a minimum role in addition to the checks
// RequireAuth makes.
func RequireRole(svc *service.AuthService, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authenticate(c, svc) {
			return nil
		}

		identity := CurrentIdentity(c)
		if !constant.RoleAtLeast(identity.Role, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"code":    "forbidden",
				"message": msgForbidden,
			})
		}

		return c.Next()
	}
}
