package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/safrareport/auth-service/internal/auth/service"
	"github.com/safrareport/auth-service/pkg/constant"
)

// RegisterRoutes mounts the reader-facing auth surface, the parallel admin
// login path and the moderation endpoints.
func RegisterRoutes(app *fiber.App, users, admins *service.AuthService, userHandler, adminLoginHandler *AuthHandler, adminHandler *AdminHandler) {
	api := app.Group("/api/v1")

	api.Post("/register", userHandler.Register)
	api.Post("/login", userHandler.Login)
	api.Post("/refresh", userHandler.Refresh)
	api.Post("/password/reset-request", userHandler.RequestPasswordReset)
	api.Post("/password/reset", userHandler.ResetPassword)
	api.Post("/verify-email", userHandler.VerifyEmail)

	// Middleware is attached per route, never as a group Use on a shared
	// prefix: a Use on /api/v1 would also swallow the /admin subtree and
	// send admin tokens through the reader service.
	userAuth := RequireAuth(users)
	api.Delete("/session", userAuth, userHandler.Logout)
	api.Get("/sessions", userAuth, userHandler.ListSessions)
	api.Put("/password", userAuth, userHandler.ChangePassword)
	api.Post("/verify-email/request", userAuth, userHandler.RequestEmailVerification)
	api.Post("/2fa/setup", userAuth, userHandler.SetupTwoFactor)
	api.Post("/2fa/activate", userAuth, userHandler.ActivateTwoFactor)

	// Admin accounts log in through their own path against their own
	// table; the pipeline is the same.
	adminAPI := api.Group("/admin")
	adminAPI.Post("/login", adminLoginHandler.Login)
	adminAPI.Post("/refresh", adminLoginHandler.Refresh)

	adminAuth := RequireAuth(admins)
	adminAPI.Delete("/session", adminAuth, adminLoginHandler.Logout)
	adminAPI.Put("/password", adminAuth, adminLoginHandler.ChangePassword)
	adminAPI.Post("/2fa/setup", adminAuth, adminLoginHandler.SetupTwoFactor)
	adminAPI.Post("/2fa/activate", adminAuth, adminLoginHandler.ActivateTwoFactor)

	// RequireRole authenticates by itself, so moderation routes carry it
	// alone and validate the token exactly once.
	moderation := RequireRole(admins, constant.RoleAdmin)
	adminAPI.Get("/users", moderation, adminHandler.ListUsers)
	adminAPI.Get("/users/:id/sessions", moderation, adminHandler.ListUserSessions)
	adminAPI.Delete("/users/:id/sessions", moderation, adminHandler.ForceLogout)
	adminAPI.Patch("/users/:id/role", moderation, adminHandler.UpdateUserRole)
}
