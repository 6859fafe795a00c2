package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/safrareport/auth-service/internal/auth/dto"
	"github.com/safrareport/auth-service/internal/auth/service"
	autherror "github.com/safrareport/auth-service/internal/errors"
)

// AdminHandler serves the moderation surface. It authenticates against the
// admin principal service but manages reader accounts through the user
// service, so an admin can force-logout or re-role a reader.
type AdminHandler struct {
	users *service.AuthService
	log   zerolog.Logger
}

func NewAdminHandler(users *service.AuthService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	users, err := h.users.ListIdentities(c.Context(), limit, offset)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    users,
	})
}

func (h *AdminHandler) ListUserSessions(c *fiber.Ctx) error {
	sessions, err := h.users.ListSessions(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    sessions,
	})
}

// ForceLogout kills every session of the target user.
func (h *AdminHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := h.users.InvalidateAll(c.Context(), userID); err != nil {
		return h.fail(c, err)
	}

	admin := CurrentIdentity(c)
	h.log.Info().Str("admin_id", admin.ID).Str("user_id", userID).Msg("force logout")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	var input dto.UpdateRoleInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	if err := h.users.UpdateRole(c.Context(), c.Params("id"), input.Role); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *AdminHandler) fail(c *fiber.Ctx, err error) error {
	// On this surface an unknown identity is the target user, not the
	// caller, so it answers 404 instead of an auth failure.
	if errors.Is(err, autherror.ErrIdentityNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"code":    "user_not_found",
			"message": msgUserNotFound,
		})
	}

	apiErr := classify(err)
	if apiErr.status == fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("admin request failed")
	}
	return c.Status(apiErr.status).JSON(fiber.Map{
		"success": false,
		"code":    apiErr.code,
		"message": apiErr.message,
	})
}
