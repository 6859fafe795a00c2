package handler

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/safrareport/auth-service/internal/auth/dto"
	"github.com/safrareport/auth-service/internal/auth/service"
)

const refreshCookieName = "safra_refresh"

var validate = validator.New()

type AuthHandler struct {
	svc         *service.AuthService
	environment string
	retryAfter  time.Duration
	refreshTTL  time.Duration
	log         zerolog.Logger
}

func NewAuthHandler(svc *service.AuthService, environment string, retryAfter, refreshTTL time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:         svc,
		environment: environment,
		retryAfter:  retryAfter,
		refreshTTL:  refreshTTL,
		log:         log,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	identity, err := h.svc.Register(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    service.IdentityOutput(identity),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.svc.Login(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    tokens,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		// Browser clients carry the token in the cookie instead.
		input.RefreshToken = c.Cookies(refreshCookieName)
	}
	if input.RefreshToken == "" {
		return badRequest(c)
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.svc.Refresh(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    tokens,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session := CurrentSession(c)
	if session != nil {
		if err := h.svc.Logout(c.Context(), session.ID); err != nil {
			return h.fail(c, err)
		}
	}

	h.clearRefreshCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": msgLoggedOut,
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity := CurrentIdentity(c)
	session := CurrentSession(c)

	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	if err := h.svc.ChangePassword(c.Context(), identity.ID, session.ID, input); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var input dto.RequestPasswordResetInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	token, err := h.svc.RequestPasswordReset(c.Context(), input.Email)
	if err != nil {
		return h.fail(c, err)
	}

	// The token goes out by mail. Outside production it is surfaced in
	// the log so the flow can be exercised without a mailer.
	if token != "" && h.environment != "production" {
		h.log.Debug().Str("reset_token", token).Msg("password reset token issued")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": msgResetRequested,
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	if err := h.svc.ResetPassword(c.Context(), input); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": msgPasswordReset,
	})
}

func (h *AuthHandler) RequestEmailVerification(c *fiber.Ctx) error {
	identity := CurrentIdentity(c)

	token, err := h.svc.RequestEmailVerification(c.Context(), identity.ID)
	if err != nil {
		return h.fail(c, err)
	}

	if h.environment != "production" {
		h.log.Debug().Str("verification_token", token).Msg("verification token issued")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var input dto.VerifyEmailInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	if err := h.svc.ConfirmEmail(c.Context(), input.Token); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": msgEmailVerified,
	})
}

func (h *AuthHandler) SetupTwoFactor(c *fiber.Ctx) error {
	identity := CurrentIdentity(c)

	setup, err := h.svc.SetupTwoFactor(c.Context(), identity.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    setup,
	})
}

func (h *AuthHandler) ActivateTwoFactor(c *fiber.Ctx) error {
	identity := CurrentIdentity(c)

	var input dto.TwoFactorActivateInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c)
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(c)
	}

	if err := h.svc.ActivateTwoFactor(c.Context(), identity.ID, input.Code); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	identity := CurrentIdentity(c)

	sessions, err := h.svc.ListSessions(c.Context(), identity.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    sessions,
	})
}

func (h *AuthHandler) fail(c *fiber.Ctx, err error) error {
	apiErr := classify(err)
	if apiErr.status == fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	body := fiber.Map{
		"success": false,
		"code":    apiErr.code,
		"message": apiErr.message,
	}
	switch apiErr.code {
	case "two_factor_required":
		body["requires_two_factor"] = true
	case "rate_limited":
		body["is_locked"] = true
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(h.retryAfter.Seconds())))
	}
	return c.Status(apiErr.status).JSON(body)
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"code":    "invalid_input",
		"message": msgInvalidInput,
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.environment == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.environment == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
