package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	autherror "github.com/safrareport/auth-service/internal/errors"
)

// User-facing messages are Spanish and deliberately generic: a failed login
// never says whether the email exists, and internal failures never leak
// detail past the log.
const (
	msgInvalidInput       = "Solicitud inválida."
	msgInvalidCredentials = "Correo o contraseña incorrectos."
	msgTooManyAttempts    = "Demasiados intentos fallidos. Inténtalo de nuevo más tarde."
	msgTwoFactorRequired  = "Se requiere el código de verificación de dos pasos."
	msgAccountDisabled    = "Esta cuenta está deshabilitada."
	msgEmailInUse         = "Este correo ya está registrado."
	msgWeakPassword       = "La contraseña debe tener al menos 8 caracteres."
	msgSessionExpired     = "La sesión ha expirado. Inicia sesión de nuevo."
	msgResetInvalid       = "El enlace de restablecimiento no es válido o ha expirado."
	msgVerifyInvalid      = "El enlace de verificación no es válido o ha expirado."
	msgInternal           = "Error interno del servidor."
	msgForbidden          = "No tienes permisos para realizar esta acción."
	msgUserNotFound       = "Usuario no encontrado."

	msgResetRequested = "Si el correo está registrado, recibirás un enlace de restablecimiento."
	msgPasswordReset  = "Contraseña restablecida. Inicia sesión de nuevo."
	msgLoggedOut      = "Sesión cerrada."
	msgEmailVerified  = "Correo verificado."
)

type apiError struct {
	status  int
	code    string
	message string
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return apiError{fiber.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials}
	case errors.Is(err, autherror.ErrTooManyLoginAttempts):
		return apiError{fiber.StatusTooManyRequests, "rate_limited", msgTooManyAttempts}
	case errors.Is(err, autherror.ErrTwoFactorRequired):
		return apiError{fiber.StatusUnauthorized, "two_factor_required", msgTwoFactorRequired}
	case errors.Is(err, autherror.ErrAccountDisabled):
		return apiError{fiber.StatusForbidden, "account_disabled", msgAccountDisabled}
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return apiError{fiber.StatusConflict, "email_exists", msgEmailInUse}
	case errors.Is(err, autherror.ErrWeakPassword):
		return apiError{fiber.StatusBadRequest, "weak_password", msgWeakPassword}
	case errors.Is(err, autherror.ErrSessionNotFound),
		errors.Is(err, autherror.ErrSessionExpired),
		errors.Is(err, autherror.ErrInvalidToken),
		errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrIdentityNotFound):
		return apiError{fiber.StatusUnauthorized, "session_expired", msgSessionExpired}
	case errors.Is(err, autherror.ErrResetTokenInvalid):
		return apiError{fiber.StatusBadRequest, "reset_token_invalid", msgResetInvalid}
	case errors.Is(err, autherror.ErrVerificationTokenInvalid):
		return apiError{fiber.StatusBadRequest, "verification_token_invalid", msgVerifyInvalid}
	default:
		return apiError{fiber.StatusInternalServerError, "internal_error", msgInternal}
	}
}
