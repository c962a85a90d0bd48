package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/services"
)

func (handler *Handler) translate(c *fiber.Ctx, key string, data map[string]any) string {
	return handler.i18n.Translate(currentLanguage(c), key, data)
}

// apiError writes {"error": code, "message": localized} and an optional field.
func (handler *Handler) apiError(c *fiber.Ctx, status int, code string, messageKey string, extra fiber.Map) error {
	payload := fiber.Map{
		"error":   code,
		"message": handler.translate(c, messageKey, nil),
	}
	for key, value := range extra {
		payload[key] = value
	}
	return c.Status(status).JSON(payload)
}

type errorMapping struct {
	status     int
	code       string
	messageKey string
}

func mapServiceError(err error) errorMapping {
	var fieldErr *services.FieldError
	field := ""
	if errors.As(err, &fieldErr) {
		field = fieldErr.Field
	}

	switch {
	case errors.Is(err, services.ErrPayloadTooLarge):
		if field == "logo" {
			return errorMapping{fiber.StatusRequestEntityTooLarge, "payload_too_large", "error.logo_too_large"}
		}
		return errorMapping{fiber.StatusRequestEntityTooLarge, "payload_too_large", "error.image_too_large"}
	case errors.Is(err, services.ErrValidation):
		return errorMapping{fiber.StatusBadRequest, "validation", validationMessageKey(field)}
	case errors.Is(err, services.ErrSessionExpired):
		return errorMapping{fiber.StatusUnauthorized, "session_expired", "error.session_expired"}
	case errors.Is(err, services.ErrAuth):
		return errorMapping{fiber.StatusUnauthorized, "invalid_passcode", "error.invalid_passcode"}
	case errors.Is(err, services.ErrEmptyPool):
		return errorMapping{fiber.StatusConflict, "empty_pool", "error.empty_pool"}
	case errors.Is(err, services.ErrDrawInProgress):
		return errorMapping{fiber.StatusConflict, "draw_in_progress", "error.draw_in_progress"}
	case errors.Is(err, services.ErrInvalidTransition):
		return errorMapping{fiber.StatusConflict, "invalid_transition", "error.invalid_transition"}
	case errors.Is(err, services.ErrSlipNotFound):
		return errorMapping{fiber.StatusNotFound, "slip_not_found", "error.slip_not_found"}
	case errors.Is(err, services.ErrLostSlip):
		return errorMapping{fiber.StatusGone, "lost_slip", "error.lost_slip"}
	case errors.Is(err, services.ErrStorageWrite):
		return errorMapping{fiber.StatusBadGateway, "storage_write", "error.storage_write"}
	case errors.Is(err, services.ErrStorageRead):
		return errorMapping{fiber.StatusBadGateway, "storage_read", "error.storage_read"}
	default:
		return errorMapping{fiber.StatusInternalServerError, "internal", "error.internal"}
	}
}

func validationMessageKey(field string) string {
	switch field {
	case "credentials":
		return "error.credentials_required"
	case "poem", "focusOn", "doingWell", "advice.luck":
		return "error.slip_fields_required"
	case "level":
		return "error.invalid_level"
	case "month":
		return "error.invalid_month"
	case "image", "logo":
		return "error.image_unsupported"
	case "userPasscode", "passcode":
		return "error.passcode_required"
	default:
		return "error.invalid_input"
	}
}

func (handler *Handler) respondError(c *fiber.Ctx, err error) error {
	mapping := mapServiceError(err)
	if mapping.status >= fiber.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	} else {
		logger.Debugf("%s %s: %v", c.Method(), c.Path(), err)
	}

	if errors.Is(err, services.ErrSessionExpired) {
		handler.clearSessionCookie(c)
		c.Locals(contextSessionKey, services.NewSession())
	}

	var extra fiber.Map
	var fieldErr *services.FieldError
	if errors.As(err, &fieldErr) {
		extra = fiber.Map{"field": fieldErr.Field}
	}
	return handler.apiError(c, mapping.status, mapping.code, mapping.messageKey, extra)
}

func (handler *Handler) invalidInput(c *fiber.Ctx) error {
	return handler.apiError(c, fiber.StatusBadRequest, "validation", "error.invalid_input", nil)
}

func confirmed(c *fiber.Ctx) bool {
	return c.QueryBool("confirm", false)
}
