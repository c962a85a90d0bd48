package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) Draw(c *fiber.Ctx) error {
	result, err := handler.shrine.Draw(c.UserContext(), currentSession(c))
	if err != nil {
		return handler.respondError(c, err)
	}

	if err := handler.setSessionCookie(c, result.Session); err != nil {
		return handler.respondError(c, err)
	}

	payload := fiber.Map{
		"view":          result.Session.View,
		"month":         result.Month,
		"slip":          result.Slip,
		"history_saved": result.HistorySaved,
		"repeat":        result.Repeat,
		"timeline":      result.Timeline,
	}
	switch {
	case result.Repeat:
		payload["notice"] = "already_drawn"
		payload["message"] = handler.translate(c, "notice.already_drawn", map[string]any{"Month": result.Month})
	case !result.HistorySaved:
		payload["notice"] = "history_not_saved"
		payload["message"] = handler.translate(c, "notice.history_not_saved", nil)
	}
	return c.JSON(payload)
}
