package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/services"
)

type loginInput struct {
	Email    string `json:"email" form:"email"`
	Passcode string `json:"passcode" form:"passcode"`
}

type adminLoginInput struct {
	Passcode string `json:"passcode" form:"passcode"`
}

func (handler *Handler) GetSession(c *fiber.Ctx) error {
	state, err := handler.shrine.State(c.UserContext(), currentSession(c))
	if errors.Is(err, services.ErrSessionExpired) {
		handler.clearSessionCookie(c)
		c.Locals(contextSessionKey, services.NewSession())
		err = nil
	}
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(state)
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	if handler.passcodeLocked(c, limiterScopeVillager) {
		return handler.tooManyAttempts(c)
	}

	input := loginInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.invalidInput(c)
	}

	result, err := handler.shrine.Login(c.UserContext(), currentSession(c), input.Email, input.Passcode)
	if err != nil {
		if errors.Is(err, services.ErrAuth) {
			handler.recordPasscodeFailure(c, limiterScopeVillager)
		}
		return handler.respondError(c, err)
	}
	handler.clearPasscodeFailures(c, limiterScopeVillager)

	if err := handler.setSessionCookie(c, result.Session); err != nil {
		return handler.respondError(c, err)
	}

	payload := fiber.Map{
		"view":  result.Session.View,
		"email": result.Session.Email,
		"month": result.Month,
	}
	if result.Slip != nil {
		payload["slip"] = result.Slip
	}
	if result.Notice != "" {
		payload["notice"] = result.Notice
		payload["message"] = handler.translate(c, "notice."+result.Notice, map[string]any{"Month": result.Month})
	}
	return c.JSON(payload)
}

func (handler *Handler) AdminLogin(c *fiber.Ctx) error {
	if handler.passcodeLocked(c, limiterScopeAdmin) {
		return handler.tooManyAttempts(c)
	}

	input := adminLoginInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.invalidInput(c)
	}

	session, err := handler.shrine.AdminLogin(currentSession(c), input.Passcode)
	if errors.Is(err, services.ErrAuth) {
		handler.recordPasscodeFailure(c, limiterScopeAdmin)
		return handler.apiError(c, fiber.StatusUnauthorized, "invalid_passcode", "error.invalid_admin_passcode", nil)
	}
	if err != nil {
		return handler.respondError(c, err)
	}
	handler.clearPasscodeFailures(c, limiterScopeAdmin)

	if err := handler.setSessionCookie(c, session); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"view": session.View})
}

func (handler *Handler) ResetSession(c *fiber.Ctx) error {
	session := handler.shrine.Reset(currentSession(c))
	if err := handler.setSessionCookie(c, session); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"view": session.View})
}
