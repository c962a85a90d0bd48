package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/services"
)

const (
	sessionCookieName  = "shrine_session"
	languageCookieName = "shrine_lang"
	contextSessionKey  = "current_session"
	contextLanguageKey = "current_language"
)

func currentSession(c *fiber.Ctx) services.Session {
	session, ok := c.Locals(contextSessionKey).(services.Session)
	if !ok {
		return services.NewSession()
	}
	return session
}

func currentLanguage(c *fiber.Ctx) string {
	language, _ := c.Locals(contextLanguageKey).(string)
	return language
}

// SessionMiddleware restores the visitor's view state. Missing, tampered or
// expired cookies start a fresh LANDING session.
func (handler *Handler) SessionMiddleware(c *fiber.Ctx) error {
	session, err := handler.parseSessionToken(c.Cookies(sessionCookieName))
	if err != nil {
		session = services.NewSession()
	}
	c.Locals(contextSessionKey, session)
	return c.Next()
}

func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	cookieLanguage := c.Cookies(languageCookieName)
	language := handler.i18n.DetectFromAcceptLanguage(c.Get("Accept-Language"))
	if cookieLanguage != "" {
		language = handler.i18n.NormalizeLanguage(cookieLanguage)
	}
	if queryLanguage := c.Query("lang"); queryLanguage != "" {
		language = handler.i18n.NormalizeLanguage(queryLanguage)
	}

	if cookieLanguage != language {
		handler.setLanguageCookie(c, language)
	}

	c.Locals(contextLanguageKey, language)
	return c.Next()
}

func (handler *Handler) setLanguageCookie(c *fiber.Ctx, language string) {
	c.Cookie(&fiber.Cookie{
		Name:     languageCookieName,
		Value:    handler.i18n.NormalizeLanguage(language),
		Path:     "/",
		HTTPOnly: false,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().AddDate(1, 0, 0),
	})
}

// AdminOnly admits ADMIN sessions issued under the current admin passcode.
func (handler *Handler) AdminOnly(c *fiber.Ctx) error {
	session := currentSession(c)
	if session.View != models.ViewAdmin {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthorized", "error.unauthorized", nil)
	}
	if !handler.shrine.AdminSessionValid(session) {
		return handler.respondError(c, services.ErrSessionExpired)
	}
	return c.Next()
}
