package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key:    handler.cookieKey,
		Except: []string{languageCookieName},
	}))
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.LanguageMiddleware, handler.SessionMiddleware)
	api.Get("/logo", handler.Logo)

	session := api.Group("/session")
	session.Get("", handler.GetSession)
	session.Post("/login", handler.Login)
	session.Post("/admin", handler.AdminLogin)
	session.Post("/reset", handler.ResetSession)

	api.Post("/draw", handler.Draw)

	reveal := api.Group("/reveal")
	reveal.Get("/share", handler.ShareText)
	reveal.Get("/qr.png", handler.ShareQRCode)
	reveal.Get("/export", handler.ExportSlip)

	admin := api.Group("/admin", handler.AdminOnly)
	admin.Get("/fortunes", handler.ListFortunes)
	admin.Post("/fortunes", handler.CreateFortune)
	admin.Put("/fortunes/:id", handler.UpdateFortune)
	admin.Delete("/fortunes/:id", handler.DeleteFortune)
	admin.Put("/fortunes/:id/image", handler.SetFortuneImage)
	admin.Delete("/fortunes/:id/image", handler.ClearFortuneImage)
	admin.Get("/config", handler.GetConfig)
	admin.Put("/config", handler.UpdateConfig)
	admin.Put("/config/logo", handler.SetLogo)
	admin.Delete("/config/logo", handler.ClearLogo)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
