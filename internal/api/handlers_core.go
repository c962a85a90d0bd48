package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) Logo(c *fiber.Ctx) error {
	logo, err := handler.shrine.Logo(c.UserContext())
	if err != nil {
		return handler.respondError(c, err)
	}
	if logo == "" {
		return c.JSON(fiber.Map{"default": true})
	}
	return c.JSON(fiber.Map{"default": false, "logo": logo})
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
}
