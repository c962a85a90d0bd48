package api

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/services"
)

func (handler *Handler) shareLink(c *fiber.Ctx) string {
	if handler.shareURL != "" {
		return handler.shareURL
	}
	return strings.TrimRight(c.BaseURL(), "/") + "/"
}

func (handler *Handler) ShareText(c *fiber.Ctx) error {
	slip, err := handler.shrine.RevealedSlip(c.UserContext(), currentSession(c))
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"title": handler.shrineName,
		"text":  services.ShareText(slip, handler.shrineName),
		"url":   handler.shareLink(c),
	})
}

func (handler *Handler) ShareQRCode(c *fiber.Ctx) error {
	if _, err := handler.shrine.RevealedSlip(c.UserContext(), currentSession(c)); err != nil {
		return handler.respondError(c, err)
	}

	png, err := services.ShareQRCode(handler.shareLink(c), c.QueryInt("size", services.DefaultQRCodeSize))
	if err != nil {
		return handler.respondError(c, err)
	}
	c.Type("png")
	return c.Send(png)
}

func (handler *Handler) ExportSlip(c *fiber.Ctx) error {
	slip, err := handler.shrine.RevealedSlip(c.UserContext(), currentSession(c))
	if err != nil {
		return handler.respondError(c, err)
	}

	export, err := services.ExportSlip(slip, handler.now())
	if err != nil {
		return handler.respondError(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Type("json", "utf-8")
	return c.Send(export.Body)
}
