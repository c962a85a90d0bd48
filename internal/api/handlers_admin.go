package api

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/services"
)

type configInput struct {
	UserPasscode *string `json:"userPasscode" form:"userPasscode"`
}

func (handler *Handler) ListFortunes(c *fiber.Ctx) error {
	fortunes, err := handler.admin.ListSlips(c.UserContext(), c.Query("month"))
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"month":    handler.shrine.CurrentMonth(),
		"fortunes": fortunes,
	})
}

func (handler *Handler) CreateFortune(c *fiber.Ctx) error {
	input := services.SlipInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.invalidInput(c)
	}

	slip, err := handler.admin.AddSlip(c.UserContext(), input)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"fortune": slip,
		"message": handler.translate(c, "notice.slip_added", nil),
	})
}

func (handler *Handler) UpdateFortune(c *fiber.Ctx) error {
	input := services.SlipInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.invalidInput(c)
	}

	slip, err := handler.admin.UpdateSlip(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"fortune": slip,
		"message": handler.translate(c, "notice.slip_updated", nil),
	})
}

func (handler *Handler) DeleteFortune(c *fiber.Ctx) error {
	if !confirmed(c) {
		return handler.apiError(c, fiber.StatusBadRequest, "confirm_required", "error.confirm_required", nil)
	}
	if err := handler.admin.DeleteSlip(c.UserContext(), c.Params("id")); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":      true,
		"message": handler.translate(c, "notice.slip_removed", nil),
	})
}

// readUpload reads at most one byte past the image ceiling so oversized
// uploads are rejected by the service without buffering the whole file.
func readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, services.MaxImageBytes+1))
}

func (handler *Handler) SetFortuneImage(c *fiber.Ctx) error {
	image, err := readUpload(c, "image")
	if err != nil {
		return handler.invalidInput(c)
	}

	slip, err := handler.admin.SetSlipImage(c.UserContext(), c.Params("id"), image)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"fortune": slip})
}

func (handler *Handler) ClearFortuneImage(c *fiber.Ctx) error {
	if !confirmed(c) {
		return handler.apiError(c, fiber.StatusBadRequest, "confirm_required", "error.confirm_required", nil)
	}

	slip, err := handler.admin.ClearSlipImage(c.UserContext(), c.Params("id"))
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"fortune": slip})
}

func (handler *Handler) GetConfig(c *fiber.Ctx) error {
	config, err := handler.admin.Config(c.UserContext())
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(config)
}

func (handler *Handler) UpdateConfig(c *fiber.Ctx) error {
	input := configInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.invalidInput(c)
	}

	config, err := handler.admin.UpdateConfig(c.UserContext(), services.ConfigUpdate{UserPasscode: input.UserPasscode})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"config":  config,
		"message": handler.translate(c, "notice.settings_updated", nil),
	})
}

func (handler *Handler) SetLogo(c *fiber.Ctx) error {
	logo, err := readUpload(c, "logo")
	if err != nil {
		return handler.invalidInput(c)
	}

	config, err := handler.admin.SetLogo(c.UserContext(), logo)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"config":  config,
		"message": handler.translate(c, "notice.settings_updated", nil),
	})
}

func (handler *Handler) ClearLogo(c *fiber.Ctx) error {
	if !confirmed(c) {
		return handler.apiError(c, fiber.StatusBadRequest, "confirm_required", "error.confirm_required", nil)
	}

	config, err := handler.admin.ClearLogo(c.UserContext())
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"config":  config,
		"message": handler.translate(c, "notice.logo_reset", nil),
	})
}
