package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/models"
)

const slipIDPrefix = "slip-"

type SlipInput struct {
	Level     models.FortuneLevel  `json:"level"`
	Poem      string               `json:"poem"`
	FocusOn   string               `json:"focusOn"`
	DoingWell string               `json:"doingWell"`
	Advice    models.FortuneAdvice `json:"advice"`
}

// ConfigUpdate changes only the parts that are set.
type ConfigUpdate struct {
	UserPasscode *string
	Logo         []byte
	ClearLogo    bool
}

type AdminService struct {
	collections ShrineRepository
	clock       fortune.Clock
	newID       func() string
}

func NewAdminService(collections ShrineRepository, clock fortune.Clock) *AdminService {
	if clock == nil {
		clock = fortune.SystemClock(nil)
	}
	return &AdminService{
		collections: collections,
		clock:       clock,
		newID: func() string {
			return slipIDPrefix + uuid.NewString()
		},
	}
}

func normalizeSlipInput(input SlipInput) (SlipInput, error) {
	input.Poem = strings.TrimSpace(input.Poem)
	input.FocusOn = strings.TrimSpace(input.FocusOn)
	input.DoingWell = strings.TrimSpace(input.DoingWell)
	input.Advice = models.FortuneAdvice{
		Luck:      strings.TrimSpace(input.Advice.Luck),
		Happiness: strings.TrimSpace(input.Advice.Happiness),
		Stress:    strings.TrimSpace(input.Advice.Stress),
		Health:    strings.TrimSpace(input.Advice.Health),
	}

	switch {
	case input.Poem == "":
		return input, fieldError("poem", ErrValidation)
	case input.FocusOn == "":
		return input, fieldError("focusOn", ErrValidation)
	case input.DoingWell == "":
		return input, fieldError("doingWell", ErrValidation)
	case input.Advice.Luck == "":
		return input, fieldError("advice.luck", ErrValidation)
	}

	if input.Level == "" {
		input.Level = models.DefaultLevel
	}
	if !input.Level.Valid() {
		return input, fieldError("level", ErrValidation)
	}
	return input, nil
}

func (service *AdminService) ListSlips(ctx context.Context, month string) ([]models.FortuneSlip, error) {
	month = strings.TrimSpace(month)
	if month != "" && !fortune.ValidMonthKey(month) {
		return nil, fieldError("month", ErrValidation)
	}

	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return nil, storageReadError(err)
	}
	if month == "" {
		return pool, nil
	}
	return fortune.EligibleSlips(pool, month), nil
}

// AddSlip appends a new slip for the current month.
func (service *AdminService) AddSlip(ctx context.Context, input SlipInput) (models.FortuneSlip, error) {
	input, err := normalizeSlipInput(input)
	if err != nil {
		return models.FortuneSlip{}, err
	}

	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return models.FortuneSlip{}, storageReadError(err)
	}

	slip := models.FortuneSlip{
		ID:        service.newID(),
		Month:     fortune.CurrentMonth(service.clock),
		Level:     input.Level,
		Poem:      input.Poem,
		FocusOn:   input.FocusOn,
		DoingWell: input.DoingWell,
		Advice:    input.Advice,
	}

	updated := make([]models.FortuneSlip, 0, len(pool)+1)
	updated = append(updated, pool...)
	updated = append(updated, slip)
	if err := service.collections.SaveFortunes(ctx, updated); err != nil {
		return models.FortuneSlip{}, storageWriteError(err)
	}

	logger.Infof("admin: added slip %s for %s", slip.ID, slip.Month)
	return slip, nil
}

// UpdateSlip replaces the text fields of a slip. Its id, month and image stay.
func (service *AdminService) UpdateSlip(ctx context.Context, slipID string, input SlipInput) (models.FortuneSlip, error) {
	input, err := normalizeSlipInput(input)
	if err != nil {
		return models.FortuneSlip{}, err
	}

	return service.mutateSlip(ctx, slipID, func(slip models.FortuneSlip) (models.FortuneSlip, error) {
		slip.Level = input.Level
		slip.Poem = input.Poem
		slip.FocusOn = input.FocusOn
		slip.DoingWell = input.DoingWell
		slip.Advice = input.Advice
		return slip, nil
	})
}

func (service *AdminService) DeleteSlip(ctx context.Context, slipID string) error {
	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return storageReadError(err)
	}

	updated := make([]models.FortuneSlip, 0, len(pool))
	removed := false
	for _, slip := range pool {
		if slip.ID == slipID {
			removed = true
			continue
		}
		updated = append(updated, slip)
	}
	if !removed {
		return ErrSlipNotFound
	}

	if err := service.collections.SaveFortunes(ctx, updated); err != nil {
		return storageWriteError(err)
	}
	logger.Infof("admin: deleted slip %s", slipID)
	return nil
}

func (service *AdminService) SetSlipImage(ctx context.Context, slipID string, image []byte) (models.FortuneSlip, error) {
	dataURL, err := EncodeImageDataURL("image", image)
	if err != nil {
		return models.FortuneSlip{}, err
	}

	return service.mutateSlip(ctx, slipID, func(slip models.FortuneSlip) (models.FortuneSlip, error) {
		slip.ImageURL = dataURL
		return slip, nil
	})
}

func (service *AdminService) ClearSlipImage(ctx context.Context, slipID string) (models.FortuneSlip, error) {
	return service.mutateSlip(ctx, slipID, func(slip models.FortuneSlip) (models.FortuneSlip, error) {
		slip.ImageURL = ""
		return slip, nil
	})
}

func (service *AdminService) mutateSlip(
	ctx context.Context,
	slipID string,
	mutate func(models.FortuneSlip) (models.FortuneSlip, error),
) (models.FortuneSlip, error) {
	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return models.FortuneSlip{}, storageReadError(err)
	}

	updated := make([]models.FortuneSlip, len(pool))
	copy(updated, pool)

	for index := range updated {
		if updated[index].ID != slipID {
			continue
		}

		changed, err := mutate(updated[index])
		if err != nil {
			return models.FortuneSlip{}, err
		}
		updated[index] = changed

		if err := service.collections.SaveFortunes(ctx, updated); err != nil {
			return models.FortuneSlip{}, storageWriteError(err)
		}
		return changed, nil
	}
	return models.FortuneSlip{}, ErrSlipNotFound
}

func (service *AdminService) Config(ctx context.Context) (models.AppConfig, error) {
	config, err := service.collections.Config(ctx)
	if err != nil {
		return models.AppConfig{}, storageReadError(err)
	}
	return config, nil
}

// UpdateConfig applies update on top of the stored config and writes it back whole.
func (service *AdminService) UpdateConfig(ctx context.Context, update ConfigUpdate) (models.AppConfig, error) {
	var logo string
	if len(update.Logo) > 0 {
		encoded, err := EncodeImageDataURL("logo", update.Logo)
		if err != nil {
			return models.AppConfig{}, err
		}
		logo = encoded
	}

	var passcode string
	if update.UserPasscode != nil {
		passcode = strings.TrimSpace(*update.UserPasscode)
		if passcode == "" {
			return models.AppConfig{}, fieldError("userPasscode", ErrValidation)
		}
	}

	config, err := service.collections.Config(ctx)
	if err != nil {
		return models.AppConfig{}, storageReadError(err)
	}

	if update.UserPasscode != nil {
		config.UserPasscode = passcode
	}
	switch {
	case logo != "":
		config.CustomLogo = logo
	case update.ClearLogo:
		config.CustomLogo = ""
	}

	if err := service.collections.SaveConfig(ctx, config); err != nil {
		return models.AppConfig{}, storageWriteError(err)
	}
	return config, nil
}

func (service *AdminService) SetUserPasscode(ctx context.Context, passcode string) (models.AppConfig, error) {
	return service.UpdateConfig(ctx, ConfigUpdate{UserPasscode: &passcode})
}

func (service *AdminService) SetLogo(ctx context.Context, image []byte) (models.AppConfig, error) {
	if len(image) == 0 {
		return models.AppConfig{}, fieldError("logo", ErrValidation)
	}
	return service.UpdateConfig(ctx, ConfigUpdate{Logo: image})
}

// ClearLogo restores the default shrine icon.
func (service *AdminService) ClearLogo(ctx context.Context) (models.AppConfig, error) {
	return service.UpdateConfig(ctx, ConfigUpdate{ClearLogo: true})
}
