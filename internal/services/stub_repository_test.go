package services

import (
	"context"
	"time"

	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
)

type stubShrineRepo struct {
	fortunes []models.FortuneSlip
	config   models.AppConfig
	history  []models.UserHistory

	readErr         error
	saveHistoryErr  error
	saveFortunesErr error
	saveConfigErr   error

	fortuneSaves int
	historySaves int
	configSaves  int
}

func newStubShrineRepo() *stubShrineRepo {
	return &stubShrineRepo{config: models.DefaultAppConfig()}
}

func (stub *stubShrineRepo) Fortunes(context.Context) ([]models.FortuneSlip, error) {
	if stub.readErr != nil {
		return nil, stub.readErr
	}
	return append([]models.FortuneSlip(nil), stub.fortunes...), nil
}

func (stub *stubShrineRepo) Config(context.Context) (models.AppConfig, error) {
	if stub.readErr != nil {
		return models.AppConfig{}, stub.readErr
	}
	return stub.config, nil
}

func (stub *stubShrineRepo) History(context.Context) ([]models.UserHistory, error) {
	if stub.readErr != nil {
		return nil, stub.readErr
	}
	return append([]models.UserHistory(nil), stub.history...), nil
}

func (stub *stubShrineRepo) SaveFortunes(_ context.Context, fortunes []models.FortuneSlip) error {
	if stub.saveFortunesErr != nil {
		return stub.saveFortunesErr
	}
	stub.fortuneSaves++
	stub.fortunes = append([]models.FortuneSlip(nil), fortunes...)
	return nil
}

func (stub *stubShrineRepo) SaveConfig(_ context.Context, config models.AppConfig) error {
	if stub.saveConfigErr != nil {
		return stub.saveConfigErr
	}
	stub.configSaves++
	stub.config = config
	return nil
}

func (stub *stubShrineRepo) SaveHistory(_ context.Context, history []models.UserHistory) error {
	if stub.saveHistoryErr != nil {
		return stub.saveHistoryErr
	}
	stub.historySaves++
	stub.history = append([]models.UserHistory(nil), history...)
	return nil
}

type firstIndex struct{}

func (firstIndex) Intn(int) int {
	return 0
}

var juneClock = fortune.FixedClock(time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC))

func newShrineServiceForTest(repo *stubShrineRepo) *ShrineService {
	admin, err := security.NewPasscodeHash("takaramono")
	if err != nil {
		panic(err)
	}
	return NewShrineService(repo, juneClock, firstIndex{}, admin)
}

func sampleSlip(id string, month string) models.FortuneSlip {
	return models.FortuneSlip{
		ID:        id,
		Month:     month,
		Level:     models.LevelDaiKichi,
		Poem:      "Rain on the rice terraces",
		FocusOn:   "Patience",
		DoingWell: "Listening",
		Advice:    models.FortuneAdvice{Luck: "Walk east"},
	}
}
