package store

import (
	"context"

	"github.com/terraincognita07/shrine/internal/models"
)

// Repository is the typed view of the three shrine collections.
type Repository interface {
	Fortunes(ctx context.Context) ([]models.FortuneSlip, error)
	Config(ctx context.Context) (models.AppConfig, error)
	History(ctx context.Context) ([]models.UserHistory, error)
	SaveFortunes(ctx context.Context, fortunes []models.FortuneSlip) error
	SaveConfig(ctx context.Context, config models.AppConfig) error
	SaveHistory(ctx context.Context, history []models.UserHistory) error
}

// CollectionStore reads and writes typed collections straight through a Store.
type CollectionStore struct {
	store Store
}

func NewCollectionStore(store Store) *CollectionStore {
	return &CollectionStore{store: store}
}

func (c *CollectionStore) Fortunes(ctx context.Context) ([]models.FortuneSlip, error) {
	raw, err := c.store.Get(ctx, CollectionFortunes)
	if err != nil {
		return nil, err
	}
	return DecodeFortunes(raw)
}

func (c *CollectionStore) Config(ctx context.Context) (models.AppConfig, error) {
	raw, err := c.store.Get(ctx, CollectionConfig)
	if err != nil {
		return models.AppConfig{}, err
	}
	return DecodeConfig(raw)
}

func (c *CollectionStore) History(ctx context.Context) ([]models.UserHistory, error) {
	raw, err := c.store.Get(ctx, CollectionHistory)
	if err != nil {
		return nil, err
	}
	return DecodeHistory(raw)
}

func (c *CollectionStore) SaveFortunes(ctx context.Context, fortunes []models.FortuneSlip) error {
	if fortunes == nil {
		fortunes = []models.FortuneSlip{}
	}
	return c.save(ctx, CollectionFortunes, fortunes)
}

func (c *CollectionStore) SaveConfig(ctx context.Context, config models.AppConfig) error {
	return c.save(ctx, CollectionConfig, config)
}

func (c *CollectionStore) SaveHistory(ctx context.Context, history []models.UserHistory) error {
	if history == nil {
		history = []models.UserHistory{}
	}
	return c.save(ctx, CollectionHistory, history)
}

func (c *CollectionStore) save(ctx context.Context, name string, value interface{}) error {
	encoded, err := Encode(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, name, encoded)
}
