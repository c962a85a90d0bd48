package store

import (
	"context"
	"sync"

	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/models"
	"go.uber.org/atomic"
)

// Replica mirrors the three collections in memory by subscribing to the store.
// Reads served before a collection arrives fall through to the store; writes
// go to the store and update the mirror immediately.
type Replica struct {
	collections *CollectionStore
	store       Store

	mu       sync.RWMutex
	fortunes []models.FortuneSlip
	config   models.AppConfig
	history  []models.UserHistory

	fortunesLoaded atomic.Bool
	configLoaded   atomic.Bool
	historyLoaded  atomic.Bool
	started        atomic.Bool

	readyOnce sync.Once
	ready     chan struct{}
}

func NewReplica(store Store) *Replica {
	return &Replica{
		collections: NewCollectionStore(store),
		store:       store,
		fortunes:    []models.FortuneSlip{},
		config:      models.DefaultAppConfig(),
		history:     []models.UserHistory{},
		ready:       make(chan struct{}),
	}
}

// Start subscribes to every collection. Delivery stops when ctx is cancelled.
func (r *Replica) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := r.store.Subscribe(ctx, CollectionFortunes, r.applyFortunes); err != nil {
		return err
	}
	if err := r.store.Subscribe(ctx, CollectionConfig, r.applyConfig); err != nil {
		return err
	}
	return r.store.Subscribe(ctx, CollectionHistory, r.applyHistory)
}

func (r *Replica) applyFortunes(raw []byte) {
	fortunes, err := DecodeFortunes(raw)
	if err != nil {
		logger.Warningf("replica: ignoring fortunes update: %v", err)
	} else {
		r.mu.Lock()
		r.fortunes = fortunes
		r.mu.Unlock()
	}
	r.fortunesLoaded.Store(true)
	r.markReady()
}

func (r *Replica) applyConfig(raw []byte) {
	config, err := DecodeConfig(raw)
	if err != nil {
		logger.Warningf("replica: ignoring config update: %v", err)
	} else {
		r.mu.Lock()
		r.config = config
		r.mu.Unlock()
	}
	r.configLoaded.Store(true)
	r.markReady()
}

func (r *Replica) applyHistory(raw []byte) {
	history, err := DecodeHistory(raw)
	if err != nil {
		logger.Warningf("replica: ignoring history update: %v", err)
	} else {
		r.mu.Lock()
		r.history = history
		r.mu.Unlock()
	}
	r.historyLoaded.Store(true)
	r.markReady()
}

func (r *Replica) markReady() {
	if r.fortunesLoaded.Load() && r.configLoaded.Load() && r.historyLoaded.Load() {
		r.readyOnce.Do(func() { close(r.ready) })
	}
}

// Loading reports whether the slip pool has not arrived yet.
func (r *Replica) Loading() bool {
	return !r.fortunesLoaded.Load()
}

// WaitReady blocks until every collection was delivered once or ctx ends.
func (r *Replica) WaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Replica) Fortunes(ctx context.Context) ([]models.FortuneSlip, error) {
	if !r.fortunesLoaded.Load() {
		return r.collections.Fortunes(ctx)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.FortuneSlip(nil), r.fortunes...), nil
}

func (r *Replica) Config(ctx context.Context) (models.AppConfig, error) {
	if !r.configLoaded.Load() {
		return r.collections.Config(ctx)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config, nil
}

func (r *Replica) History(ctx context.Context) ([]models.UserHistory, error) {
	if !r.historyLoaded.Load() {
		return r.collections.History(ctx)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := make([]models.UserHistory, 0, len(r.history))
	for _, record := range r.history {
		history = append(history, record.Clone())
	}
	return history, nil
}

func (r *Replica) SaveFortunes(ctx context.Context, fortunes []models.FortuneSlip) error {
	if err := r.collections.SaveFortunes(ctx, fortunes); err != nil {
		return err
	}
	r.mu.Lock()
	r.fortunes = append([]models.FortuneSlip{}, fortunes...)
	r.mu.Unlock()
	return nil
}

func (r *Replica) SaveConfig(ctx context.Context, config models.AppConfig) error {
	if err := r.collections.SaveConfig(ctx, config); err != nil {
		return err
	}
	r.mu.Lock()
	r.config = config
	r.mu.Unlock()
	return nil
}

func (r *Replica) SaveHistory(ctx context.Context, history []models.UserHistory) error {
	if err := r.collections.SaveHistory(ctx, history); err != nil {
		return err
	}
	r.mu.Lock()
	r.history = append([]models.UserHistory{}, history...)
	r.mu.Unlock()
	return nil
}
