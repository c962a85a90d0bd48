// Package store holds the shared shrine collections. Every backend offers the
// same whole-collection get / set / subscribe contract and last write wins.
package store

import (
	"context"
	"errors"
)

const (
	CollectionFortunes = "fortunes"
	CollectionConfig   = "config"
	CollectionHistory  = "history"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrClosed            = errors.New("store is closed")
)

// Store is a remote key/value tree addressed by collection name.
// Get returns a nil value and no error when the collection was never written.
// Subscribe delivers the current value first and then every change until ctx
// is cancelled. Callbacks for one subscription never run concurrently.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Subscribe(ctx context.Context, name string, fn func(value []byte)) error
	Close() error
}

func Collections() []string {
	return []string{CollectionFortunes, CollectionConfig, CollectionHistory}
}

func validateCollection(name string) error {
	switch name {
	case CollectionFortunes, CollectionConfig, CollectionHistory:
		return nil
	default:
		return ErrUnknownCollection
	}
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied
}
