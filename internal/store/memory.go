package store

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory. It backs tests and demo runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	hub    *changeHub
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		hub:    newChangeHub(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return cloneBytes(s.values[name]), nil
}

func (s *MemoryStore) Set(ctx context.Context, name string, value []byte) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.values[name] = cloneBytes(value)
	s.mu.Unlock()

	s.hub.publish(name, value)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, name string, fn func(value []byte)) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	return s.hub.subscribe(ctx, name, func() ([]byte, error) {
		return s.Get(ctx, name)
	}, fn)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.close()
	return nil
}
