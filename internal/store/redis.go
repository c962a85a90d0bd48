package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

const DefaultRedisPrefix = "shrine"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// RedisStore keeps each collection under <prefix>:<name> and publishes every
// write on <prefix>:changes:<name>, so several service instances share one view.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedisStore connects and pings the server before returning.
func OpenRedisStore(ctx context.Context, options RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     options.Addr,
		Password: options.Password,
		DB:       options.DB,
		PoolSize: options.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", options.Addr, err)
	}
	return NewRedisStore(client, options.Prefix), nil
}

func (s *RedisStore) valueKey(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) changeChannel(name string) string {
	return s.prefix + ":changes:" + name
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}

	value, err := s.client.Get(ctx, s.valueKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, name string, value []byte) error {
	if err := validateCollection(name); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.valueKey(name), value, 0)
		pipe.Publish(ctx, s.changeChannel(name), value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save collection %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, name string, fn func(value []byte)) error {
	if err := validateCollection(name); err != nil {
		return err
	}

	pubsub := s.client.Subscribe(ctx, s.changeChannel(name))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", name, err)
	}

	current, err := s.Get(ctx, name)
	if err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		fn(current)

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}
				fn([]byte(message.Payload))
			}
		}
	}()
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
