// Package session keeps the per-chat conversation scene. The scene is the
// only process state outside the sheet, so losing it merely drops a user
// back to the main menu.
package session

import (
	"context"
	"fmt"

	"secret-santa-wishlist/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(host, port, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}

// Get returns the chat's scene; an absent key means the main menu.
func (s *RedisStore) Get(ctx context.Context, chatID int64) (domain.State, error) {
	data, err := s.client.Get(ctx, sessionKey(chatID)).Result()
	if err == redis.Nil {
		return domain.StateMenu, nil
	}
	if err != nil {
		return domain.StateMenu, fmt.Errorf("failed to get session: %w", err)
	}
	return domain.State(data), nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, state domain.State) error {
	if err := s.client.Set(ctx, sessionKey(chatID), string(state), 0).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
