package storage

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cherrypick:"

// RedisStore keeps the token and profile in Redis, for headless clients that
// share a session across processes.
type RedisStore struct {
	Redis *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{Redis: rdb}
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	value, err := s.Redis.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) GetToken(ctx context.Context) (string, error) {
	return s.get(ctx, config.TokenKey)
}

func (s *RedisStore) SaveToken(ctx context.Context, token string) error {
	return s.Redis.Set(ctx, keyPrefix+config.TokenKey, token, 0).Err()
}

func (s *RedisStore) RemoveToken(ctx context.Context) error {
	return s.Redis.Del(ctx, keyPrefix+config.TokenKey).Err()
}

func (s *RedisStore) GetProfile(ctx context.Context) (*models.User, error) {
	value, err := s.get(ctx, config.ProfileKey)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &user, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, keyPrefix+config.ProfileKey, data, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.Redis.Close()
}
