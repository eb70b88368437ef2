package storage

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key has never been stored or was removed.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the client's persisted key/value area: the access token and the
// cached profile of the signed-in user.
type Storage interface {
	GetToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error

	GetProfile(ctx context.Context) (*models.User, error)
	SaveProfile(ctx context.Context, user *models.User) error

	Close() error
}

// Open picks the Redis store when an address is configured and the local
// bbolt file otherwise.
func Open(cfg config.StorageConfig) (Storage, error) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			_ = rdb.Close()
			return nil, err
		}
		log.Printf("INFO: using redis storage at %s", cfg.RedisAddr)
		return NewRedisStore(rdb), nil
	}

	return OpenBoltStore(cfg.Path)
}
