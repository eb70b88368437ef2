package storage

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("cherrypick")

// BoltStore keeps the token and profile in a local bbolt file.
type BoltStore struct {
	DB *bbolt.DB
}

// OpenBoltStore opens (or creates) the file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{DB: db}, nil
}

func (s *BoltStore) get(key string) ([]byte, error) {
	var value []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (s *BoltStore) put(key string, value []byte) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

func (s *BoltStore) GetToken(ctx context.Context) (string, error) {
	v, err := s.get(config.TokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *BoltStore) SaveToken(ctx context.Context, token string) error {
	return s.put(config.TokenKey, []byte(token))
}

func (s *BoltStore) RemoveToken(ctx context.Context) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(config.TokenKey))
	})
}

func (s *BoltStore) GetProfile(ctx context.Context) (*models.User, error) {
	v, err := s.get(config.ProfileKey)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(v, &user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &user, nil
}

func (s *BoltStore) SaveProfile(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.put(config.ProfileKey, data)
}

func (s *BoltStore) Close() error {
	return s.DB.Close()
}
