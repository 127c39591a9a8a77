package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

const (
	stateBucket = "state"

	dismissedVersionKey = "dismissed_version"
	lastWindowStartKey  = "last_window_start"
	lastWindowEndKey    = "last_window_end"
)

// stateStore keeps the handful of values that outlive a run: which update
// hint was dismissed and the last synced window. Sync reports are
// deliberately not stored.
type stateStore struct {
	db *bolt.DB
}

func NewStateStore(config *common.StorageConfig) (interfaces.StateStore, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	return &stateStore{db: db}, nil
}

func (s *stateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *stateStore) DismissedVersion() (string, error) {
	return s.get(dismissedVersionKey)
}

func (s *stateStore) SetDismissedVersion(version string) error {
	return s.put(dismissedVersionKey, version)
}

func (s *stateStore) LastWindow() (string, string, error) {
	start, err := s.get(lastWindowStartKey)
	if err != nil {
		return "", "", err
	}
	end, err := s.get(lastWindowEndKey)
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

func (s *stateStore) SetLastWindow(start, end string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if err := bucket.Put([]byte(lastWindowStartKey), []byte(start)); err != nil {
			return err
		}
		return bucket.Put([]byte(lastWindowEndKey), []byte(end))
	})
}

func (s *stateStore) get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket([]byte(stateBucket)).Get([]byte(key)); data != nil {
			value = string(data)
		}
		return nil
	})
	return value, err
}

func (s *stateStore) put(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Put([]byte(key), []byte(value))
	})
}
