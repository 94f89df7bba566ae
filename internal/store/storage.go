// Package store persists the encrypted wallet blob in a single storage slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SlotKey is the fixed name the wallet blob is stored under.
const SlotKey = "superaxe_wallet"

var bucketName = []byte("wallet")

// Storage reads and writes one opaque string slot.
type Storage interface {
	// Get returns the stored value and whether the slot is occupied.
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, value string) error
	Delete(ctx context.Context) error
}

// MemoryStorage keeps the slot in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	value string
	ok    bool
}

// NewMemoryStorage returns an empty in-memory slot.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Get(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.ok = value, true
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.ok = "", false
	return nil
}

// BoltStorage keeps the slot in a bbolt database file.
type BoltStorage struct {
	db  *bolt.DB
	key []byte
}

// OpenBolt opens or creates the database at path and ensures the wallet bucket exists.
func OpenBolt(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open wallet db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create wallet bucket: %w", err)
	}
	return &BoltStorage{db: db, key: []byte(SlotKey)}, nil
}

func (b *BoltStorage) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		ok    bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errors.New("wallet bucket missing")
		}
		if v := bucket.Get(b.key); v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("read wallet slot: %w", err)
	}
	return value, ok, nil
}

func (b *BoltStorage) Set(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(b.key, []byte(value))
	}); err != nil {
		return fmt.Errorf("write wallet slot: %w", err)
	}
	return nil
}

func (b *BoltStorage) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(b.key)
	}); err != nil {
		return fmt.Errorf("delete wallet slot: %w", err)
	}
	return nil
}

// Close releases the database file lock.
func (b *BoltStorage) Close() error {
	return b.db.Close()
}
