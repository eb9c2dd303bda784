package session

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltStore is a Store backed by a BBolt database. Sessions survive
// server restarts, which keeps logged-in users logged in across
// deployments.
type BoltStore struct {
	db          *bbolt.DB
	idleTimeout time.Duration
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore wraps an open BBolt database. idleTimeout of 0 disables
// idle timeout checking.
func NewBoltStore(db *bbolt.DB, idleTimeout time.Duration) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	return &BoltStore{db: db, idleTimeout: idleTimeout}, nil
}

// NewBoltStoreFromFile opens a BBolt database at path and returns a
// store backed by it.
func NewBoltStoreFromFile(path string, options *bbolt.Options, idleTimeout time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	return NewBoltStore(db, idleTimeout)
}

// Close closes the underlying database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func (b *BoltStore) Get(id string) (Session, bool) {
	var s Session
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("session %s not found", id)
		}
		return json.Unmarshal(data, &s)
	})
	if err != nil {
		return Session{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		b.Delete(id)
		return Session{}, false
	}
	if b.idleTimeout > 0 && time.Since(s.LastAccessedAt) > b.idleTimeout {
		b.Delete(id)
		return Session{}, false
	}
	return s, true
}

func (b *BoltStore) Put(s Session) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(s.ID), data)
	})
}

func (b *BoltStore) Delete(id string) {
	_ = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
}
