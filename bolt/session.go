package bolt

import (
	"github.com/boltdb/bolt"
)

var (
	sessionBucket = []byte("session")

	// sessionKey is the fixed key the session record is stored under.
	sessionKey = []byte("user")
)

// SessionStore keeps the serialized session in a single bolt record. Every
// write is one bolt transaction, so readers see either the old record or
// the new one.
type SessionStore struct {
	Driver *Driver
}

func (s *SessionStore) Load() ([]byte, error) {
	var data []byte
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)

		v := bucket.Get(sessionKey)
		if v == nil {
			return nil
		}

		// v is only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (s *SessionStore) Save(data []byte) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		return bucket.Put(sessionKey, data)
	})
}

func (s *SessionStore) Delete() error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		return bucket.Delete(sessionKey)
	})
}
