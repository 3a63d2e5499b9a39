package inmem

import (
	"sync"
)

// SessionStore keeps the session record in memory. It lives as long as the
// process and is meant for tests and ephemeral clients.
type SessionStore struct {
	mu   sync.Locker
	data []byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		mu: &sync.Mutex{},
	}
}

func (s *SessionStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}
	data := make([]byte, len(s.data))
	copy(data, s.data)
	return data, nil
}

func (s *SessionStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

func (s *SessionStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	return nil
}
