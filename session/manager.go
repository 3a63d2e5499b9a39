package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/internal/notify"
	"github.com/bobinette/papershelf/log"
)

// Listener is called after every successful Set or Clear, with a nil
// session on Clear. Listeners see the mutations in the order they happened;
// a session replaced before it reached a listener is not delivered to it.
type Listener func(ctx context.Context, s *papershelf.Session)

// Manager owns the authenticated identity. The in-memory session and the
// persisted record are identical after every mutation: the record is
// written first and the in-memory value only replaced if that succeeded.
type Manager struct {
	store  papershelf.SessionStore
	logger log.Logger

	// write serializes Set and Clear so that persistence and memory cannot
	// be interleaved by two concurrent mutations.
	write sync.Locker

	mu      sync.Locker
	current *papershelf.Session

	dispatch *notify.Dispatcher[Listener]
}

func NewManager(store papershelf.SessionStore, logger log.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,

		write:    &sync.Mutex{},
		mu:       &sync.Mutex{},
		dispatch: &notify.Dispatcher[Listener]{},
	}
}

// Restore reads the persisted session. A missing, unreadable or malformed
// record means there is no session; it is never reported as an error.
// Listeners are not notified.
func (m *Manager) Restore() (papershelf.Session, bool) {
	s, ok := m.load()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		m.current = nil
		return papershelf.Session{}, false
	}

	m.current = &s
	return s, true
}

func (m *Manager) load() (papershelf.Session, bool) {
	data, err := m.store.Load()
	if err != nil {
		m.logger.Errorf("could not read persisted session: %v", err)
		return papershelf.Session{}, false
	} else if data == nil {
		return papershelf.Session{}, false
	}

	var s papershelf.Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Errorf("ignoring malformed persisted session: %v", err)
		return papershelf.Session{}, false
	}
	if !s.Valid() {
		m.logger.Errorf("ignoring persisted session without identity")
		return papershelf.Session{}, false
	}

	return s, true
}

func (m *Manager) Current() (papershelf.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return papershelf.Session{}, false
	}
	return *m.current, true
}

// Set persists s and makes it the current session. On failure both the
// persisted record and the in-memory session are left as they were.
func (m *Manager) Set(ctx context.Context, s papershelf.Session) error {
	if !s.Valid() {
		return errors.New("session has no identity", errors.WithKind(errors.Validation), errors.BadRequest())
	}

	data, err := json.Marshal(s)
	if err != nil {
		return errors.New("could not encode session", errors.WithCause(err))
	}

	m.write.Lock()
	if err := m.store.Save(data); err != nil {
		m.write.Unlock()
		return errors.New("could not persist session", errors.WithCause(err))
	}

	m.mu.Lock()
	m.current = &s
	m.dispatch.Enqueue(func(l Listener) {
		// Each listener gets its own copy
		c := s
		l(ctx, &c)
	})
	m.mu.Unlock()
	m.write.Unlock()

	m.logger.Debugf("session set for user %d", s.UserID)
	m.dispatch.Deliver()
	return nil
}

// Clear removes the session, persisted and in memory.
func (m *Manager) Clear(ctx context.Context) error {
	m.write.Lock()
	if err := m.store.Delete(); err != nil {
		m.write.Unlock()
		return errors.New("could not delete persisted session", errors.WithCause(err))
	}

	m.mu.Lock()
	m.current = nil
	m.dispatch.Enqueue(func(l Listener) { l(ctx, nil) })
	m.mu.Unlock()
	m.write.Unlock()

	m.logger.Debugf("session cleared")
	m.dispatch.Deliver()
	return nil
}

// Subscribe registers l. Listeners are called in subscription order, after
// the mutation is visible.
func (m *Manager) Subscribe(l Listener) {
	m.dispatch.Subscribe(l)
}
