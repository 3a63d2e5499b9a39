package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/bolt"
	ppsErrors "github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/inmem"
	"github.com/bobinette/papershelf/log"
)

var ada = papershelf.Session{
	UserID:       1,
	Username:     "ada",
	Email:        "ada@example.com",
	Affiliation:  "Analytical Society",
	FieldOfStudy: "Mathematics",
	CreatedAt:    "1843-07-10T00:00:00.000000",
}

// failingStore fails writes on demand.
type failingStore struct {
	*inmem.SessionStore

	failSave   bool
	failDelete bool
}

func (s *failingStore) Save(data []byte) error {
	if s.failSave {
		return errors.New("disk full")
	}
	return s.SessionStore.Save(data)
}

func (s *failingStore) Delete() error {
	if s.failDelete {
		return errors.New("read only")
	}
	return s.SessionStore.Delete()
}

func TestManager_RestoreEmpty(t *testing.T) {
	m := NewManager(inmem.NewSessionStore(), log.NewNop())

	_, ok := m.Restore()
	assert.False(t, ok)

	_, ok = m.Current()
	assert.False(t, ok)
}

func TestManager_RestoreMalformed(t *testing.T) {
	tts := map[string]string{
		"not json":    `{"id": 1, "username"`,
		"wrong types": `{"id": "one", "username": "ada"}`,
		"no identity": `{"username": "ada"}`,
		"null":        `null`,
	}

	for name, record := range tts {
		store := inmem.NewSessionStore()
		require.NoError(t, store.Save([]byte(record)))

		m := NewManager(store, log.NewNop())
		_, ok := m.Restore()
		assert.False(t, ok, name)

		_, ok = m.Current()
		assert.False(t, ok, name)
	}
}

func TestManager_SetPersists(t *testing.T) {
	store := inmem.NewSessionStore()
	m := NewManager(store, log.NewNop())

	require.NoError(t, m.Set(context.Background(), ada))

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, ada, current)

	// A second manager over the same store is a restart
	restarted := NewManager(store, log.NewNop())
	restored, ok := restarted.Restore()
	require.True(t, ok)
	assert.Equal(t, ada, restored)
}

func TestManager_RoundTripBolt(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "")
	require.NoError(t, err)
	tmpFile.Close()
	filename := tmpFile.Name()
	defer os.Remove(filename)

	driver := bolt.Driver{}
	require.NoError(t, driver.Open(filename))
	m := NewManager(&bolt.SessionStore{Driver: &driver}, log.NewNop())
	require.NoError(t, m.Set(context.Background(), ada))
	require.NoError(t, driver.Close())

	// Simulated restart: a new process opens the same file
	driver = bolt.Driver{}
	require.NoError(t, driver.Open(filename))
	defer driver.Close()

	restored, ok := NewManager(&bolt.SessionStore{Driver: &driver}, log.NewNop()).Restore()
	require.True(t, ok)
	assert.Equal(t, ada, restored)
}

func TestManager_SetFailureKeepsPriorState(t *testing.T) {
	store := &failingStore{SessionStore: inmem.NewSessionStore()}
	m := NewManager(store, log.NewNop())
	require.NoError(t, m.Set(context.Background(), ada))

	notified := 0
	m.Subscribe(func(context.Context, *papershelf.Session) { notified++ })

	store.failSave = true
	grace := papershelf.Session{UserID: 2, Username: "grace"}
	require.Error(t, m.Set(context.Background(), grace))

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, ada, current, "in-memory session should be kept")

	restored, ok := NewManager(store, log.NewNop()).Restore()
	require.True(t, ok)
	assert.Equal(t, ada, restored, "persisted session should be kept")
	assert.Equal(t, 0, notified, "listeners should not be notified of a failed set")
}

func TestManager_SetInvalid(t *testing.T) {
	m := NewManager(inmem.NewSessionStore(), log.NewNop())

	err := m.Set(context.Background(), papershelf.Session{Username: "nobody"})
	ppsErrors.AssertKind(t, err, ppsErrors.Validation)

	_, ok := m.Current()
	assert.False(t, ok)
}

func TestManager_Clear(t *testing.T) {
	store := inmem.NewSessionStore()
	m := NewManager(store, log.NewNop())
	require.NoError(t, m.Set(context.Background(), ada))

	require.NoError(t, m.Clear(context.Background()))

	_, ok := m.Current()
	assert.False(t, ok)

	data, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestManager_ClearFailureKeepsSession(t *testing.T) {
	store := &failingStore{SessionStore: inmem.NewSessionStore()}
	m := NewManager(store, log.NewNop())
	require.NoError(t, m.Set(context.Background(), ada))

	store.failDelete = true
	require.Error(t, m.Clear(context.Background()))

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, ada, current)
}

func TestManager_Listeners(t *testing.T) {
	m := NewManager(inmem.NewSessionStore(), log.NewNop())

	calls := make([]string, 0)
	m.Subscribe(func(_ context.Context, s *papershelf.Session) {
		if s == nil {
			calls = append(calls, "first:clear")
			return
		}
		// The mutation is visible when listeners run
		current, ok := m.Current()
		assert.True(t, ok)
		assert.Equal(t, *s, current)
		calls = append(calls, "first:"+s.Username)
	})
	m.Subscribe(func(_ context.Context, s *papershelf.Session) {
		if s == nil {
			calls = append(calls, "second:clear")
			return
		}
		calls = append(calls, "second:"+s.Username)
	})

	require.NoError(t, m.Set(context.Background(), ada))
	require.NoError(t, m.Clear(context.Background()))

	assert.Equal(t, []string{"first:ada", "second:ada", "first:clear", "second:clear"}, calls)
}

func TestManager_RestoreDoesNotNotify(t *testing.T) {
	store := inmem.NewSessionStore()
	require.NoError(t, NewManager(store, log.NewNop()).Set(context.Background(), ada))

	m := NewManager(store, log.NewNop())
	notified := false
	m.Subscribe(func(context.Context, *papershelf.Session) { notified = true })

	_, ok := m.Restore()
	assert.True(t, ok)
	assert.False(t, notified)
}

func TestManager_ListenersFollowMutationOrder(t *testing.T) {
	m := NewManager(inmem.NewSessionStore(), log.NewNop())
	grace := papershelf.Session{UserID: 2, Username: "grace"}

	entered := make(chan struct{})
	release := make(chan struct{})
	m.Subscribe(func(_ context.Context, s *papershelf.Session) {
		if s != nil && s.Username == "ada" {
			close(entered)
			<-release
		}
	})

	var mu sync.Mutex
	seen := make([]string, 0)
	m.Subscribe(func(_ context.Context, s *papershelf.Session) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Username)
	})

	done := make(chan error)
	go func() {
		done <- m.Set(context.Background(), ada)
	}()

	<-entered
	// ada is still being delivered: grace is delivered after it, by the
	// same goroutine
	require.NoError(t, m.Set(context.Background(), grace))
	close(release)
	require.NoError(t, <-done)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, grace, current)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"grace"}, seen, "ada was replaced before reaching the second listener")
}
