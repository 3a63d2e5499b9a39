package bookmarks

import (
	"context"
	"sync"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/internal/notify"
	"github.com/bobinette/papershelf/log"
)

type API interface {
	Bookmarks(ctx context.Context, userID int) ([]papershelf.Bookmark, error)
	CreateBookmark(ctx context.Context, userID, paperID int) (papershelf.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, paperID int) error
}

// SessionSource gives the engine the user it acts for.
type SessionSource interface {
	Current() (papershelf.Session, bool)
}

// Listener receives the bookmark sets the engine applies, and an empty set
// on reset, in that order. A set replaced before it reached a listener is
// not delivered to it.
type Listener func(papershelf.BookmarkSet)

// Engine keeps the bookmarks of the current user. The set is only ever
// replaced by a full listing from the backend: mutations are sent to the
// backend and followed by a reload, never applied locally.
type Engine struct {
	api      API
	sessions SessionSource
	logger   log.Logger

	mu sync.Locker
	// set is nil until a load is applied, and after a reset.
	set *papershelf.BookmarkSet
	// generation is bumped on reset. A load started in an older generation
	// is not applied.
	generation uint64

	dispatch *notify.Dispatcher[Listener]
}

func NewEngine(api API, sessions SessionSource, logger log.Logger) *Engine {
	return &Engine{
		api:      api,
		sessions: sessions,
		logger:   logger,

		mu:       &sync.Mutex{},
		dispatch: &notify.Dispatcher[Listener]{},
	}
}

// Load fetches the full bookmark set of userID and replaces the current one
// when the response arrives. If the engine was reset while the request was
// in flight the set is returned but not applied.
func (e *Engine) Load(ctx context.Context, userID int) (papershelf.BookmarkSet, error) {
	e.mu.Lock()
	generation := e.generation
	e.mu.Unlock()

	return e.load(ctx, userID, generation)
}

// load applies the set only if no reset happened since generation.
func (e *Engine) load(ctx context.Context, userID int, generation uint64) (papershelf.BookmarkSet, error) {
	bookmarks, err := e.api.Bookmarks(ctx, userID)
	if err != nil {
		e.logger.Errorf("could not load bookmarks of user %d: %v", userID, err)
		return papershelf.BookmarkSet{}, classify(err, errors.Fetch)
	}
	set := papershelf.NewBookmarkSet(userID, bookmarks)

	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		e.logger.Debugf("discarding bookmarks of user %d loaded before a reset", userID)
		return set, nil
	}
	e.set = &set
	e.dispatch.Enqueue(func(l Listener) { l(set) })
	e.mu.Unlock()

	e.logger.Debugf("loaded %d bookmarks for user %d", set.Len(), userID)
	e.dispatch.Deliver()
	return set, nil
}

// Toggle bookmarks paperID if it is not in the current set and removes the
// bookmark otherwise, then reloads the set. When the backend rejects the
// mutation the set is reloaded anyway before the error is returned. The
// reload is not applied if the session changed while the toggle was in
// flight.
func (e *Engine) Toggle(ctx context.Context, paperID int) (papershelf.BookmarkSet, error) {
	// The generation is read before the session: a reset that the session
	// read misses cannot be missed by the reload.
	e.mu.Lock()
	generation := e.generation
	e.mu.Unlock()

	s, ok := e.sessions.Current()
	if !ok {
		return papershelf.BookmarkSet{}, errors.New("login required", errors.WithKind(errors.NotAuthenticated), errors.Unauthorized())
	}

	var err error
	if e.bookmarkedBy(s.UserID, paperID) {
		e.logger.Debugf("removing bookmark on paper %d for user %d", paperID, s.UserID)
		err = e.api.DeleteBookmark(ctx, s.UserID, paperID)
	} else {
		e.logger.Debugf("bookmarking paper %d for user %d", paperID, s.UserID)
		_, err = e.api.CreateBookmark(ctx, s.UserID, paperID)
	}

	if errors.Is(err, errors.Transport) {
		e.logger.Errorf("could not toggle bookmark on paper %d: %v", paperID, err)
		return e.currentSet(), err
	} else if err != nil {
		e.logger.Errorf("bookmark toggle on paper %d rejected: %v", paperID, err)
		set, lerr := e.load(ctx, s.UserID, generation)
		if lerr != nil {
			set = e.currentSet()
		}
		return set, errors.WithKind(errors.Toggle)(err)
	}

	return e.load(ctx, s.UserID, generation)
}

func (e *Engine) IsBookmarked(paperID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set != nil && e.set.Contains(paperID)
}

// bookmarkedBy only trusts a set loaded for userID.
func (e *Engine) bookmarkedBy(userID, paperID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set != nil && e.set.UserID == userID && e.set.Contains(paperID)
}

// Annotate pairs every paper with its bookmark status. It is the only place
// where the status is computed.
func (e *Engine) Annotate(papers []papershelf.Paper) []papershelf.PaperStatus {
	set := e.currentSet()

	statuses := make([]papershelf.PaperStatus, len(papers))
	for i, p := range papers {
		statuses[i] = papershelf.PaperStatus{
			Paper:      p,
			Bookmarked: set.Contains(p.ID),
		}
	}
	return statuses
}

// Current returns the applied set. ok is false before the first load and
// after a reset.
func (e *Engine) Current() (set papershelf.BookmarkSet, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set == nil {
		return papershelf.BookmarkSet{}, false
	}
	return *e.set, true
}

// Reset drops the current set. Loads still in flight will not be applied.
func (e *Engine) Reset() {
	empty := papershelf.NewBookmarkSet(0, nil)

	e.mu.Lock()
	e.set = nil
	e.generation++
	e.dispatch.Enqueue(func(l Listener) { l(empty) })
	e.mu.Unlock()

	e.dispatch.Deliver()
}

func (e *Engine) Subscribe(l Listener) {
	e.dispatch.Subscribe(l)
}

// SessionChanged follows the session: the set is dropped on every change
// and loaded again for the new user, if any.
func (e *Engine) SessionChanged(ctx context.Context, s *papershelf.Session) {
	e.Reset()
	if s == nil {
		return
	}

	if _, err := e.Load(ctx, s.UserID); err != nil {
		e.logger.Errorf("could not load bookmarks after session change: %v", err)
	}
}

func (e *Engine) currentSet() papershelf.BookmarkSet {
	set, _ := e.Current()
	return set
}

func classify(err error, kind errors.Kind) error {
	if errors.Is(err, errors.Transport) {
		return err
	}
	return errors.WithKind(kind)(err)
}
