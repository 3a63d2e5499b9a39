package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/auth"
	"github.com/bobinette/papershelf/bleve"
	"github.com/bobinette/papershelf/bookmarks"
	"github.com/bobinette/papershelf/catalog"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
	"github.com/bobinette/papershelf/session"
)

// Client is everything the application needs from the backend.
type Client interface {
	auth.Client
	catalog.Client
	bookmarks.API
}

// App owns the components and the subscriptions between them. Nothing is
// shared through package state: every caller goes through an App.
type App struct {
	Sessions  *session.Manager
	Auth      *auth.Gateway
	Catalog   *catalog.Service
	Bookmarks *bookmarks.Engine
	Index     *bleve.BookmarkIndex

	logger log.Logger
}

func New(client Client, store papershelf.SessionStore, logger log.Logger, perPage int) (*App, error) {
	index, err := bleve.NewBookmarkIndex()
	if err != nil {
		return nil, errors.New("could not create bookmark index", errors.WithCause(err))
	}

	sessions := session.NewManager(store, logger.WithField("component", "session"))
	engine := bookmarks.NewEngine(client, sessions, logger.WithField("component", "bookmarks"))

	a := &App{
		Sessions:  sessions,
		Auth:      auth.NewGateway(client, logger.WithField("component", "auth")),
		Catalog:   catalog.NewService(client, logger.WithField("component", "catalog"), perPage),
		Bookmarks: engine,
		Index:     index,

		logger: logger,
	}

	sessions.Subscribe(engine.SessionChanged)
	engine.Subscribe(a.reindex)

	return a, nil
}

// Init restores the persisted session, then fetches the catalog and, if
// someone is logged in, their bookmarks. Both requests run concurrently;
// the first failure is returned once both are done.
func (a *App) Init(ctx context.Context) error {
	s, ok := a.Sessions.Restore()

	var g errgroup.Group
	g.Go(func() error {
		_, err := a.Catalog.Search(ctx, "")
		return err
	})
	if ok {
		a.logger.Debugf("restored session of %s", s.Username)
		g.Go(func() error {
			_, err := a.Bookmarks.Load(ctx, s.UserID)
			return err
		})
	}
	return g.Wait()
}

func (a *App) Close() error {
	return a.Index.Close()
}

func (a *App) Login(ctx context.Context, username, password string) (papershelf.Session, error) {
	s, err := a.Auth.Login(ctx, username, password)
	if err != nil {
		return papershelf.Session{}, err
	}

	if err := a.Sessions.Set(ctx, s); err != nil {
		return papershelf.Session{}, err
	}
	return s, nil
}

func (a *App) Register(ctx context.Context, r clients.RegisterRequest) (papershelf.Session, error) {
	s, err := a.Auth.Register(ctx, r)
	if err != nil {
		return papershelf.Session{}, err
	}

	if err := a.Sessions.Set(ctx, s); err != nil {
		return papershelf.Session{}, err
	}
	return s, nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.Sessions.Clear(ctx)
}

// RefreshProfile fetches the profile of the current user and stores it as
// the session.
func (a *App) RefreshProfile(ctx context.Context) (papershelf.Session, error) {
	current, err := a.currentSession()
	if err != nil {
		return papershelf.Session{}, err
	}

	s, err := a.Auth.Profile(ctx, current.UserID)
	if err != nil {
		return papershelf.Session{}, err
	}
	if err := a.Sessions.Set(ctx, s); err != nil {
		return papershelf.Session{}, err
	}
	return s, nil
}

func (a *App) UpdateProfile(ctx context.Context, u clients.ProfileUpdate) (papershelf.Session, error) {
	current, err := a.currentSession()
	if err != nil {
		return papershelf.Session{}, err
	}

	s, err := a.Auth.UpdateProfile(ctx, current.UserID, u)
	if err != nil {
		return papershelf.Session{}, err
	}
	if err := a.Sessions.Set(ctx, s); err != nil {
		return papershelf.Session{}, err
	}
	return s, nil
}

// Search runs the catalog search and annotates the result with the
// bookmark status of each paper.
func (a *App) Search(ctx context.Context, q string) ([]papershelf.PaperStatus, error) {
	papers, err := a.Catalog.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return a.Bookmarks.Annotate(papers), nil
}

// Papers returns the current catalog view, annotated.
func (a *App) Papers() []papershelf.PaperStatus {
	return a.Bookmarks.Annotate(a.Catalog.View().Papers)
}

// AddPaper adds a paper on behalf of the current user.
func (a *App) AddPaper(ctx context.Context, id papershelf.PaperIdentifier) (papershelf.Paper, error) {
	// Without a session the catalog refuses the add before any request
	s, _ := a.Sessions.Current()
	return a.Catalog.AddPaper(ctx, s.UserID, id)
}

// ToggleBookmark flips the bookmark on paperID and reports whether the
// paper is bookmarked afterwards.
func (a *App) ToggleBookmark(ctx context.Context, paperID int) (bool, error) {
	set, err := a.Bookmarks.Toggle(ctx, paperID)
	if err != nil {
		return a.Bookmarks.IsBookmarked(paperID), err
	}
	return set.Contains(paperID), nil
}

// SearchBookmarks filters the bookmarks of the current user locally.
func (a *App) SearchBookmarks(q string) ([]papershelf.Bookmark, error) {
	return a.Index.Search(q)
}

func (a *App) currentSession() (papershelf.Session, error) {
	s, ok := a.Sessions.Current()
	if !ok {
		return papershelf.Session{}, errors.New("login required", errors.WithKind(errors.NotAuthenticated), errors.Unauthorized())
	}
	return s, nil
}

func (a *App) reindex(set papershelf.BookmarkSet) {
	if err := a.Index.Replace(set); err != nil {
		a.logger.Errorf("could not index %d bookmarks: %v", set.Len(), err)
	}
}
