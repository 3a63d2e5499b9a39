package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/internal/notify"
	"github.com/bobinette/papershelf/log"
)

type Client interface {
	Papers(ctx context.Context, search string, perPage int) (clients.PaperPage, error)
	AddPaper(ctx context.Context, userID int, id papershelf.PaperIdentifier) (papershelf.Paper, error)
}

// Listener receives the catalog views in the order they replace each other.
// A view replaced before it reached a listener is not delivered to it.
type Listener func(papershelf.CatalogView)

// Service caches the papers returned for the last search. The view is
// replaced on every successful search, in the order the responses arrive:
// a slow response to an older search can overwrite a newer one.
type Service struct {
	client  Client
	logger  log.Logger
	perPage int

	mu        sync.Locker
	view      papershelf.CatalogView
	lastQuery string

	dispatch *notify.Dispatcher[Listener]
}

// NewService creates the catalog. perPage is forwarded to the backend when
// positive, the backend default applies otherwise.
func NewService(c Client, logger log.Logger, perPage int) *Service {
	return &Service{
		client:  c,
		logger:  logger,
		perPage: perPage,

		mu:       &sync.Mutex{},
		dispatch: &notify.Dispatcher[Listener]{},
		view: papershelf.CatalogView{
			Papers: make([]papershelf.Paper, 0),
		},
	}
}

// Search fetches the papers matching query, the empty query listing all of
// them. On failure the current view is kept.
func (s *Service) Search(ctx context.Context, query string) ([]papershelf.Paper, error) {
	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()

	page, err := s.client.Papers(ctx, query, s.perPage)
	if err != nil {
		s.logger.Errorf("search %q failed: %v", query, err)
		return nil, classify(err, errors.Fetch)
	}

	view := papershelf.CatalogView{
		Query:  query,
		Papers: page.Papers,
		Total:  page.Total,
	}

	s.mu.Lock()
	s.view = view
	s.dispatch.Enqueue(func(l Listener) { l(copyView(view)) })
	s.mu.Unlock()

	s.logger.Debugf("search %q: %d papers", query, len(view.Papers))
	s.dispatch.Deliver()
	return copyPapers(view.Papers), nil
}

// AddPaper asks the backend to ingest the paper identified by id on behalf
// of userID. The new paper is not spliced into the view: the last search
// is run again so that the view shows what the backend stored. A failed
// refresh is logged and does not fail the add.
func (s *Service) AddPaper(ctx context.Context, userID int, id papershelf.PaperIdentifier) (papershelf.Paper, error) {
	if id.Empty() {
		return papershelf.Paper{}, errors.New("Either DOI or arXiv ID is required", errors.WithKind(errors.MissingIdentifier), errors.BadRequest())
	}
	if userID <= 0 {
		return papershelf.Paper{}, errors.New("login required", errors.WithKind(errors.NotAuthenticated), errors.Unauthorized())
	}

	id = papershelf.PaperIdentifier{
		DOI:     strings.TrimSpace(id.DOI),
		ArxivID: strings.TrimSpace(id.ArxivID),
	}

	paper, err := s.client.AddPaper(ctx, userID, id)
	if err != nil {
		s.logger.Errorf("could not add paper %+v: %v", id, err)
		return papershelf.Paper{}, classify(err, errors.Add)
	}
	s.logger.Printf("paper %d added", paper.ID)

	if _, err := s.Search(ctx, s.LastQuery()); err != nil {
		s.logger.Errorf("could not refresh catalog after adding paper %d: %v", paper.ID, err)
	}
	return paper, nil
}

func (s *Service) View() papershelf.CatalogView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyView(s.view)
}

// LastQuery is the query of the last search issued, successful or not.
func (s *Service) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

func (s *Service) Subscribe(l Listener) {
	s.dispatch.Subscribe(l)
}

func classify(err error, kind errors.Kind) error {
	if errors.Is(err, errors.Transport) {
		return err
	}
	return errors.WithKind(kind)(err)
}

func copyView(v papershelf.CatalogView) papershelf.CatalogView {
	v.Papers = copyPapers(v.Papers)
	return v
}

func copyPapers(papers []papershelf.Paper) []papershelf.Paper {
	c := make([]papershelf.Paper, len(papers))
	copy(c, papers)
	return c
}
