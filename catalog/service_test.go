package catalog

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
	"github.com/bobinette/papershelf/mock"
)

func createService(t *testing.T) (*Service, *mock.Backend, func()) {
	backend := mock.NewBackend()
	srv := httptest.NewServer(backend)

	client, err := clients.NewClient(srv.Client(), srv.URL+"/api", log.NewNop())
	require.NoError(t, err)

	return NewService(client, log.NewNop(), 0), backend, srv.Close
}

func TestService_SearchEmpty(t *testing.T) {
	service, _, f := createService(t)
	defer f()

	papers, err := service.Search(context.Background(), "transformer")
	require.NoError(t, err)
	assert.NotNil(t, papers)
	assert.Empty(t, papers)

	view := service.View()
	assert.Equal(t, "transformer", view.Query)
	assert.Empty(t, view.Papers)
}

func TestService_SearchKeepsBackendOrder(t *testing.T) {
	service, backend, f := createService(t)
	defer f()

	titles := []string{"Graph attention networks", "Attention is all you need", "Neural machine translation by jointly learning to align"}
	for _, title := range titles {
		backend.AddPaper(papershelf.Paper{Title: title})
	}

	papers, err := service.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, papers, 3)
	// The backend lists the newest papers first
	assert.Equal(t, titles[2], papers[0].Title)
	assert.Equal(t, titles[1], papers[1].Title)
	assert.Equal(t, titles[0], papers[2].Title)

	papers, err = service.Search(context.Background(), "attention")
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, titles[1], papers[0].Title)

	view := service.View()
	assert.Equal(t, "attention", view.Query)
	assert.Equal(t, papers, view.Papers)
	assert.Equal(t, 2, view.Total)
}

func TestService_SearchFailureKeepsView(t *testing.T) {
	service, backend, f := createService(t)

	backend.AddPaper(papershelf.Paper{Title: "Attention is all you need"})
	_, err := service.Search(context.Background(), "")
	require.NoError(t, err)

	f()
	_, err = service.Search(context.Background(), "anything")
	errors.AssertKind(t, err, errors.Transport)

	view := service.View()
	assert.Equal(t, "", view.Query)
	assert.Len(t, view.Papers, 1)
	assert.Equal(t, "anything", service.LastQuery())
}

func TestService_AddPaperRefreshesLastQuery(t *testing.T) {
	service, backend, f := createService(t)
	defer f()

	ada, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)

	_, err = service.Search(context.Background(), "")
	require.NoError(t, err)

	views := make([]papershelf.CatalogView, 0)
	service.Subscribe(func(v papershelf.CatalogView) { views = append(views, v) })

	paper, err := service.AddPaper(context.Background(), ada.UserID, papershelf.PaperIdentifier{DOI: "10.1038/nature12373"})
	require.NoError(t, err)
	assert.Equal(t, "10.1038/nature12373", paper.DOI)

	require.Len(t, views, 1, "adding a paper should refresh the catalog once")
	found := false
	for _, p := range service.View().Papers {
		if p.DOI == "10.1038/nature12373" {
			found = true
		}
	}
	assert.True(t, found, "refreshed catalog should include the new paper")
}

func TestService_AddPaperKeepsFilteredQuery(t *testing.T) {
	service, backend, f := createService(t)
	defer f()

	ada, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)
	backend.AddPaper(papershelf.Paper{Title: "Quantum thermometry"})

	_, err = service.Search(context.Background(), "thermometry")
	require.NoError(t, err)

	_, err = service.AddPaper(context.Background(), ada.UserID, papershelf.PaperIdentifier{ArxivID: "1706.03762"})
	require.NoError(t, err)

	view := service.View()
	assert.Equal(t, "thermometry", view.Query, "the last query should be run again, not an unfiltered listing")
	require.Len(t, view.Papers, 1)
	assert.Equal(t, "Quantum thermometry", view.Papers[0].Title)
}

func TestService_AddPaperLocalFailures(t *testing.T) {
	service, backend, f := createService(t)
	defer f()

	_, err := service.AddPaper(context.Background(), 1, papershelf.PaperIdentifier{DOI: " "})
	errors.AssertKind(t, err, errors.MissingIdentifier)

	_, err = service.AddPaper(context.Background(), 0, papershelf.PaperIdentifier{DOI: "10.1038/nature12373"})
	errors.AssertKind(t, err, errors.NotAuthenticated)

	assert.Equal(t, 0, backend.Calls())
}

func TestService_AddPaperRejected(t *testing.T) {
	service, backend, f := createService(t)
	defer f()

	backend.Resolver = func(papershelf.PaperIdentifier) (papershelf.Paper, bool) { return papershelf.Paper{}, false }
	ada, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)

	_, err = service.AddPaper(context.Background(), ada.UserID, papershelf.PaperIdentifier{DOI: "10.0000/unknown"})
	errors.AssertKind(t, err, errors.Add)
	assert.Equal(t, "Could not fetch paper information", errors.Message(err))
}

// stubClient serves canned pages and can hold Papers calls until released.
type stubClient struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	pages   map[string]clients.PaperPage
	failAll bool
	added   papershelf.Paper
}

func (c *stubClient) Papers(ctx context.Context, search string, perPage int) (clients.PaperPage, error) {
	c.mu.Lock()
	gate := c.gates[search]
	failAll := c.failAll
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failAll {
		return clients.PaperPage{}, errors.New("boom", errors.WithCode(500))
	}
	return c.pages[search], nil
}

func (c *stubClient) AddPaper(ctx context.Context, userID int, id papershelf.PaperIdentifier) (papershelf.Paper, error) {
	c.mu.Lock()
	c.failAll = true
	c.mu.Unlock()
	return c.added, nil
}

func TestService_AddPaperRefreshFailure(t *testing.T) {
	client := &stubClient{added: papershelf.Paper{ID: 3, DOI: "10.1038/nature12373"}}
	service := NewService(client, log.NewNop(), 0)

	paper, err := service.AddPaper(context.Background(), 1, papershelf.PaperIdentifier{DOI: "10.1038/nature12373"})
	require.NoError(t, err, "a failed refresh should not fail the add")
	assert.Equal(t, 3, paper.ID)
}

func TestService_LastCompletedSearchWins(t *testing.T) {
	client := &stubClient{
		gates: map[string]chan struct{}{
			"old": make(chan struct{}),
			"new": make(chan struct{}),
		},
		pages: map[string]clients.PaperPage{
			"old": {Papers: []papershelf.Paper{{ID: 1, Title: "old"}}},
			"new": {Papers: []papershelf.Paper{{ID: 2, Title: "new"}}},
		},
	}
	service := NewService(client, log.NewNop(), 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); service.Search(context.Background(), "old") }()
	go func() { defer wg.Done(); service.Search(context.Background(), "new") }()

	// The newer search answers first, the older one last
	close(client.gates["new"])
	require.Eventually(t, func() bool { return service.View().Query == "new" }, time.Second, time.Millisecond)
	close(client.gates["old"])
	wg.Wait()

	assert.Equal(t, "old", service.View().Query)
	assert.Equal(t, "old", service.View().Papers[0].Title)
}

func TestService_ListenersFollowViewOrder(t *testing.T) {
	client := &stubClient{
		pages: map[string]clients.PaperPage{
			"first":  {Papers: []papershelf.Paper{{ID: 1, Title: "first"}}},
			"second": {Papers: []papershelf.Paper{{ID: 2, Title: "second"}}},
		},
	}
	service := NewService(client, log.NewNop(), 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	service.Subscribe(func(v papershelf.CatalogView) {
		if v.Query == "first" {
			close(entered)
			<-release
		}
	})

	var mu sync.Mutex
	queries := make([]string, 0)
	service.Subscribe(func(v papershelf.CatalogView) {
		mu.Lock()
		defer mu.Unlock()
		queries = append(queries, v.Query)
	})

	done := make(chan error)
	go func() {
		_, err := service.Search(context.Background(), "first")
		done <- err
	}()

	<-entered
	_, err := service.Search(context.Background(), "second")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "second", service.View().Query)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, queries, "the listeners should end on the current view")
}
