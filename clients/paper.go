package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bobinette/papershelf"
)

// PaperPage is one page of the paper listing, in backend order.
type PaperPage struct {
	Papers      []papershelf.Paper `json:"papers"`
	Total       int                `json:"total"`
	Pages       int                `json:"pages"`
	CurrentPage int                `json:"current_page"`
}

// Papers lists the papers matching search. An empty search lists all of
// them. perPage is only sent when positive.
func (c *Client) Papers(ctx context.Context, search string, perPage int) (PaperPage, error) {
	qs := url.Values{}
	qs.Set("search", search)
	if perPage > 0 {
		qs.Set("per_page", strconv.Itoa(perPage))
	}

	var page PaperPage
	err := c.do(ctx, request{Method: http.MethodGet, Path: "/papers", Query: qs}, &page)
	if err != nil {
		return PaperPage{}, err
	}
	if page.Papers == nil {
		page.Papers = make([]papershelf.Paper, 0)
	}
	return page, nil
}

type addPaperRequest struct {
	UserID  int    `json:"user_id"`
	DOI     string `json:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty"`
}

// AddPaper asks the backend to ingest the paper. When the paper already
// exists the stored one is returned.
func (c *Client) AddPaper(ctx context.Context, userID int, id papershelf.PaperIdentifier) (papershelf.Paper, error) {
	body := addPaperRequest{
		UserID:  userID,
		DOI:     id.DOI,
		ArxivID: id.ArxivID,
	}

	var res struct {
		Message string           `json:"message"`
		Paper   papershelf.Paper `json:"paper"`
	}
	err := c.do(ctx, request{Method: http.MethodPost, Path: "/papers", Body: body}, &res)
	if err != nil {
		return papershelf.Paper{}, err
	}
	return res.Paper, nil
}
