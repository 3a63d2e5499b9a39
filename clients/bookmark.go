package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobinette/papershelf"
)

func (c *Client) Bookmarks(ctx context.Context, userID int) ([]papershelf.Bookmark, error) {
	bookmarks := make([]papershelf.Bookmark, 0)
	err := c.do(ctx, request{Method: http.MethodGet, Path: bookmarksPath(userID)}, &bookmarks)
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// CreateBookmark bookmarks the paper. The backend answers without a bookmark
// when it already existed, the zero value is returned in that case.
func (c *Client) CreateBookmark(ctx context.Context, userID, paperID int) (papershelf.Bookmark, error) {
	body := map[string]int{"paper_id": paperID}

	var res struct {
		Message  string               `json:"message"`
		Bookmark *papershelf.Bookmark `json:"bookmark"`
	}
	err := c.do(ctx, request{Method: http.MethodPost, Path: bookmarksPath(userID), Body: body}, &res)
	if err != nil {
		return papershelf.Bookmark{}, err
	}
	if res.Bookmark == nil {
		return papershelf.Bookmark{}, nil
	}
	return *res.Bookmark, nil
}

func (c *Client) DeleteBookmark(ctx context.Context, userID, paperID int) error {
	path := fmt.Sprintf("%s/%d", bookmarksPath(userID), paperID)
	return c.do(ctx, request{Method: http.MethodDelete, Path: path}, nil)
}

func bookmarksPath(userID int) string {
	return fmt.Sprintf("/users/%d/bookmarks", userID)
}
