package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bobinette/papershelf/app"
	"github.com/bobinette/papershelf/errors"
)

var (
	bookmarkQuery string
)

func init() {
	BookmarksCommand.Flags().StringVar(&bookmarkQuery, "q", "", "filter on title, authors and journal")

	RootCmd.AddCommand(&BookmarkCommand)
	RootCmd.AddCommand(&BookmarksCommand)
}

var BookmarkCommand = cobra.Command{
	Use:   "bookmark <paper id>",
	Short: "Bookmark a paper, or remove the bookmark if it is already there",
	Args:  cobra.ExactArgs(1),
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		paperID, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.New("invalid paper id", errors.WithKind(errors.Validation), errors.WithCause(err))
		}

		// The local set decides between adding and removing
		if err := restoreBookmarks(ctx, a); err != nil {
			return err
		}

		bookmarked, err := a.ToggleBookmark(ctx, paperID)
		if err != nil {
			return err
		}

		if bookmarked {
			cmd.Printf("Paper %d bookmarked\n", paperID)
		} else {
			cmd.Printf("Bookmark on paper %d removed\n", paperID)
		}
		return nil
	}),
}

var BookmarksCommand = cobra.Command{
	Use:   "bookmarks",
	Short: "List the bookmarks of the current user",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		if _, ok := a.Sessions.Restore(); !ok {
			return errors.New("login required", errors.WithKind(errors.NotAuthenticated))
		}
		if err := restoreBookmarks(ctx, a); err != nil {
			return err
		}

		bookmarks, err := a.SearchBookmarks(bookmarkQuery)
		if err != nil {
			return err
		}

		if len(bookmarks) == 0 {
			cmd.Println("No bookmarks")
			return nil
		}
		for _, b := range bookmarks {
			title := "(unknown paper)"
			if b.Paper != nil {
				title = b.Paper.Title
			}
			cmd.Printf("%5d  %s\n", b.PaperID, title)
		}
		return nil
	}),
}
