package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/app"
)

var (
	paperIdentifier papershelf.PaperIdentifier
)

func init() {
	AddPaperCommand.Flags().StringVar(&paperIdentifier.DOI, "doi", "", "DOI of the paper")
	AddPaperCommand.Flags().StringVar(&paperIdentifier.ArxivID, "arxiv", "", "arXiv id of the paper")

	RootCmd.AddCommand(&SearchCommand)
	RootCmd.AddCommand(&AddPaperCommand)
}

var SearchCommand = cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog, marking bookmarked papers",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		if err := restoreBookmarks(ctx, a); err != nil {
			return err
		}

		statuses, err := a.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			cmd.Println("No papers found")
			return nil
		}
		for _, st := range statuses {
			printPaper(cmd, st)
		}
		return nil
	}),
}

var AddPaperCommand = cobra.Command{
	Use:   "add",
	Short: "Add a paper to the catalog by DOI or arXiv id",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		a.Sessions.Restore()

		paper, err := a.AddPaper(ctx, paperIdentifier)
		if err != nil {
			return err
		}
		cmd.Printf("Added %d: %s\n", paper.ID, paper.Title)
		return nil
	}),
}

// restoreBookmarks loads the bookmarks of the persisted session, if any.
func restoreBookmarks(ctx context.Context, a *app.App) error {
	s, ok := a.Sessions.Restore()
	if !ok {
		return nil
	}

	_, err := a.Bookmarks.Load(ctx, s.UserID)
	return err
}

func printPaper(cmd *cobra.Command, st papershelf.PaperStatus) {
	mark := " "
	if st.Bookmarked {
		mark = "*"
	}

	cmd.Printf("%s %5d  %s\n", mark, st.Paper.ID, st.Paper.Title)
	if st.Paper.Authors != "" {
		cmd.Printf("         %s\n", strings.Join(st.Paper.AuthorList(), ", "))
	}
	if abstract := st.Paper.PlainAbstract(); abstract != "" {
		cmd.Printf("         %s\n", truncate(abstract, 120))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
