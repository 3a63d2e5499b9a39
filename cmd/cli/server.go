package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/mock"
)

var (
	serverAddr string
	seed       bool
)

func init() {
	MockServerCommand.Flags().StringVar(&serverAddr, "addr", ":5001", "address to listen on")
	MockServerCommand.Flags().BoolVar(&seed, "seed", false, "start with a demo user and a few papers")

	RootCmd.AddCommand(&MockServerCommand)
}

var MockServerCommand = cobra.Command{
	Use:   "mock-server",
	Short: "Serve an in-memory backend, for development",
	Run: func(cmd *cobra.Command, args []string) {
		backend := mock.NewBackend()
		if seed {
			seedBackend(backend)
		}

		logger.Printf("mock backend listening on %s", serverAddr)
		logger.Fatal(http.ListenAndServe(serverAddr, backend))
	},
}

func seedBackend(b *mock.Backend) {
	if _, err := b.AddUser("demo", "demo@example.com", "demo"); err != nil {
		logger.Fatal("could not seed user: ", err)
	}

	b.AddPaper(papershelf.Paper{
		Title:         "Attention Is All You Need",
		Authors:       "Ashish Vaswani, Noam Shazeer, Niki Parmar",
		Journal:       "arXiv",
		ArxivID:       "1706.03762",
		PublishedDate: "2017-06-12",
		Abstract:      "<p>The dominant sequence transduction models are based on complex recurrent or convolutional neural networks.</p>",
	})
	b.AddPaper(papershelf.Paper{
		Title:         "Nanometre-scale thermometry in a living cell",
		Authors:       "G. Kucsko, P. C. Maurer, N. Y. Yao",
		Journal:       "Nature",
		DOI:           "10.1038/nature12373",
		PublishedDate: "2013-08-01",
	})
}
