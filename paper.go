package papershelf

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Paper is immutable once fetched: the client never edits it, only the
// backend authors new ones.
type Paper struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`

	PublishedDate string `json:"published_date,omitempty"`
	Journal       string `json:"journal,omitempty"`
	Abstract      string `json:"abstract,omitempty"`
	AISummary     string `json:"ai_summary,omitempty"`

	// External ids
	DOI     string `json:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	AddedBy   int    `json:"added_by,omitempty"`
}

// AuthorList splits the comma separated authors of the paper.
func (p Paper) AuthorList() []string {
	authors := make([]string, 0)
	for _, a := range strings.Split(p.Authors, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}

// PlainAbstract returns the abstract without the JATS or HTML markup DOI
// metadata usually comes with.
func (p Paper) PlainAbstract() string {
	if !strings.Contains(p.Abstract, "<") {
		return strings.TrimSpace(p.Abstract)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Abstract))
	if err != nil {
		return strings.TrimSpace(p.Abstract)
	}

	parts := make([]string, 0)
	collectText(doc.Selection, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			*parts = append(*parts, c.Text())
			return
		}
		collectText(c, parts)
	})
}

// PaperIdentifier holds the alternate keys used to ingest a paper. The
// backend resolves the metadata and deduplicates on them.
type PaperIdentifier struct {
	DOI     string `json:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty"`
}

func (id PaperIdentifier) Empty() bool {
	return strings.TrimSpace(id.DOI) == "" && strings.TrimSpace(id.ArxivID) == ""
}

// CatalogView is the result of the last successful search. It is replaced
// as a whole, never merged.
type CatalogView struct {
	Query  string  `json:"query"`
	Papers []Paper `json:"papers"`
	Total  int     `json:"total"`
}

// PaperStatus is a paper along with its derived bookmark status.
type PaperStatus struct {
	Paper      Paper
	Bookmarked bool
}
