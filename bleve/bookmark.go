package bleve

import (
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"github.com/bobinette/papershelf"
)

// BookmarkIndex is an in-memory full text index over the papers of a
// bookmark set. It is rebuilt from scratch every time the set is replaced.
type BookmarkIndex struct {
	mu    sync.Locker
	index bleve.Index
	set   papershelf.BookmarkSet
}

func NewBookmarkIndex() (*BookmarkIndex, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, err
	}

	return &BookmarkIndex{
		mu:    &sync.Mutex{},
		index: index,
		set:   papershelf.NewBookmarkSet(0, nil),
	}, nil
}

func indexMapping() mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName

	authors := bleve.NewTextFieldMapping()
	authors.Analyzer = simple.Name

	journal := bleve.NewTextFieldMapping()
	journal.Analyzer = simple.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", title)
	doc.AddFieldMappingsAt("authors", authors)
	doc.AddFieldMappingsAt("journal", journal)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Replace indexes the papers of set in place of the previous ones.
func (s *BookmarkIndex) Replace(set papershelf.BookmarkSet) error {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return err
	}

	batch := index.NewBatch()
	for _, b := range set.Bookmarks() {
		if b.Paper == nil {
			continue
		}

		data := map[string]interface{}{
			"title":   b.Paper.Title,
			"authors": b.Paper.Authors,
			"journal": b.Paper.Journal,
		}
		if err := batch.Index(strconv.Itoa(b.PaperID), data); err != nil {
			index.Close()
			return err
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = index
	s.set = set
	s.mu.Unlock()

	return old.Close()
}

// Search returns the bookmarks whose paper title, authors or journal match
// every word of q, by prefix. A query without words returns every bookmark,
// including those whose paper is unknown. The bookmarks are returned in the
// order of the set.
func (s *BookmarkIndex) Search(q string) ([]papershelf.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set.Len() == 0 {
		return make([]papershelf.Bookmark, 0), nil
	}

	bq := s.searchWords(q)
	if bq == nil {
		return s.set.Bookmarks(), nil
	}

	searchRequest := bleve.NewSearchRequest(bq)
	searchRequest.Size = s.set.Len()

	searchResults, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	matched := make(map[int]bool, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			return nil, err
		}
		matched[id] = true
	}

	bookmarks := make([]papershelf.Bookmark, 0, len(matched))
	for _, b := range s.set.Bookmarks() {
		if matched[b.PaperID] {
			bookmarks = append(bookmarks, b)
		}
	}
	return bookmarks, nil
}

func (s *BookmarkIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

func (s *BookmarkIndex) searchWords(queryString string) query.Query {
	words := strings.Fields(queryString)

	ands := make([]query.Query, 0, len(words))
	for _, word := range words {
		ands = append(ands, orQ(
			s.prefixQuery(word, "title", en.AnalyzerName),
			s.prefixQuery(word, "authors", simple.Name),
			s.prefixQuery(word, "journal", simple.Name),
		))
	}

	return andQ(ands...)
}

// prefixQuery analyzes word the way field is indexed, so that stemming
// applies to both sides.
func (s *BookmarkIndex) prefixQuery(word, field, analyzerName string) query.Query {
	analyzer := s.index.Mapping().AnalyzerNamed(analyzerName)
	tokens := analyzer.Analyze([]byte(word))
	if len(tokens) == 0 {
		return nil
	}

	conjuncs := make([]query.Query, len(tokens))
	for i, token := range tokens {
		q := query.NewPrefixQuery(string(token.Term))
		q.SetField(field)
		conjuncs[i] = q
	}
	return query.NewConjunctionQuery(conjuncs)
}

func andQ(qs ...query.Query) query.Query {
	ands := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q != nil {
			ands = append(ands, q)
		}
	}

	if len(ands) == 0 {
		return nil
	}
	return query.NewConjunctionQuery(ands)
}

func orQ(qs ...query.Query) query.Query {
	ors := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q != nil {
			ors = append(ors, q)
		}
	}

	if len(ors) == 0 {
		return nil
	}
	return query.NewDisjunctionQuery(ors)
}
