package papershelf

// Bookmark is a relation between a user and a paper. The paper is only
// carried along for display, bookmark status is never stored on it.
type Bookmark struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	PaperID   int    `json:"paper_id"`
	CreatedAt string `json:"created_at,omitempty"`

	Paper *Paper `json:"paper,omitempty"`
}

// BookmarkSet is the complete set of bookmarks of one user, keyed by paper
// id. The backend order is preserved.
type BookmarkSet struct {
	UserID int

	bookmarks []Bookmark
	index     map[int]int
}

// NewBookmarkSet builds the set from the backend listing. If a paper appears
// more than once only its first bookmark is kept.
func NewBookmarkSet(userID int, bookmarks []Bookmark) BookmarkSet {
	set := BookmarkSet{
		UserID:    userID,
		bookmarks: make([]Bookmark, 0, len(bookmarks)),
		index:     make(map[int]int, len(bookmarks)),
	}

	for _, b := range bookmarks {
		if _, ok := set.index[b.PaperID]; ok {
			continue
		}
		set.index[b.PaperID] = len(set.bookmarks)
		set.bookmarks = append(set.bookmarks, b)
	}
	return set
}

func (s BookmarkSet) Contains(paperID int) bool {
	_, ok := s.index[paperID]
	return ok
}

func (s BookmarkSet) Get(paperID int) (Bookmark, bool) {
	i, ok := s.index[paperID]
	if !ok {
		return Bookmark{}, false
	}
	return s.bookmarks[i], true
}

func (s BookmarkSet) Len() int {
	return len(s.bookmarks)
}

// Bookmarks returns a copy of the bookmarks in backend order.
func (s BookmarkSet) Bookmarks() []Bookmark {
	bookmarks := make([]Bookmark, len(s.bookmarks))
	copy(bookmarks, s.bookmarks)
	return bookmarks
}

// PaperIDs returns the ids of the bookmarked papers in backend order.
func (s BookmarkSet) PaperIDs() []int {
	ids := make([]int, len(s.bookmarks))
	for i, b := range s.bookmarks {
		ids[i] = b.PaperID
	}
	return ids
}
