package mock

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobinette/papershelf"
)

const defaultPerPage = 10

// Resolver looks up the metadata of a paper from its identifier. It stands
// for the DOI and arXiv lookups of the real backend.
type Resolver func(papershelf.PaperIdentifier) (papershelf.Paper, bool)

type user struct {
	session      papershelf.Session
	passwordHash []byte
}

// Backend is an in-memory implementation of the papershelf HTTP API. It is
// used by the tests and by the mock-server command.
type Backend struct {
	// Resolver is used when a paper is added. DefaultResolver if nil.
	Resolver Resolver

	mu        sync.Mutex
	users     map[int]*user
	papers    []papershelf.Paper
	bookmarks []papershelf.Bookmark
	lastID    int
	calls     int
	before    func(method, path string)

	router *gin.Engine
}

func NewBackend() *Backend {
	gin.SetMode(gin.ReleaseMode) // avoid unnecessary log

	b := &Backend{
		users: make(map[int]*user),
	}

	router := gin.New()
	router.Use(b.intercept)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	api := router.Group("/api")
	api.GET("/papers", b.listPapers)
	api.POST("/papers", b.addPaper)
	api.GET("/papers/:id", b.getPaper)
	api.POST("/login", b.login)
	api.POST("/register", b.register)
	api.GET("/profile/:id", b.getProfile)
	api.PUT("/profile/:id", b.updateProfile)
	api.GET("/users/:id/bookmarks", b.listBookmarks)
	api.POST("/users/:id/bookmarks", b.addBookmark)
	api.DELETE("/users/:id/bookmarks/:paperID", b.deleteBookmark)

	b.router = router
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Calls returns the number of requests received so far.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// AddUser registers a user directly, as a fixture.
func (b *Backend) AddUser(username, email, password string) (papershelf.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertUser(username, email, password, "", "")
}

// AddPaper stores a paper directly, as a fixture. The id and creation date
// are set by the backend.
func (b *Backend) AddPaper(p papershelf.Paper) papershelf.Paper {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertPaper(p)
}

// Bookmarked reports whether the backend holds the bookmark.
func (b *Backend) Bookmarked(userID, paperID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findBookmark(userID, paperID) >= 0
}

// Bookmark stores a bookmark directly, as a fixture.
func (b *Backend) Bookmark(userID, paperID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findBookmark(userID, paperID) < 0 {
		b.insertBookmark(userID, paperID)
	}
}

// SetBefore installs f to be called before each request is handled,
// outside of any lock. Tests use it to hold requests and reorder responses.
func (b *Backend) SetBefore(f func(method, path string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.before = f
}

// Unbookmark removes a bookmark directly, as a fixture.
func (b *Backend) Unbookmark(userID, paperID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.findBookmark(userID, paperID); i >= 0 {
		b.bookmarks = append(b.bookmarks[:i], b.bookmarks[i+1:]...)
	}
}

// DefaultResolver makes up the metadata from the identifier.
func DefaultResolver(id papershelf.PaperIdentifier) (papershelf.Paper, bool) {
	if id.DOI != "" {
		return papershelf.Paper{
			Title:         "Resolved " + id.DOI,
			Authors:       "Unknown Author",
			Journal:       "Journal of Mocks",
			PublishedDate: "2013-08-01",
		}, true
	}

	return papershelf.Paper{
		Title:         "Resolved " + id.ArxivID,
		Authors:       "Unknown Author",
		Journal:       "arXiv",
		PublishedDate: "2017-06-12",
	}, true
}

// intercept counts the request and runs the hook installed by SetBefore.
func (b *Backend) intercept(c *gin.Context) {
	b.mu.Lock()
	b.calls++
	before := b.before
	b.mu.Unlock()

	if before != nil {
		before(c.Request.Method, c.Request.URL.Path)
	}
	c.Next()
}

func (b *Backend) listPapers(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := intQuery(c, "per_page", defaultPerPage)
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	search := strings.ToLower(c.Query("search"))

	b.mu.Lock()
	matches := make([]papershelf.Paper, 0)
	// Newest first
	for i := len(b.papers) - 1; i >= 0; i-- {
		p := b.papers[i]
		if search == "" ||
			strings.Contains(strings.ToLower(p.Title), search) ||
			strings.Contains(strings.ToLower(p.Authors), search) ||
			strings.Contains(strings.ToLower(p.Abstract), search) {
			matches = append(matches, p)
		}
	}
	b.mu.Unlock()

	total := len(matches)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"papers":       matches[start:end],
		"total":        total,
		"pages":        (total + perPage - 1) / perPage,
		"current_page": page,
	})
}

func (b *Backend) getPaper(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.papers {
		if p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
}

func (b *Backend) addPaper(c *gin.Context) {
	var body struct {
		UserID  int    `json:"user_id"`
		DOI     string `json:"doi"`
		ArxivID string `json:"arxiv_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	id := papershelf.PaperIdentifier{DOI: body.DOI, ArxivID: body.ArxivID}
	if id.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either DOI or arXiv ID is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.papers {
		if (id.DOI != "" && p.DOI == id.DOI) || (id.DOI == "" && p.ArxivID == id.ArxivID) {
			c.JSON(http.StatusOK, gin.H{"message": "Paper already exists", "paper": p})
			return
		}
	}

	resolve := b.Resolver
	if resolve == nil {
		resolve = DefaultResolver
	}
	p, ok := resolve(id)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not fetch paper information"})
		return
	}

	p.DOI = id.DOI
	p.ArxivID = id.ArxivID
	p.AddedBy = body.UserID
	p = b.insertPaper(p)
	c.JSON(http.StatusCreated, gin.H{"message": "Paper added successfully", "paper": p})
}

func (b *Backend) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	b.mu.Lock()
	u := b.findUser(body.Username)
	b.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": u.session})
}

func (b *Backend) register(c *gin.Context) {
	var body struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		Affiliation  string `json:"affiliation"`
		FieldOfStudy string `json:"field_of_study"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username, email, and password are required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findUser(body.Username) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		return
	}
	for _, u := range b.users {
		if u.session.Email == body.Email {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
	}

	s, err := b.insertUser(body.Username, body.Email, body.Password, body.Affiliation, body.FieldOfStudy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": s})
}

func (b *Backend) getProfile(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	c.JSON(http.StatusOK, u.session)
}

func (b *Backend) updateProfile(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Affiliation  string `json:"affiliation"`
		FieldOfStudy string `json:"field_of_study"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	if body.Affiliation != "" {
		u.session.Affiliation = body.Affiliation
	}
	if body.FieldOfStudy != "" {
		u.session.FieldOfStudy = body.FieldOfStudy
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u.session})
}

func (b *Backend) listBookmarks(c *gin.Context) {
	userID, ok := intParam(c, "id")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bookmarks := make([]papershelf.Bookmark, 0)
	for _, bm := range b.bookmarks {
		if bm.UserID == userID {
			bm.Paper = b.paper(bm.PaperID)
			bookmarks = append(bookmarks, bm)
		}
	}
	// Newest first
	sort.SliceStable(bookmarks, func(i, j int) bool { return bookmarks[i].ID > bookmarks[j].ID })
	c.JSON(http.StatusOK, bookmarks)
}

func (b *Backend) addBookmark(c *gin.Context) {
	userID, ok := intParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		PaperID int `json:"paper_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PaperID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paper ID is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findBookmark(userID, body.PaperID) >= 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Paper already bookmarked"})
		return
	}

	bm := b.insertBookmark(userID, body.PaperID)
	bm.Paper = b.paper(bm.PaperID)
	c.JSON(http.StatusCreated, gin.H{"message": "Bookmark added successfully", "bookmark": bm})
}

func (b *Backend) deleteBookmark(c *gin.Context) {
	userID, ok := intParam(c, "id")
	if !ok {
		return
	}
	paperID, ok := intParam(c, "paperID")
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.findBookmark(userID, paperID)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	b.bookmarks = append(b.bookmarks[:i], b.bookmarks[i+1:]...)
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed successfully"})
}

// The helpers below expect b.mu to be held.

func (b *Backend) nextID() int {
	b.lastID++
	return b.lastID
}

func (b *Backend) insertUser(username, email, password, affiliation, field string) (papershelf.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return papershelf.Session{}, err
	}

	u := &user{
		session: papershelf.Session{
			UserID:       b.nextID(),
			Username:     username,
			Email:        email,
			Affiliation:  affiliation,
			FieldOfStudy: field,
			CreatedAt:    timestamp(),
		},
		passwordHash: hash,
	}
	b.users[u.session.UserID] = u
	return u.session, nil
}

func (b *Backend) findUser(username string) *user {
	for _, u := range b.users {
		if u.session.Username == username {
			return u
		}
	}
	return nil
}

func (b *Backend) insertPaper(p papershelf.Paper) papershelf.Paper {
	p.ID = b.nextID()
	p.CreatedAt = timestamp()
	b.papers = append(b.papers, p)
	return p
}

func (b *Backend) paper(id int) *papershelf.Paper {
	for _, p := range b.papers {
		if p.ID == id {
			p := p
			return &p
		}
	}
	return nil
}

func (b *Backend) insertBookmark(userID, paperID int) papershelf.Bookmark {
	bm := papershelf.Bookmark{
		ID:        b.nextID(),
		UserID:    userID,
		PaperID:   paperID,
		CreatedAt: timestamp(),
	}
	b.bookmarks = append(b.bookmarks, bm)
	return bm
}

func (b *Backend) findBookmark(userID, paperID int) int {
	for i, bm := range b.bookmarks {
		if bm.UserID == userID && bm.PaperID == paperID {
			return i
		}
	}
	return -1
}

func intParam(c *gin.Context, key string) (int, bool) {
	v, err := strconv.Atoi(c.Param(key))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("invalid %s", key)})
		return 0, false
	}
	return v, true
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}
