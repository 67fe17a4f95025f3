package query

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/booksage/booksage-recommend/internal/database"
	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/repository"
)

type mockLLMClient struct {
	resp  string
	err   error
	calls int
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.resp, m.err
}
func (m *mockLLMClient) Name() string { return "mock" }

type mockTaskRouter struct {
	client repository.LLMClient
}

func (m *mockTaskRouter) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	return m.client
}

type mockRanker struct {
	outcome RankingOutcome
	calls   int
	got     int
}

func (m *mockRanker) Rank(ctx context.Context, query string, candidates []dbmodels.Book) RankingOutcome {
	m.calls++
	m.got = len(candidates)
	return m.outcome
}

// mockCatalog is an in-memory CatalogRepository with the ordering rules of
// the real store. It records which subjects were queried.
type mockCatalog struct {
	mu       sync.Mutex
	books    []dbmodels.Book
	err      error
	subjects []string
	calls    map[string]int
}

func newMockCatalog(books ...dbmodels.Book) *mockCatalog {
	return &mockCatalog{books: books, calls: map[string]int{}}
}

// record counts the call and fails like a driver would once ctx is done.
func (m *mockCatalog) record(ctx context.Context, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

func (m *mockCatalog) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func contains(field, value string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), strings.ToLower(value))
}

func (m *mockCatalog) authorCounts(keep func(b dbmodels.Book) bool, limit int) []dbmodels.AuthorCount {
	counts := map[string]int{}
	for _, b := range m.books {
		if b.Author != "" && keep(b) {
			counts[b.Author]++
		}
	}
	var rows []dbmodels.AuthorCount
	for a, n := range counts {
		rows = append(rows, dbmodels.AuthorCount{Author: a, BookCount: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BookCount != rows[j].BookCount {
			return rows[i].BookCount > rows[j].BookCount
		}
		return rows[i].Author < rows[j].Author
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (m *mockCatalog) filterBooks(keep func(b dbmodels.Book) bool, limit, offset int) []dbmodels.Book {
	var out []dbmodels.Book
	for _, b := range m.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		return out[i].ViewCount > out[j].ViewCount
	})
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mockCatalog) AuthorsExact(ctx context.Context, name string) ([]dbmodels.AuthorCount, error) {
	if err := m.record(ctx, "authors_exact"); err != nil {
		return nil, err
	}
	return m.authorCounts(func(b dbmodels.Book) bool { return b.Author == name }, 0), nil
}

func (m *mockCatalog) AuthorsContaining(ctx context.Context, fragment string, limit int) ([]dbmodels.AuthorCount, error) {
	if err := m.record(ctx, "authors_containing"); err != nil {
		return nil, err
	}
	return m.authorCounts(func(b dbmodels.Book) bool { return contains(b.Author, fragment) }, limit), nil
}

func (m *mockCatalog) AuthorsFullText(ctx context.Context, term string, limit int) ([]dbmodels.AuthorCount, error) {
	if err := m.record(ctx, "authors_fulltext"); err != nil {
		return nil, err
	}
	return m.authorCounts(func(b dbmodels.Book) bool { return contains(b.Author, term) || contains(b.Title, term) }, limit), nil
}

func (m *mockCatalog) TopSubjectsByAuthor(ctx context.Context, author string, limit int) ([]dbmodels.SubjectCount, error) {
	if err := m.record(ctx, "top_subjects"); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, b := range m.books {
		if b.Author == author && b.Subject != "" {
			counts[b.Subject]++
		}
	}
	var rows []dbmodels.SubjectCount
	for s, n := range counts {
		rows = append(rows, dbmodels.SubjectCount{Subject: s, BookCount: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BookCount != rows[j].BookCount {
			return rows[i].BookCount > rows[j].BookCount
		}
		return rows[i].Subject < rows[j].Subject
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockCatalog) TopTitlesByAuthor(ctx context.Context, author string, limit int) ([]string, error) {
	if err := m.record(ctx, "top_titles"); err != nil {
		return nil, err
	}
	var titles []string
	for _, b := range m.filterBooks(func(b dbmodels.Book) bool { return b.Author == author }, limit, 0) {
		titles = append(titles, b.Title)
	}
	return titles, nil
}

func (m *mockCatalog) BooksByAuthor(ctx context.Context, author string, mode database.MatchMode, limit int) ([]dbmodels.Book, error) {
	if err := m.record(ctx, "books_by_author"); err != nil {
		return nil, err
	}
	return m.filterBooks(func(b dbmodels.Book) bool {
		if mode == database.MatchContains {
			return contains(b.Author, author)
		}
		return b.Author == author
	}, limit, 0), nil
}

func (m *mockCatalog) BooksBySubject(ctx context.Context, subject string, mode database.MatchMode, limit int) ([]dbmodels.Book, error) {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.mu.Unlock()
	if err := m.record(ctx, "books_by_subject"); err != nil {
		return nil, err
	}
	return m.filterBooks(func(b dbmodels.Book) bool {
		if mode == database.MatchContains {
			return contains(b.Subject, subject)
		}
		return b.Subject == subject
	}, limit, 0), nil
}

func (m *mockCatalog) SearchBooks(ctx context.Context, keyword string, limit, offset int) ([]dbmodels.Book, error) {
	if err := m.record(ctx, "search_books"); err != nil {
		return nil, err
	}
	return m.filterBooks(func(b dbmodels.Book) bool {
		return contains(b.Title, keyword) || contains(b.Author, keyword) || contains(b.Subject, keyword) || contains(b.Publisher, keyword)
	}, limit, offset), nil
}

func (m *mockCatalog) GetBookByID(ctx context.Context, id string) (*dbmodels.Book, error) {
	if err := m.record(ctx, "get_book"); err != nil {
		return nil, err
	}
	for i := range m.books {
		if m.books[i].ID == id {
			b := m.books[i]
			return &b, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockCatalog) IncrementViewCount(ctx context.Context, id string) error {
	return m.record(ctx, "increment_view_count")
}

func (m *mockCatalog) UpsertBooks(ctx context.Context, books []dbmodels.Book) (int, error) {
	if err := m.record(ctx, "upsert_books"); err != nil {
		return 0, err
	}
	m.books = append(m.books, books...)
	return len(books), nil
}

// sampleCatalog is a small mixed-script catalog shared by the tests.
func sampleCatalog() []dbmodels.Book {
	return []dbmodels.Book{
		{ID: "lx1", Title: "吶喊", Author: "魯迅", Subject: "小說", Popularity: 95, ViewCount: 100},
		{ID: "lx2", Title: "彷徨", Author: "魯迅", Subject: "小說", Popularity: 90, ViewCount: 80},
		{ID: "lx3", Title: "朝花夕拾", Author: "魯迅", Subject: "散文", Popularity: 85, ViewCount: 60},
		{ID: "jy1", Title: "射鵰英雄傳", Author: "金庸", Subject: "武俠小說", Popularity: 99, ViewCount: 300},
		{ID: "jy2", Title: "天龍八部", Author: "金庸", Subject: "武俠小說", Popularity: 97, ViewCount: 250},
		{ID: "cl1", Title: "三體II：黑暗森林（典藏版）", Author: "劉慈欣", Subject: "科幻小說", Popularity: 96, ViewCount: 400},
		{ID: "hl1", Title: "活着", Author: "余华", Subject: "小說", Popularity: 93, ViewCount: 500},
		{ID: "hl2", Title: "許三觀賣血記", Author: "余华", Subject: "小說", Popularity: 93, ViewCount: 200},
		{ID: "m1", Title: "數學之美", Author: "吳軍", Subject: "數學", Popularity: 88, ViewCount: 70},
		{ID: "m2", Title: "什麼是數學", Author: "柯朗", Subject: "數學", Popularity: 80, ViewCount: 90},
		{ID: "h1", Title: "萬曆十五年", Author: "黃仁宇", Subject: "歷史", Popularity: 91, ViewCount: 150},
		{ID: "o1", Title: "1984", Author: "George Orwell", Subject: "Fiction", Popularity: 89, ViewCount: 120},
		{ID: "o2", Title: "Animal Farm", Author: "George Orwell", Subject: "Fiction", Popularity: 84, ViewCount: 110},
	}
}

func sampleBook(id, title, author, subject string) dbmodels.Book {
	return dbmodels.Book{ID: id, Title: title, Author: author, Subject: subject, Popularity: 50}
}
