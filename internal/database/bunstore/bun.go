package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/booksage/booksage-recommend/internal/database"
	"github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	store := &BunStore{db: bunDB}

	ctx := context.Background()
	if _, err := bunDB.NewCreateTable().Model((*models.Book)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create books table: %w", err)
	}
	for _, col := range []string{"author", "subject", "popularity"} {
		if _, err := bunDB.NewCreateIndex().
			Model((*models.Book)(nil)).
			Index("idx_books_" + col).
			IfNotExists().
			Column(col).
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to create %s index: %w", col, err)
		}
	}

	return store, nil
}

// Close releases the underlying connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) AuthorsExact(ctx context.Context, name string) (rows []models.AuthorCount, err error) {
	defer observe("authors_exact", time.Now(), &err)

	err = s.authorCounts().
		Where("b.author = ?", name).
		Scan(ctx, &rows)
	return rows, wrap("authors exact", err)
}

func (s *BunStore) AuthorsContaining(ctx context.Context, fragment string, limit int) (rows []models.AuthorCount, err error) {
	defer observe("authors_containing", time.Now(), &err)

	err = s.authorCounts().
		Where("lower(b.author) LIKE ? ESCAPE '\\'", containsPattern(fragment)).
		Limit(limit).
		Scan(ctx, &rows)
	return rows, wrap("authors containing", err)
}

// AuthorsFullText matches the term against author and title, so a book can
// surface its author even when the author field is spelled differently.
func (s *BunStore) AuthorsFullText(ctx context.Context, term string, limit int) (rows []models.AuthorCount, err error) {
	defer observe("authors_fulltext", time.Now(), &err)

	pattern := containsPattern(term)
	err = s.authorCounts().
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(b.author) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("lower(b.title) LIKE ? ESCAPE '\\'", pattern)
		}).
		Where("b.author IS NOT NULL AND b.author != ''").
		Limit(limit).
		Scan(ctx, &rows)
	return rows, wrap("authors fulltext", err)
}

func (s *BunStore) authorCounts() *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("b.author AS author").
		ColumnExpr("COUNT(*) AS book_count").
		Group("b.author").
		OrderExpr("book_count DESC").
		OrderExpr("b.author ASC")
}

func (s *BunStore) TopSubjectsByAuthor(ctx context.Context, author string, limit int) (rows []models.SubjectCount, err error) {
	defer observe("top_subjects", time.Now(), &err)

	err = s.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("b.subject AS subject").
		ColumnExpr("COUNT(*) AS book_count").
		Where("b.author = ?", author).
		Where("b.subject IS NOT NULL AND b.subject != ''").
		Group("b.subject").
		OrderExpr("book_count DESC").
		OrderExpr("b.subject ASC").
		Limit(limit).
		Scan(ctx, &rows)
	return rows, wrap("top subjects", err)
}

func (s *BunStore) TopTitlesByAuthor(ctx context.Context, author string, limit int) (titles []string, err error) {
	defer observe("top_titles", time.Now(), &err)

	err = s.db.NewSelect().
		Model((*models.Book)(nil)).
		Column("title").
		Where("b.author = ?", author).
		Order("b.popularity DESC", "b.view_count DESC").
		Limit(limit).
		Scan(ctx, &titles)
	return titles, wrap("top titles", err)
}

func (s *BunStore) BooksByAuthor(ctx context.Context, author string, mode database.MatchMode, limit int) ([]models.Book, error) {
	return s.booksWhere(ctx, "books_by_author", "b.author", author, mode, limit)
}

func (s *BunStore) BooksBySubject(ctx context.Context, subject string, mode database.MatchMode, limit int) ([]models.Book, error) {
	return s.booksWhere(ctx, "books_by_subject", "b.subject", subject, mode, limit)
}

func (s *BunStore) booksWhere(ctx context.Context, op, column, value string, mode database.MatchMode, limit int) (books []models.Book, err error) {
	defer observe(op, time.Now(), &err)

	q := s.db.NewSelect().Model(&books)
	switch mode {
	case database.MatchContains:
		q = q.Where("lower(?) LIKE ? ESCAPE '\\'", bun.Safe(column), containsPattern(value))
	default:
		q = q.Where("? = ?", bun.Safe(column), value)
	}
	err = q.Order("b.popularity DESC", "b.view_count DESC").Limit(limit).Scan(ctx)
	return books, wrap(strings.ReplaceAll(op, "_", " "), err)
}

// SearchBooks matches the keyword as a substring of title, author, subject or publisher.
func (s *BunStore) SearchBooks(ctx context.Context, keyword string, limit, offset int) (books []models.Book, err error) {
	defer observe("search_books", time.Now(), &err)

	pattern := containsPattern(keyword)
	err = s.db.NewSelect().
		Model(&books).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(b.title) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("lower(b.author) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("lower(b.subject) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("lower(b.publisher) LIKE ? ESCAPE '\\'", pattern)
		}).
		Order("b.popularity DESC", "b.view_count DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return books, wrap("search books", err)
}

func (s *BunStore) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	var err error
	defer observe("get_book", time.Now(), &err)

	book := new(models.Book)
	if err = s.db.NewSelect().Model(book).Where("b.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return nil, database.ErrNotFound
		}
		return nil, wrap("get book", err)
	}
	return book, nil
}

// IncrementViewCount bumps the popularity counter without a transaction;
// concurrent increments may be lost.
func (s *BunStore) IncrementViewCount(ctx context.Context, id string) (err error) {
	defer observe("increment_view_count", time.Now(), &err)

	_, err = s.db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("view_count = view_count + 1").
		Where("id = ?", id).
		Exec(ctx)
	return wrap("increment view count", err)
}

// UpsertBooks inserts books, replacing bibliographic fields of existing ids.
// View counts of existing rows are preserved.
func (s *BunStore) UpsertBooks(ctx context.Context, books []models.Book) (n int, err error) {
	defer observe("upsert_books", time.Now(), &err)

	if len(books) == 0 {
		return 0, nil
	}
	_, err = s.db.NewInsert().
		Model(&books).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("author = EXCLUDED.author").
		Set("publisher = EXCLUDED.publisher").
		Set("subject = EXCLUDED.subject").
		Set("language = EXCLUDED.language").
		Set("popularity = EXCLUDED.popularity").
		Exec(ctx)
	if err != nil {
		return 0, wrap("upsert books", err)
	}
	return len(books), nil
}

func observe(op string, start time.Time, err *error) {
	metrics.ObserveCatalog(op, start, *err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, database.ErrCatalogUnavailable, err)
}

// containsPattern builds a LIKE pattern matching value anywhere, with LIKE
// metacharacters escaped. SQLite's lower() only folds ASCII, so the value is
// folded the same way.
func containsPattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(asciiLower(value)) + "%"
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
