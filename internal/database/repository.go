package database

import (
	"context"
	"errors"

	"github.com/booksage/booksage-recommend/internal/database/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrCatalogUnavailable wraps every failure to reach or query the catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// MatchMode selects how a text field is compared against a value.
type MatchMode int

const (
	// MatchExact compares with the catalog collation (case-sensitive).
	MatchExact MatchMode = iota
	// MatchContains is a substring match that ignores ASCII case only;
	// other scripts compare as stored.
	MatchContains
)

// CatalogRepository is the read side of the book catalog used by query
// resolution, plus the counter and import writes owned by the store.
// Book listings are ordered by popularity then view count, both descending.
type CatalogRepository interface {
	AuthorsExact(ctx context.Context, name string) ([]models.AuthorCount, error)
	AuthorsContaining(ctx context.Context, fragment string, limit int) ([]models.AuthorCount, error)
	AuthorsFullText(ctx context.Context, term string, limit int) ([]models.AuthorCount, error)
	TopSubjectsByAuthor(ctx context.Context, author string, limit int) ([]models.SubjectCount, error)
	TopTitlesByAuthor(ctx context.Context, author string, limit int) ([]string, error)

	BooksByAuthor(ctx context.Context, author string, mode MatchMode, limit int) ([]models.Book, error)
	BooksBySubject(ctx context.Context, subject string, mode MatchMode, limit int) ([]models.Book, error)
	SearchBooks(ctx context.Context, keyword string, limit, offset int) ([]models.Book, error)

	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	IncrementViewCount(ctx context.Context, id string) error
	UpsertBooks(ctx context.Context, books []models.Book) (int, error)
}
