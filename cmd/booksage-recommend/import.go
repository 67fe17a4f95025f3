package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/infrastructure/opds"
	"github.com/booksage/booksage-recommend/internal/infrastructure/server"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var opdsURL, opdsUser, opdsPassword string
	cmd := &cobra.Command{
		Use:   "import [books.json]",
		Short: "Upsert books from a JSON array into the catalog",
		Long: `import reads a JSON array of books (id, title, author, subject,
popularity) and upserts them into the catalog. Books without an id get a
generated UUID. Pass "-" to read from stdin, or --opds to crawl an OPDS
catalog instead of reading a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				books  []dbmodels.Book
				source string
				err    error
			)
			switch {
			case opdsURL != "":
				source = opdsURL
				books, err = opds.NewCrawler(opdsUser, opdsPassword, nil).Fetch(cmd.Context(), opdsURL)
				books = normalizeBooks(books)
			case len(args) == 1:
				source = args[0]
				books, err = readBooksFrom(cmd.InOrStdin(), source)
			default:
				return fmt.Errorf("import needs a books.json path or --opds")
			}
			if err != nil {
				return err
			}

			catalog, err := server.OpenCatalog(cfg.CatalogDSN)
			if err != nil {
				return err
			}
			defer func() { _ = catalog.Close() }()

			n, err := catalog.UpsertBooks(cmd.Context(), books)
			if err != nil {
				return err
			}
			logging.Info().Int("books", n).Str("source", source).Msg("[Import] catalog updated")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d books\n", n)
			return err
		},
	}
	cmd.Flags().StringVar(&opdsURL, "opds", "", "crawl this OPDS catalog URL")
	cmd.Flags().StringVar(&opdsUser, "opds-user", "", "OPDS basic auth user")
	cmd.Flags().StringVar(&opdsPassword, "opds-password", "", "OPDS basic auth password")
	return cmd
}

func readBooksFrom(stdin io.Reader, path string) ([]dbmodels.Book, error) {
	if path == "-" {
		return readBooks(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return readBooks(f)
}

// readBooks decodes a JSON book array.
func readBooks(r io.Reader) ([]dbmodels.Book, error) {
	var raw []dbmodels.Book
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return normalizeBooks(raw), nil
}

// normalizeBooks trims fields, drops entries without a title and assigns
// ids where missing.
func normalizeBooks(raw []dbmodels.Book) []dbmodels.Book {
	books := raw[:0]
	for _, b := range raw {
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		b.Subject = strings.TrimSpace(b.Subject)
		if b.Title == "" {
			continue
		}
		if strings.TrimSpace(b.ID) == "" {
			b.ID = uuid.NewString()
		}
		books = append(books, b)
	}
	return books
}
