// Package opds reads book metadata from OPDS (Atom) catalogs so it can be
// upserted into the recommendation catalog.
package opds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/mmcdole/gofeed/atom"
)

const (
	relNext       = "next"
	relSubsection = "subsection"
	relCatalog    = "http://opds-spec.org/catalog"

	maxDepth = 3
	// maxPages bounds a crawl of a very large or cyclic catalog.
	maxPages = 50
)

// Crawler walks an OPDS catalog breadth-first, following pagination and
// navigation links.
type Crawler struct {
	username string
	password string
	client   *http.Client
}

func NewCrawler(username, password string, client *http.Client) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &Crawler{username: username, password: password, client: client}
}

type pageRef struct {
	url   string
	depth int
}

// Fetch returns every book entry reachable from catalogURL. Pages that fail
// to load are logged and skipped; Fetch only errors when the root page does.
func (c *Crawler) Fetch(ctx context.Context, catalogURL string) ([]dbmodels.Book, error) {
	if catalogURL == "" {
		return nil, fmt.Errorf("OPDS URL is not configured")
	}
	log := logging.WithComponent("opds")

	var books []dbmodels.Book
	visited := make(map[string]bool)
	queue := []pageRef{{url: catalogURL}}

	processed := 0
	for len(queue) > 0 && processed < maxPages {
		current := queue[0]
		queue = queue[1:]
		if visited[current.url] {
			continue
		}
		visited[current.url] = true
		processed++

		found, next, subsections, err := c.fetchPage(ctx, current.url)
		if err != nil {
			if current.url == catalogURL {
				return nil, err
			}
			log.Warn().Err(err).Str("url", current.url).Msg("[OPDS] skipping page")
			continue
		}
		log.Debug().Int("books", len(found)).Str("url", current.url).Msg("[OPDS] page parsed")
		books = append(books, found...)

		// pagination stays at the same depth
		if next != "" && !visited[next] {
			queue = append(queue, pageRef{url: next, depth: current.depth})
		}
		if current.depth < maxDepth {
			for _, sub := range subsections {
				if !visited[sub] {
					queue = append(queue, pageRef{url: sub, depth: current.depth + 1})
				}
			}
		}
	}
	return books, nil
}

func (c *Crawler) fetchPage(ctx context.Context, target string) ([]dbmodels.Book, string, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to fetch OPDS feed from %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", nil, fmt.Errorf("OPDS feed %s returned status: %d", target, resp.StatusCode)
	}

	feed, err := (&atom.Parser{}).Parse(resp.Body)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to parse OPDS feed as Atom: %w", err)
	}

	base, _ := url.Parse(target)
	resolve := func(href string) string {
		ref, err := url.Parse(href)
		if err != nil {
			return ""
		}
		return base.ResolveReference(ref).String()
	}

	var (
		books       []dbmodels.Book
		subsections []string
		next        string
	)
	for _, entry := range feed.Entries {
		navigation := false
		for _, link := range entry.Links {
			if link.Rel == relSubsection || link.Rel == relCatalog {
				navigation = true
				if u := resolve(link.Href); u != "" {
					subsections = append(subsections, u)
				}
			}
		}
		if navigation || strings.TrimSpace(entry.Title) == "" {
			continue
		}
		books = append(books, bookFromEntry(entry))
	}

	for _, link := range feed.Links {
		switch link.Rel {
		case relSubsection, relCatalog:
			if u := resolve(link.Href); u != "" {
				subsections = append(subsections, u)
			}
		case relNext:
			if next == "" {
				next = resolve(link.Href)
			}
		}
	}
	return books, next, subsections, nil
}

func bookFromEntry(entry *atom.Entry) dbmodels.Book {
	book := dbmodels.Book{
		ID:    strings.TrimSpace(entry.ID),
		Title: strings.TrimSpace(entry.Title),
	}
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		book.Author = strings.TrimSpace(entry.Authors[0].Name)
	}
	for _, cat := range entry.Categories {
		if cat == nil {
			continue
		}
		subject := cat.Label
		if subject == "" {
			subject = cat.Term
		}
		if subject = strings.TrimSpace(subject); subject != "" {
			book.Subject = subject
			break
		}
	}
	return book
}
