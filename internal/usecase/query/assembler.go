package query

import (
	"fmt"
	"strings"

	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/models"
)

// titlePrefixRunes is how much of a title is compared when a ranked item
// has to be matched to a candidate by title.
const titlePrefixRunes = 10

// Assembler turns a candidate set and an untrusted ranking into the final
// recommendation list. Every returned id belongs to the candidate set.
type Assembler struct{}

func NewAssembler() *Assembler { return &Assembler{} }

// Assemble validates ranked items against the candidates, overwriting their
// bibliographic fields with catalog data. With no usable ranking it falls
// back to the first limit candidates. The bool reports whether the ranking
// was used.
func (a *Assembler) Assemble(query string, set *models.CandidateSet, limit int, ranking RankingOutcome) ([]models.RecommendationItem, bool) {
	if set == nil || len(set.Items) == 0 || limit <= 0 {
		return nil, false
	}

	if ranking.Status == RankingOK {
		if items := a.validate(query, set, limit, ranking.Items); len(items) > 0 {
			return items, true
		}
	}
	return a.fallback(query, set, limit), false
}

func (a *Assembler) validate(query string, set *models.CandidateSet, limit int, ranked []RankedItem) []models.RecommendationItem {
	byID := make(map[string]*dbmodels.Book, len(set.Items))
	for i := range set.Items {
		byID[set.Items[i].ID] = &set.Items[i]
	}

	var out []models.RecommendationItem
	used := make(map[string]struct{})
	for _, r := range ranked {
		if len(out) >= limit {
			break
		}
		book, ok := byID[r.ID]
		if !ok {
			book = matchByTitle(set.Items, r.Title)
		}
		if book == nil {
			continue
		}
		if _, dup := used[book.ID]; dup {
			continue
		}
		used[book.ID] = struct{}{}

		reason := strings.TrimSpace(r.Reason)
		if reason == "" {
			reason = fallbackReason(query, book)
		}
		out = append(out, recommendationFrom(book, reason))
	}
	return out
}

// matchByTitle finds the first candidate whose title prefix contains, or is
// contained in, the ranked title prefix.
func matchByTitle(books []dbmodels.Book, title string) *dbmodels.Book {
	want := titlePrefix(title)
	if want == "" {
		return nil
	}
	for i := range books {
		have := titlePrefix(books[i].Title)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return &books[i]
		}
	}
	return nil
}

func titlePrefix(title string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(title)))
	if len(r) > titlePrefixRunes {
		r = r[:titlePrefixRunes]
	}
	return string(r)
}

func (a *Assembler) fallback(query string, set *models.CandidateSet, limit int) []models.RecommendationItem {
	n := min(limit, len(set.Items))
	out := make([]models.RecommendationItem, 0, n)
	for i := 0; i < n; i++ {
		book := &set.Items[i]
		out = append(out, recommendationFrom(book, fallbackReason(query, book)))
	}
	return out
}

func fallbackReason(query string, book *dbmodels.Book) string {
	subject := book.Subject
	if subject == "" {
		subject = "综合"
	}
	return fmt.Sprintf("这是一本%s类的热门图书，与您查询的「%s」相关。", subject, query)
}

func recommendationFrom(book *dbmodels.Book, reason string) models.RecommendationItem {
	return models.RecommendationItem{
		ID:      book.ID,
		Title:   book.Title,
		Author:  book.Author,
		Subject: book.Subject,
		Reason:  reason,
	}
}
