package query

import (
	"context"

	"github.com/booksage/booksage-recommend/internal/database"
	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/lexicon"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/booksage/booksage-recommend/internal/textsim"
	"golang.org/x/sync/errgroup"
)

// CandidateSearch retrieves catalog items for a resolved author or a topic.
// Topic queries go through the fast, smart and deep tiers; the first
// non-empty tier wins.
type CandidateSearch struct {
	catalog database.CatalogRepository
	mapper  *lexicon.Mapper
}

func NewCandidateSearch(catalog database.CatalogRepository, mapper *lexicon.Mapper) *CandidateSearch {
	return &CandidateSearch{catalog: catalog, mapper: mapper}
}

// ForAuthor lists the works of a resolved author, exact name first and
// substring match second.
func (s *CandidateSearch) ForAuthor(ctx context.Context, author string, limit int) *models.CandidateSet {
	for _, mode := range []database.MatchMode{database.MatchExact, database.MatchContains} {
		books := s.booksBy(ctx, "author", author, mode, limit)
		if len(books) > 0 {
			return newCandidateSet(books, models.SearchTierAuthor, []string{author}, limit)
		}
	}
	return &models.CandidateSet{Tier: models.SearchTierAuthor, KeywordsUsed: []string{author}, NoMatch: true}
}

// Search runs the topic tiers. When all of them come back empty the set is
// flagged NoMatch so the caller can skip ranking.
func (s *CandidateSearch) Search(ctx context.Context, query string, cls models.Classification, limit int) *models.CandidateSet {
	log := logging.WithComponent("search")

	if set := s.fast(ctx, query, limit); set != nil {
		log.Debug().Str("query", query).Int("count", len(set.Items)).Msg("[Search] fast tier hit")
		return set
	}
	if set := s.smart(ctx, query, limit); set != nil {
		log.Debug().Str("query", query).Int("count", len(set.Items)).Msg("[Search] smart tier hit")
		return set
	}
	keywords := s.deepKeywords(query, cls)
	if set := s.deep(ctx, keywords, limit); set != nil {
		log.Debug().Str("query", query).Strs("keywords", keywords).Int("count", len(set.Items)).Msg("[Search] deep tier hit")
		return set
	}

	log.Info().Str("query", query).Msg("[Search] no tier matched")
	return &models.CandidateSet{Tier: models.SearchTierDeep, KeywordsUsed: keywords, NoMatch: true}
}

type subjectAttempt struct {
	subject string
	mode    database.MatchMode
}

func (s *CandidateSearch) fast(ctx context.Context, query string, limit int) *models.CandidateSet {
	fp, ok := s.mapper.FastPhrase(query)
	if !ok {
		return nil
	}
	attempts := []subjectAttempt{
		{fp.Primary, database.MatchExact},
		{fp.Primary, database.MatchContains},
	}
	for _, f := range fp.Fallbacks {
		attempts = append(attempts, subjectAttempt{f, database.MatchExact})
	}
	for _, a := range attempts {
		if books := s.booksBy(ctx, "subject", a.subject, a.mode, limit); len(books) > 0 {
			return newCandidateSet(books, models.SearchTierFast, []string{a.subject}, limit)
		}
	}
	return nil
}

func (s *CandidateSearch) smart(ctx context.Context, query string, limit int) *models.CandidateSet {
	var subjects []string
	if c, ok := s.mapper.Concept(query); ok {
		subjects = c.Subjects
	} else if _, mapped, ok := s.mapper.Intent(query); ok {
		subjects = mapped
	}
	for _, subject := range subjects {
		if books := s.booksBy(ctx, "subject", subject, database.MatchContains, limit); len(books) > 0 {
			return newCandidateSet(books, models.SearchTierSmart, []string{subject}, limit)
		}
	}
	return nil
}

// deepKeywords picks the open-search keywords: category synonyms, then the
// concept subjects of the classification, then the query with filler words
// removed plus its other script forms, then the default set.
func (s *CandidateSearch) deepKeywords(query string, cls models.Classification) []string {
	if kw := s.mapper.Keywords(query); len(kw) > 0 {
		return kw
	}
	if cls.Type == models.QueryTypeConcept && len(cls.Keywords) > 0 {
		return cls.Keywords
	}
	if residual := s.mapper.StripStopwords(query); residual != "" {
		return textsim.Variants(residual)
	}
	return s.mapper.DefaultKeywords()
}

func (s *CandidateSearch) deep(ctx context.Context, keywords []string, limit int) *models.CandidateSet {
	results := make([][]dbmodels.Book, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		g.Go(func() error {
			books, err := s.catalog.SearchBooks(gctx, kw, limit, 0)
			if err != nil {
				logging.Warn().Err(err).Str("keyword", kw).Msg("[Search] keyword query failed")
				return nil
			}
			results[i] = books
			return nil
		})
	}
	_ = g.Wait()

	var merged []dbmodels.Book
	for _, books := range results {
		merged = append(merged, books...)
	}
	if len(merged) == 0 {
		return nil
	}
	return newCandidateSet(merged, models.SearchTierDeep, keywords, limit)
}

func (s *CandidateSearch) booksBy(ctx context.Context, field, value string, mode database.MatchMode, limit int) []dbmodels.Book {
	var (
		books []dbmodels.Book
		err   error
	)
	if field == "author" {
		books, err = s.catalog.BooksByAuthor(ctx, value, mode, limit)
	} else {
		books, err = s.catalog.BooksBySubject(ctx, value, mode, limit)
	}
	if err != nil {
		logging.Warn().Err(err).Str(field, value).Msg("[Search] catalog unavailable, treating as empty")
		return nil
	}
	return books
}

// newCandidateSet dedupes by id keeping first occurrence and caps at limit.
func newCandidateSet(books []dbmodels.Book, tier models.SearchTier, keywords []string, limit int) *models.CandidateSet {
	if limit <= 0 {
		limit = len(books)
	}
	seen := make(map[string]struct{}, len(books))
	items := make([]dbmodels.Book, 0, min(len(books), limit))
	for _, b := range books {
		if len(items) >= limit {
			break
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		items = append(items, b)
	}
	return &models.CandidateSet{Items: items, Tier: tier, KeywordsUsed: keywords}
}
