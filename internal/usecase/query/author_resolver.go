package query

import (
	"context"
	"sort"
	"strings"

	"github.com/booksage/booksage-recommend/internal/database"
	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/booksage/booksage-recommend/internal/textsim"
	"golang.org/x/sync/errgroup"
)

const (
	fuzzyLookupLimit    = 20
	fullTextLookupLimit = 10
	profileSubjects     = 5
	profileTitles       = 3
)

// AuthorResolution is the cacheable result of resolving one candidate name.
// A nil Match means no tier accepted the candidate.
type AuthorResolution struct {
	Match *models.AuthorMatch `json:"match"`
}

func (r *AuthorResolution) Degraded() bool { return r.Match == nil }

// AuthorResolver maps a candidate name onto a catalog author through the
// exact, fuzzy and full-text tiers, stopping at the first that accepts.
type AuthorResolver struct {
	catalog    database.CatalogRepository
	normalizer *textsim.ScriptNormalizer
}

func NewAuthorResolver(catalog database.CatalogRepository, normalizer *textsim.ScriptNormalizer) *AuthorResolver {
	if normalizer == nil {
		normalizer = textsim.NewScriptNormalizer(nil)
	}
	return &AuthorResolver{catalog: catalog, normalizer: normalizer}
}

// Resolve returns the accepted author or nil. Catalog failures are logged
// and reported as no match so the caller can move on to the next candidate.
func (r *AuthorResolver) Resolve(ctx context.Context, candidate string) *models.AuthorMatch {
	log := logging.WithComponent("resolver")

	author, count, tier, sim, err := r.lookup(ctx, candidate)
	if err != nil {
		log.Warn().Err(err).Str("candidate", candidate).Msg("[Resolver] catalog unavailable, treating as no match")
		return nil
	}
	if author == "" {
		log.Debug().Str("candidate", candidate).Msg("[Resolver] no tier accepted candidate")
		return nil
	}

	match := &models.AuthorMatch{
		CanonicalName: author,
		MatchTier:     tier,
		BookCount:     count,
		CountTier:     models.CountTierFor(count),
	}
	if tier != models.MatchTierExact {
		clamped := min(sim, 1.0)
		match.Similarity = &clamped
	}

	if err := r.enrich(ctx, match); err != nil {
		log.Warn().Err(err).Str("author", author).Msg("[Resolver] profile lookup failed, treating as no match")
		return nil
	}

	log.Info().Str("candidate", candidate).Str("author", author).Str("tier", string(tier)).
		Int("count", count).Msg("[Resolver] author resolved")
	return match
}

func (r *AuthorResolver) lookup(ctx context.Context, candidate string) (author string, count int, tier models.MatchTier, sim float64, err error) {
	exact, err := r.catalog.AuthorsExact(ctx, candidate)
	if err != nil {
		return "", 0, "", 0, err
	}
	if len(exact) > 0 {
		total := 0
		for _, row := range exact {
			total += row.BookCount
		}
		return exact[0].Author, total, models.MatchTierExact, 1, nil
	}

	fuzzy, err := r.catalog.AuthorsContaining(ctx, candidate, fuzzyLookupLimit)
	if err != nil {
		return "", 0, "", 0, err
	}
	if len(fuzzy) > 0 {
		rankFuzzy(candidate, fuzzy)
		top := fuzzy[0]
		if s := textsim.Similarity(candidate, top.Author); s >= textsim.FuzzyThreshold {
			return top.Author, top.BookCount, models.MatchTierFuzzy, s, nil
		}
	}

	for _, term := range r.normalizer.Variants(candidate) {
		rows, err := r.catalog.AuthorsFullText(ctx, term, fullTextLookupLimit)
		if err != nil {
			return "", 0, "", 0, err
		}
		for _, row := range rows {
			if s := textsim.Similarity(candidate, row.Author); s >= textsim.FullTextThreshold {
				return row.Author, row.BookCount, models.MatchTierFullText, s, nil
			}
		}
	}
	return "", 0, "", 0, nil
}

// rankFuzzy orders substring hits: the candidate itself (ignoring case),
// then names starting with it, then the rest, each by book count.
func rankFuzzy(candidate string, rows []dbmodels.AuthorCount) {
	c := strings.ToLower(candidate)
	group := func(author string) int {
		a := strings.ToLower(author)
		switch {
		case a == c:
			return 0
		case strings.HasPrefix(a, c):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		gi, gj := group(rows[i].Author), group(rows[j].Author)
		if gi != gj {
			return gi < gj
		}
		return rows[i].BookCount > rows[j].BookCount
	})
}

func (r *AuthorResolver) enrich(ctx context.Context, match *models.AuthorMatch) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.catalog.TopSubjectsByAuthor(gctx, match.CanonicalName, profileSubjects)
		if err != nil {
			return err
		}
		for _, row := range rows {
			match.Subjects = append(match.Subjects, row.Subject)
		}
		return nil
	})
	g.Go(func() error {
		titles, err := r.catalog.TopTitlesByAuthor(gctx, match.CanonicalName, profileTitles)
		if err != nil {
			return err
		}
		match.RepresentativeTitles = titles
		return nil
	})
	return g.Wait()
}
