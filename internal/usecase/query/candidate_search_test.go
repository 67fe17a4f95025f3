package query

import (
	"context"
	"errors"
	"testing"

	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/lexicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(set *models.CandidateSet) []string {
	out := make([]string, 0, len(set.Items))
	for _, b := range set.Items {
		out = append(out, b.ID)
	}
	return out
}

func newTestSearch(catalog *mockCatalog) (*CandidateSearch, *Classifier) {
	mapper := lexicon.NewMapper()
	return NewCandidateSearch(catalog, mapper), NewClassifier(mapper)
}

func TestCandidateSearch_FastTier(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	set := s.Search(context.Background(), "推荐小说", c.ClassifyTopic("推荐小说"), 10)
	assert.Equal(t, models.SearchTierFast, set.Tier)
	assert.False(t, set.NoMatch)
	assert.Equal(t, []string{"lx1", "hl1", "hl2", "lx2"}, ids(set))
	assert.Equal(t, []string{"小說"}, catalog.subjects)
	assert.Equal(t, 0, catalog.count("search_books"))
}

func TestCandidateSearch_FastTierFallbackSubject(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	catalog.books = append(catalog.books, sampleBook("c1", "三毛流浪記", "張樂平", "連環畫"))
	set := s.Search(context.Background(), "漫画", c.ClassifyTopic("漫画"), 10)
	assert.Equal(t, models.SearchTierFast, set.Tier)
	assert.Equal(t, []string{"c1"}, ids(set))
	assert.Equal(t, []string{"連環畫"}, set.KeywordsUsed)
	assert.Equal(t, []string{"漫畫", "漫畫", "漫画", "連環畫"}, catalog.subjects)
}

func TestCandidateSearch_SmartTierSubjectOrder(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	set := s.Search(context.Background(), "人工智能", c.ClassifyTopic("人工智能"), 10)
	assert.Equal(t, models.SearchTierSmart, set.Tier)
	assert.Equal(t, []string{"計算機", "數學"}, catalog.subjects)
	assert.Equal(t, []string{"m1", "m2"}, ids(set))
}

func TestCandidateSearch_DeepTierMergesKeywords(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	q := "武侠 小说"
	set := s.Search(context.Background(), q, c.ClassifyTopic(q), 10)
	assert.Equal(t, models.SearchTierDeep, set.Tier)
	assert.Equal(t, []string{"武俠", "武侠", "小說", "小说"}, set.KeywordsUsed)
	assert.Equal(t, []string{"jy1", "jy2", "cl1", "lx1", "hl1", "hl2", "lx2"}, ids(set))
}

func TestCandidateSearch_NoMatch(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	set := s.Search(context.Background(), "qwzxkjvbn", c.ClassifyTopic("qwzxkjvbn"), 10)
	assert.True(t, set.NoMatch)
	assert.Empty(t, set.Items)
	assert.Equal(t, models.SearchTierDeep, set.Tier)
	assert.Equal(t, []string{"qwzxkjvbn"}, set.KeywordsUsed)
}

func TestCandidateSearch_CatalogErrorsDegradeToNoMatch(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	catalog.err = errors.New("database is locked")
	s, c := newTestSearch(catalog)

	for _, q := range []string{"推荐小说", "人工智能", "武侠 小说"} {
		set := s.Search(context.Background(), q, c.ClassifyTopic(q), 10)
		assert.True(t, set.NoMatch, q)
	}
}

func TestCandidateSearch_ForAuthor(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, _ := newTestSearch(catalog)

	set := s.ForAuthor(context.Background(), "魯迅", 10)
	assert.Equal(t, models.SearchTierAuthor, set.Tier)
	assert.Equal(t, []string{"lx1", "lx2", "lx3"}, ids(set))

	// substring fallback
	set = s.ForAuthor(context.Background(), "Orwell", 1)
	assert.Equal(t, []string{"o1"}, ids(set))

	set = s.ForAuthor(context.Background(), "無名氏", 10)
	assert.True(t, set.NoMatch)
}

func TestCandidateSearch_BoundedAndUnique(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	s, c := newTestSearch(catalog)

	queries := []string{"推荐小说", "人工智能", "武侠 小说", "历史", "科幻", "qwzxkjvbn", "George"}
	for _, q := range queries {
		for limit := 1; limit <= 8; limit++ {
			set := s.Search(context.Background(), q, c.ClassifyTopic(q), limit)
			require.LessOrEqual(t, len(set.Items), limit, "%s/%d", q, limit)

			seen := map[string]bool{}
			for _, b := range set.Items {
				require.False(t, seen[b.ID], "duplicate %s in %s/%d", b.ID, q, limit)
				seen[b.ID] = true
			}
		}
	}
}
