package query

import (
	"context"
	"errors"
	"testing"

	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorResolver_Exact(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	r := NewAuthorResolver(catalog, nil)

	m := r.Resolve(context.Background(), "魯迅")
	require.NotNil(t, m)
	assert.Equal(t, "魯迅", m.CanonicalName)
	assert.Equal(t, models.MatchTierExact, m.MatchTier)
	assert.Equal(t, 3, m.BookCount)
	assert.Nil(t, m.Similarity)
	assert.Equal(t, models.CountTierEmerging, m.CountTier)
	assert.Equal(t, []string{"小說", "散文"}, m.Subjects)
	assert.Equal(t, []string{"吶喊", "彷徨", "朝花夕拾"}, m.RepresentativeTitles)
}

func TestAuthorResolver_ExactSkipsLaterTiers(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	r := NewAuthorResolver(catalog, nil)

	m := r.Resolve(context.Background(), "余华")
	require.NotNil(t, m)
	assert.Equal(t, models.MatchTierExact, m.MatchTier)
	assert.Equal(t, 0, catalog.count("authors_containing"))
	assert.Equal(t, 0, catalog.count("authors_fulltext"))
}

func TestAuthorResolver_FullTextAcrossScripts(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	r := NewAuthorResolver(catalog, nil)

	m := r.Resolve(context.Background(), "鲁迅")
	require.NotNil(t, m)
	assert.Equal(t, "魯迅", m.CanonicalName)
	assert.Equal(t, models.MatchTierFullText, m.MatchTier)
	require.NotNil(t, m.Similarity)
	assert.InDelta(t, 1.0/3.0, *m.Similarity, 1e-9)
	assert.Equal(t, 3, m.BookCount)
	// simplified form first, then traditional
	assert.Equal(t, 2, catalog.count("authors_fulltext"))
}

func TestAuthorResolver_FuzzyClampsSimilarity(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	r := NewAuthorResolver(catalog, nil)

	m := r.Resolve(context.Background(), "orwell")
	require.NotNil(t, m)
	assert.Equal(t, "George Orwell", m.CanonicalName)
	assert.Equal(t, models.MatchTierFuzzy, m.MatchTier)
	require.NotNil(t, m.Similarity)
	assert.Equal(t, 1.0, *m.Similarity)
	assert.Equal(t, 0, catalog.count("authors_fulltext"))
}

func TestAuthorResolver_NoMatch(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	r := NewAuthorResolver(catalog, nil)

	assert.Nil(t, r.Resolve(context.Background(), "張三豐"))
	assert.Equal(t, 0, catalog.count("top_subjects"))
}

func TestAuthorResolver_CatalogErrorIsNoMatch(t *testing.T) {
	catalog := newMockCatalog(sampleCatalog()...)
	catalog.err = errors.New("disk I/O error")
	r := NewAuthorResolver(catalog, nil)

	assert.Nil(t, r.Resolve(context.Background(), "魯迅"))
}

func TestRankFuzzy(t *testing.T) {
	rows := []dbmodels.AuthorCount{
		{Author: "老金庸", BookCount: 9},
		{Author: "金庸先生", BookCount: 5},
		{Author: "金庸", BookCount: 2},
		{Author: "金庸研究會", BookCount: 7},
	}
	rankFuzzy("金庸", rows)

	var got []string
	for _, r := range rows {
		got = append(got, r.Author)
	}
	assert.Equal(t, []string{"金庸", "金庸研究會", "金庸先生", "老金庸"}, got)
}

func TestAuthorResolution_Degraded(t *testing.T) {
	assert.True(t, (&AuthorResolution{}).Degraded())
	assert.False(t, (&AuthorResolution{Match: &models.AuthorMatch{CanonicalName: "金庸"}}).Degraded())
}
