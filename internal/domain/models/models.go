// Package models holds the value types passed between the stages of the
// recommendation pipeline. They are immutable once a stage returns them.
package models

import (
	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
)

// Confidence orders extracted candidates for resolution. Higher is tried first.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryHigh:
		return "very_high"
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// ExtractedCandidate is a possible author name found in a query.
type ExtractedCandidate struct {
	Name          string     `json:"name"`
	SourcePattern string     `json:"source_pattern"`
	Confidence    Confidence `json:"confidence"`
}

// QueryType is the tag of a Classification.
type QueryType string

const (
	QueryTypeAuthor   QueryType = "author"
	QueryTypeCategory QueryType = "category"
	QueryTypeConcept  QueryType = "concept"
	QueryTypeGeneral  QueryType = "general"
)

// Classification is the classifier's verdict. Candidates is set only for
// QueryTypeAuthor, Keywords only for the topic types.
type Classification struct {
	Type       QueryType
	Candidates []ExtractedCandidate
	Keywords   []string
}

// MatchTier names the resolver tier that accepted an author.
type MatchTier string

const (
	MatchTierExact    MatchTier = "exact"
	MatchTierFuzzy    MatchTier = "fuzzy"
	MatchTierFullText MatchTier = "fulltext"
)

// CountTier buckets an author's catalog size for descriptive text.
type CountTier string

const (
	CountTierUltraHigh CountTier = "ultra_high"
	CountTierHigh      CountTier = "high"
	CountTierMedium    CountTier = "medium"
	CountTierLow       CountTier = "low"
	CountTierEmerging  CountTier = "emerging"
)

// CountTierFor classifies a book count.
func CountTierFor(bookCount int) CountTier {
	switch {
	case bookCount >= 100:
		return CountTierUltraHigh
	case bookCount >= 50:
		return CountTierHigh
	case bookCount >= 10:
		return CountTierMedium
	case bookCount >= 5:
		return CountTierLow
	default:
		return CountTierEmerging
	}
}

// AuthorMatch is a catalog author accepted for a query candidate.
// Similarity is nil for exact matches and otherwise clamped to [0,1].
type AuthorMatch struct {
	CanonicalName        string    `json:"canonical_name"`
	MatchTier            MatchTier `json:"match_tier"`
	BookCount            int       `json:"book_count"`
	Similarity           *float64  `json:"similarity,omitempty"`
	Subjects             []string  `json:"subjects"`
	RepresentativeTitles []string  `json:"representative_titles"`
	CountTier            CountTier `json:"count_tier"`
}

// SearchTier is the provenance of a CandidateSet.
type SearchTier string

const (
	SearchTierAuthor SearchTier = "author"
	SearchTierFast   SearchTier = "fast"
	SearchTierSmart  SearchTier = "smart"
	SearchTierDeep   SearchTier = "deep"
)

// CandidateSet is an ordered, id-unique list of catalog items. NoMatch
// distinguishes "every tier came back empty" from an empty page.
type CandidateSet struct {
	Items        []dbmodels.Book `json:"items"`
	Tier         SearchTier      `json:"tier"`
	KeywordsUsed []string        `json:"keywords_used"`
	NoMatch      bool            `json:"no_match"`
}

// Degraded reports whether the set should only be cached briefly.
func (c *CandidateSet) Degraded() bool {
	return c.NoMatch || len(c.Items) == 0
}

// Contains reports whether id is one of the set's items.
func (c *CandidateSet) Contains(id string) bool {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return true
		}
	}
	return false
}

// RecommendationItem is one entry of the final answer. Its ID always comes
// from the CandidateSet it was built from.
type RecommendationItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Resolution paths reported in Diagnostics.Path.
const (
	PathAuthor = "author"
	PathTopic  = "topic"
	PathNone   = "none"
)

// Diagnostics explains how a response was produced.
type Diagnostics struct {
	Path           string `json:"path"`
	TierUsed       string `json:"tier_used"`
	CandidateCount int    `json:"candidate_count"`
	RankingStatus  string `json:"ranking_status,omitempty"`
	Author         string `json:"author,omitempty"`
}

// Response is the caller-facing result of resolve-and-recommend.
type Response struct {
	Success     bool                 `json:"success"`
	Items       []RecommendationItem `json:"items"`
	Summary     string               `json:"summary"`
	Message     string               `json:"message"`
	Diagnostics Diagnostics          `json:"diagnostics"`
}

// Degraded reports whether the response is empty or was built without a
// usable ranking, in which case it is only cached briefly.
func (r *Response) Degraded() bool {
	return !r.Success || len(r.Items) == 0 || r.Diagnostics.RankingStatus != "ok"
}
