package textsim

import (
	"math"
	"strings"
	"unicode"
)

// Thresholds the author resolver compares Similarity against. The scores are
// not normalised probabilities; containment matches can exceed 1.
const (
	FuzzyThreshold    = 0.5
	FullTextThreshold = 0.3
)

// Similarity scores how alike two names are.
//
//  1. equal after lowercasing and removing whitespace: 1.0
//  2. one contains the other: max(len)/min(len) * 0.8
//  3. otherwise: Jaccard over the unique characters, damped by
//     exp(-|len(a)-len(b)|/10)
//
// Lengths are counted in runes. An empty operand scores 0.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}

	la, lb := float64(len([]rune(na))), float64(len([]rune(nb)))
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return math.Max(la, lb) / math.Min(la, lb) * 0.8
	}

	return jaccard(na, nb) * math.Exp(-math.Abs(la-lb)/10)
}

func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func jaccard(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
