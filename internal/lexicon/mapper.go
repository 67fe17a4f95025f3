// Package lexicon holds the static vocabularies used to interpret free-text
// book queries: full-phrase shortcuts, category synonyms, modern-concept to
// catalog-subject mappings, learning-intent patterns and a curated author list.
package lexicon

import (
	"strings"
	"unicode"

	"github.com/booksage/booksage-recommend/internal/textsim"
)

// Mapper answers dictionary lookups. Queries are matched in their original
// form and in simplified script, so traditional input hits simplified keys.
type Mapper struct {
	fast      []FastPhrase
	cats      []Category
	concepts  []Concept
	intents   []IntentPattern
	authors   []string
	stopwords []string
	defaults  []string
}

// NewMapper returns a Mapper over the built-in dictionaries.
func NewMapper() *Mapper {
	return &Mapper{
		fast:      fastPhrases,
		cats:      categories,
		concepts:  concepts,
		intents:   intentPatterns,
		authors:   highFrequencyAuthors,
		stopwords: stopwords,
		defaults:  defaultKeywords,
	}
}

// FastPhrase looks up the whole query in the full-phrase table.
func (m *Mapper) FastPhrase(query string) (FastPhrase, bool) {
	for _, form := range forms(query) {
		for _, fp := range m.fast {
			if form == fp.Phrase {
				return fp, true
			}
		}
	}
	return FastPhrase{}, false
}

// Category returns the first category phrase contained in the query.
func (m *Mapper) Category(query string) (Category, bool) {
	for _, form := range forms(query) {
		for _, c := range m.cats {
			if strings.Contains(form, c.Phrase) {
				return c, true
			}
		}
	}
	return Category{}, false
}

// Concept returns the first modern concept contained in the query.
func (m *Mapper) Concept(query string) (Concept, bool) {
	for _, form := range forms(query) {
		for _, c := range m.concepts {
			if strings.Contains(form, c.Phrase) {
				return c, true
			}
		}
	}
	return Concept{}, false
}

// Intent matches the learning-intent patterns and maps the captured topic to
// catalog subjects. An unknown topic maps to itself and its traditional form.
func (m *Mapper) Intent(query string) (topic string, subjects []string, ok bool) {
	for _, ip := range m.intents {
		match := ip.Pattern.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		topic = m.StripStopwords(match[1])
		if topic == "" {
			continue
		}
		if c, found := m.Concept(topic); found {
			return topic, c.Subjects, true
		}
		if c, found := m.Category(topic); found {
			return topic, c.Synonyms, true
		}
		return topic, textsim.Variants(topic), true
	}
	return "", nil, false
}

// Keywords collects the synonyms of every category phrase found in the query,
// deduplicated in dictionary order.
func (m *Mapper) Keywords(query string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, form := range forms(query) {
		for _, c := range m.cats {
			if !strings.Contains(form, c.Phrase) {
				continue
			}
			for _, s := range c.Synonyms {
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}

// KnownAuthors returns every curated author name that occurs verbatim in the query.
func (m *Mapper) KnownAuthors(query string) []string {
	var out []string
	for _, name := range m.authors {
		if strings.Contains(query, name) {
			out = append(out, name)
		}
	}
	return out
}

// AuthorshipKeywords lists the words that typically follow an author name.
func (m *Mapper) AuthorshipKeywords() []string { return authorshipKeywords }

// DefaultKeywords is the last-resort keyword set for open searches.
func (m *Mapper) DefaultKeywords() []string {
	return append([]string(nil), m.defaults...)
}

// StripStopwords removes filler words and punctuation, leaving the residual
// topic text.
func (m *Mapper) StripStopwords(text string) string {
	out := strings.ToLower(text)
	var latin []string
	for _, w := range m.stopwords {
		if isASCII(w) {
			latin = append(latin, w)
			continue
		}
		out = strings.ReplaceAll(out, w, " ")
	}
	out = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, out)

	// latin stopwords only count as whole words
	var kept []string
	for _, f := range strings.Fields(out) {
		if !containsString(latin, f) {
			kept = append(kept, f)
		}
	}
	residual := strings.Join(kept, " ")
	if residual == "书" || residual == "書" {
		return ""
	}
	return residual
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// forms returns the query as typed and in simplified script (when different),
// trimmed and lowercased.
func forms(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	simp := textsim.ToSimplified(q)
	if simp == q {
		return []string{q}
	}
	return []string{q, simp}
}
