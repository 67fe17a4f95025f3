package query

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/lexicon"
)

const (
	minCandidateRunes   = 2
	maxCandidateRunes   = 20
	maxKeywordNameRunes = 10
)

// candidateRule is one phrasing that names an author. Group 1 of the pattern
// is the name.
type candidateRule struct {
	name       string
	pattern    *regexp.Regexp
	confidence models.Confidence
}

const latinName = `([\p{L} .'\-]+)`

// candidateRules are evaluated in order; every match is kept.
var candidateRules = []candidateRule{
	{"want_to_see_books", regexp.MustCompile(`(?:想看|想读|想讀|要看|要读|要讀)(.+?)(?:写的|寫的|的)(?:书|書|作品|小说|小說|著作)`), models.ConfidenceHigh},
	{"recommend_works", regexp.MustCompile(`(?:推荐|推薦)(.+?)(?:写的|寫的|的)(?:书|書|作品|小说|小說|著作)`), models.ConfidenceHigh},
	{"has_books", regexp.MustCompile(`(?:有没有|有沒有)(.+?)(?:写的|寫的|的)(?:书|書|作品|小说|小說)`), models.ConfidenceHigh},
	{"wrote", regexp.MustCompile(`(.+?)(?:写的|寫的|写过|寫過)`), models.ConfidenceHigh},
	{"wrote_what", regexp.MustCompile(`(.+?)(?:写了|寫了)(?:哪些|什么|什麼)`), models.ConfidenceHigh},
	{"works_of", regexp.MustCompile(`(.+?)的(?:作品|著作|全集|文集|代表作)`), models.ConfidenceHigh},
	{"novel_of", regexp.MustCompile(`(.+?)的(?:小说|小說|散文|诗集|詩集|随笔|隨筆|杂文|雜文)`), models.ConfidenceHigh},
	{"other_works", regexp.MustCompile(`(.+?)(?:还有|還有)(?:什么|什麼|哪些)(?:书|書|作品)`), models.ConfidenceHigh},
	{"has_which_works", regexp.MustCompile(`(.+?)(?:有哪些|有什么|有什麼)(?:书|書|作品|代表作)`), models.ConfidenceHigh},
	{"collection", regexp.MustCompile(`(.+?)(?:全集|选集|選集)`), models.ConfidenceHigh},
	{"authored_by", regexp.MustCompile(`(.+?)(?:所著|编著|編著|著的)`), models.ConfidenceHigh},
	{"author_is", regexp.MustCompile(`作者(?:是|为|為)(.+)`), models.ConfidenceHigh},
	{"author_colon", regexp.MustCompile(`作者[:：]\s*(.+)`), models.ConfidenceHigh},
	{"titled_writer", regexp.MustCompile(`(?:作家|诗人|詩人|小说家|小說家)(.+?)的`), models.ConfidenceHigh},
	{"read_through", regexp.MustCompile(`(?:读完|讀完|看完|读遍|讀遍)(.+?)的`), models.ConfidenceHigh},
	{"similar_to", regexp.MustCompile(`(?:类似|類似)(.+?)(?:的|那样|那樣)`), models.ConfidenceHigh},
	{"like_author", regexp.MustCompile(`(?:喜欢|喜歡)(.+?)(?:写的|寫的|的)(?:书|書|作品|小说|小說)`), models.ConfidenceHigh},
	{"books_by_en", regexp.MustCompile(`(?i)books? (?:by|from) ` + latinName), models.ConfidenceHigh},
	{"works_by_en", regexp.MustCompile(`(?i)(?:works?|novels?|writings?|poems?) (?:by|of) ` + latinName), models.ConfidenceHigh},
	{"written_by_en", regexp.MustCompile(`(?i)written by ` + latinName), models.ConfidenceHigh},
	{"possessive_en", regexp.MustCompile(`(?i)([\p{L} .\-]+?)'s (?:books?|novels?|works?|writing)`), models.ConfidenceHigh},
	{"author_named_en", regexp.MustCompile(`(?i)author (?:named |called )` + latinName), models.ConfidenceHigh},
	{"anything_by_en", regexp.MustCompile(`(?i)(?:anything|something) (?:by|from) ` + latinName), models.ConfidenceHigh},
	{"more_like_en", regexp.MustCompile(`(?i)more (?:books )?like ` + latinName), models.ConfidenceHigh},
	{"trailing_by_en", regexp.MustCompile(`(?i)\bby ` + latinName + `$`), models.ConfidenceHigh},
}

// namePrefixes are request phrasings that regexes tend to swallow into the
// captured name.
var namePrefixes = []string{
	"请推荐", "請推薦", "推荐一下", "推薦一下", "我想看看", "我想看", "我想读", "我想讀", "我要看",
	"有没有", "有沒有", "推荐", "推薦", "给我", "給我", "想看", "想读", "想讀", "我想", "我要",
	"一些", "几本", "幾本", "一本", "看看", "找", "读", "讀", "看",
	"please ", "recommend ", "me ", "some ", "any ", "the ", "i want ", "i like ",
}

// Classifier decides whether a query names an author or a topic.
type Classifier struct {
	mapper *lexicon.Mapper
}

func NewClassifier(mapper *lexicon.Mapper) *Classifier {
	return &Classifier{mapper: mapper}
}

// Classify returns an author classification when any candidate name is
// found, otherwise the topic classification.
func (c *Classifier) Classify(query string) models.Classification {
	if candidates := c.ExtractCandidates(query); len(candidates) > 0 {
		return models.Classification{Type: models.QueryTypeAuthor, Candidates: candidates}
	}
	return c.ClassifyTopic(query)
}

// ExtractCandidates runs the phrasing rules, the curated author list and the
// authorship-keyword fallback, in that order, and returns the candidates
// sorted by confidence. Equal confidences keep discovery order.
func (c *Classifier) ExtractCandidates(query string) []models.ExtractedCandidate {
	q := strings.TrimSpace(query)
	var out []models.ExtractedCandidate

	for _, rule := range candidateRules {
		m := rule.pattern.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		name := cleanName(m[1])
		if !runeLenWithin(name, minCandidateRunes, maxCandidateRunes) {
			continue
		}
		out = append(out, models.ExtractedCandidate{Name: name, SourcePattern: rule.name, Confidence: rule.confidence})
	}

	for _, name := range c.mapper.KnownAuthors(q) {
		out = append(out, models.ExtractedCandidate{Name: name, SourcePattern: "known_author", Confidence: models.ConfidenceVeryHigh})
	}

	if len(out) == 0 {
		out = c.keywordCandidate(q)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// keywordCandidate takes the text before the first authorship keyword.
// Lowercasing keeps the rune count but not the byte length, so the keyword
// offset is carried back to q in runes.
func (c *Classifier) keywordCandidate(q string) []models.ExtractedCandidate {
	lower := strings.ToLower(q)
	runes := []rune(q)
	for _, kw := range c.mapper.AuthorshipKeywords() {
		idx := strings.Index(lower, kw)
		if idx <= 0 {
			continue
		}
		n := utf8.RuneCountInString(lower[:idx])
		if n > len(runes) {
			continue
		}
		name := cleanName(string(runes[:n]))
		if runeLenWithin(name, minCandidateRunes, maxKeywordNameRunes) {
			return []models.ExtractedCandidate{{Name: name, SourcePattern: "authorship_keyword", Confidence: models.ConfidenceMedium}}
		}
	}
	return nil
}

// topicRule maps a query onto a topic classification.
type topicRule struct {
	qtype models.QueryType
	match func(m *lexicon.Mapper, query string) ([]string, bool)
}

var topicRules = []topicRule{
	{models.QueryTypeCategory, func(m *lexicon.Mapper, q string) ([]string, bool) {
		cat, ok := m.Category(q)
		return cat.Synonyms, ok
	}},
	{models.QueryTypeConcept, func(m *lexicon.Mapper, q string) ([]string, bool) {
		con, ok := m.Concept(q)
		return con.Subjects, ok
	}},
}

// ClassifyTopic classifies a query that does not name a resolvable author.
// Without a dictionary hit the whole query becomes a single keyword.
func (c *Classifier) ClassifyTopic(query string) models.Classification {
	q := strings.TrimSpace(query)
	for _, rule := range topicRules {
		if keywords, ok := rule.match(c.mapper, q); ok {
			return models.Classification{Type: rule.qtype, Keywords: keywords}
		}
	}
	return models.Classification{Type: models.QueryTypeGeneral, Keywords: []string{q}}
}

func cleanName(s string) string {
	name := strings.TrimFunc(s, isNameBoundary)
	for changed := true; changed; {
		changed = false
		for _, p := range namePrefixes {
			if len(name) > len(p) && strings.EqualFold(name[:len(p)], p) {
				name = strings.TrimFunc(name[len(p):], isNameBoundary)
				changed = true
			}
		}
		if trimmed := strings.TrimSuffix(name, "的"); trimmed != name {
			name = strings.TrimFunc(trimmed, isNameBoundary)
			changed = true
		}
	}
	return name
}

func isNameBoundary(r rune) bool {
	return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '·' && r != '.') || unicode.IsSymbol(r)
}

func runeLenWithin(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
