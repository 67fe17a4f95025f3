package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/repository"
	"github.com/booksage/booksage-recommend/internal/infrastructure/llm"
	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/booksage/booksage-recommend/internal/infrastructure/resilience"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/goccy/go-json"
)

var (
	ErrRankingTimeout   = errors.New("ranking service timed out")
	ErrRankingMalformed = errors.New("ranking service returned a malformed payload")
	ErrRankingEmpty     = errors.New("ranking service returned no recommendations")
)

// RankingStatus tags a RankingOutcome. Only RankingOK carries items.
type RankingStatus string

const (
	RankingOK          RankingStatus = "ok"
	RankingMalformed   RankingStatus = "malformed"
	RankingTimeout     RankingStatus = "timeout"
	RankingEmpty       RankingStatus = "empty"
	RankingUnavailable RankingStatus = "unavailable"
	// RankingSkipped marks responses for which ranking was never requested.
	RankingSkipped RankingStatus = "skipped"
)

// RankedItem is one recommendation as returned by the ranking service.
// Nothing in it is trusted until the assembler has matched it to a candidate.
type RankedItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// RankingOutcome is the validated result of one ranking call.
type RankingOutcome struct {
	Status  RankingStatus
	Summary string
	Items   []RankedItem
	Err     error
}

// Ranker orders candidates for a query. Implementations never return an
// error; failures are reported through the outcome status.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []dbmodels.Book) RankingOutcome
}

// LLMRanker asks the LLM routed for TaskRecommendationRanking to pick and
// justify books from the candidate list.
type LLMRanker struct {
	router        repository.LLMRouter
	guard         *resilience.Guard[string]
	timeout       time.Duration
	maxCandidates int
}

func NewLLMRanker(router repository.LLMRouter, guard *resilience.Guard[string], timeout time.Duration, maxCandidates int) *LLMRanker {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxCandidates <= 0 {
		maxCandidates = 20
	}
	return &LLMRanker{router: router, guard: guard, timeout: timeout, maxCandidates: maxCandidates}
}

type rankingCandidate struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject"`
	Popularity float64 `json:"popularity"`
}

type rankingPayload struct {
	Summary         string       `json:"summary"`
	Recommendations []RankedItem `json:"recommendations"`
}

const rankingPrompt = `你是一名图书推荐助手。用户的查询是：「%s」。
下面是候选图书列表（JSON）：
%s

请从候选列表中挑选最符合用户需求的图书并排序，为每本书写一句推荐理由。
只能使用候选列表中的 id，不要编造图书。
只返回一个 JSON 对象，格式为：
{"summary": "一句话总结", "recommendations": [{"id": "...", "title": "...", "author": "...", "subject": "...", "reason": "..."}]}`

// Rank calls the ranking service once. It is never retried within a request.
func (r *LLMRanker) Rank(ctx context.Context, query string, candidates []dbmodels.Book) RankingOutcome {
	outcome := r.rank(ctx, query, candidates)
	metrics.RankingOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	if outcome.Status != RankingOK {
		logging.Warn().Err(outcome.Err).Str("status", string(outcome.Status)).Str("query", query).
			Msg("[Ranking] falling back to catalog order")
	}
	return outcome
}

func (r *LLMRanker) rank(ctx context.Context, query string, candidates []dbmodels.Book) RankingOutcome {
	if r.router == nil {
		return RankingOutcome{Status: RankingUnavailable, Err: errors.New("no LLM router configured")}
	}
	client := r.router.RouteLLMTask(llm.TaskRecommendationRanking)
	if client == nil {
		return RankingOutcome{Status: RankingUnavailable, Err: errors.New("no LLM backend for ranking")}
	}

	prompt, err := r.buildPrompt(query, candidates)
	if err != nil {
		return RankingOutcome{Status: RankingUnavailable, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	generate := func(ctx context.Context) (string, error) { return client.Generate(ctx, prompt) }
	var raw string
	if r.guard != nil {
		raw, err = r.guard.Execute(ctx, generate)
	} else {
		raw, err = generate(ctx)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return RankingOutcome{Status: RankingTimeout, Err: fmt.Errorf("%w: %w", ErrRankingTimeout, err)}
		}
		return RankingOutcome{Status: RankingUnavailable, Err: fmt.Errorf("%s: %w", client.Name(), err)}
	}

	return parseRanking(raw)
}

func (r *LLMRanker) buildPrompt(query string, candidates []dbmodels.Book) (string, error) {
	if len(candidates) > r.maxCandidates {
		candidates = candidates[:r.maxCandidates]
	}
	list := make([]rankingCandidate, len(candidates))
	for i, b := range candidates {
		list[i] = rankingCandidate{ID: b.ID, Title: b.Title, Author: b.Author, Subject: b.Subject, Popularity: b.Popularity}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal ranking candidates: %w", err)
	}
	return fmt.Sprintf(rankingPrompt, query, data), nil
}

// parseRanking validates a raw service reply into an outcome.
func parseRanking(raw string) RankingOutcome {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return RankingOutcome{Status: RankingMalformed, Err: fmt.Errorf("%w: no JSON object in reply", ErrRankingMalformed)}
	}
	var payload rankingPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return RankingOutcome{Status: RankingMalformed, Err: fmt.Errorf("%w: %w", ErrRankingMalformed, err)}
	}
	if len(payload.Recommendations) == 0 {
		return RankingOutcome{Status: RankingEmpty, Summary: payload.Summary, Err: ErrRankingEmpty}
	}
	return RankingOutcome{Status: RankingOK, Summary: strings.TrimSpace(payload.Summary), Items: payload.Recommendations}
}

// extractJSONObject returns the first balanced {...} in s. Braces inside
// JSON strings are ignored, so prose or code fences around the object are
// tolerated.
func extractJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
