package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/booksage/booksage-recommend/internal/usecase/cache"
)

// Options bounds the work done per request.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// Overfetch multiplies the limit when pulling candidates for ranking.
	Overfetch int
	// MaxRankCandidates caps how many candidates are sent to the ranker.
	MaxRankCandidates int
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{DefaultLimit: 10, MaxLimit: 50, Overfetch: 3, MaxRankCandidates: 20}

// Pipeline is the resolve-and-recommend entry point. All collaborators are
// injected; the pipeline owns no connections.
type Pipeline struct {
	classifier *Classifier
	resolver   *AuthorResolver
	search     *CandidateSearch
	ranker     Ranker
	assembler  *Assembler
	cache      *cache.Facade
	opts       Options
}

func NewPipeline(classifier *Classifier, resolver *AuthorResolver, search *CandidateSearch, ranker Ranker, assembler *Assembler, facade *cache.Facade, opts Options) *Pipeline {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultOptions.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = max(DefaultOptions.MaxLimit, opts.DefaultLimit)
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = DefaultOptions.Overfetch
	}
	if opts.MaxRankCandidates <= 0 {
		opts.MaxRankCandidates = DefaultOptions.MaxRankCandidates
	}
	if facade == nil {
		facade = cache.NewFacade(nil, cache.DefaultPolicy)
	}
	return &Pipeline{
		classifier: classifier,
		resolver:   resolver,
		search:     search,
		ranker:     ranker,
		assembler:  assembler,
		cache:      facade,
		opts:       opts,
	}
}

// NormalizeLimit maps non-positive limits to the default and caps the rest.
func (p *Pipeline) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return p.opts.DefaultLimit
	}
	return min(limit, p.opts.MaxLimit)
}

// ResolveAndRecommend answers a free-text query. It never fails: problems
// degrade into an unsuccessful response with an explanatory message.
func (p *Pipeline) ResolveAndRecommend(ctx context.Context, text string, limit int) *models.Response {
	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	q := strings.TrimSpace(text)
	if q == "" {
		return &models.Response{
			Success:     false,
			Items:       []models.RecommendationItem{},
			Message:     "请输入查询内容。",
			Diagnostics: models.Diagnostics{Path: models.PathNone, RankingStatus: string(RankingSkipped)},
		}
	}
	limit = p.NormalizeLimit(limit)

	resp, err := cache.GetOrCompute(ctx, p.cache, cache.ResultRecommend, []any{q, limit}, func(ctx context.Context) (*models.Response, error) {
		return p.compute(ctx, q, limit), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(q, ctx.Err())
		}
		return p.compute(ctx, q, limit)
	}
	return resp
}

// cancelled answers a request whose context ended before a result was ready.
func cancelled(q string, err error) *models.Response {
	log := logging.WithComponent("pipeline")
	log.Info().Err(err).Str("query", q).Msg("[Pipeline] request ended before completion")
	return &models.Response{
		Success:     false,
		Items:       []models.RecommendationItem{},
		Message:     "请求已取消或超时，请稍后重试。",
		Diagnostics: models.Diagnostics{Path: models.PathNone, RankingStatus: string(RankingSkipped)},
	}
}

func (p *Pipeline) compute(ctx context.Context, q string, limit int) *models.Response {
	log := logging.WithComponent("pipeline")
	fetch := limit * p.opts.Overfetch

	cls := p.classifier.Classify(q)

	var (
		set   *models.CandidateSet
		match *models.AuthorMatch
	)
	if cls.Type == models.QueryTypeAuthor {
		match = p.resolveFirst(ctx, cls.Candidates)
		if match != nil {
			set = p.authorCandidates(ctx, match.CanonicalName, fetch)
		}
		if set == nil || len(set.Items) == 0 {
			match = nil
			cls = p.classifier.ClassifyTopic(q)
		}
	}
	if match == nil {
		set = p.topicCandidates(ctx, q, cls, fetch)
	}

	if set.NoMatch || len(set.Items) == 0 {
		metrics.PipelineResolutions.WithLabelValues(models.PathNone, string(set.Tier)).Inc()
		log.Info().Str("query", q).Msg("[Pipeline] no match")
		return &models.Response{
			Success: false,
			Items:   []models.RecommendationItem{},
			Message: fmt.Sprintf("没有找到与「%s」相关的图书，换个说法试试吧。", q),
			Diagnostics: models.Diagnostics{
				Path:          models.PathNone,
				TierUsed:      string(set.Tier),
				RankingStatus: string(RankingSkipped),
			},
		}
	}

	rankInput := set.Items[:min(len(set.Items), p.opts.MaxRankCandidates)]
	outcome := p.ranker.Rank(ctx, q, rankInput)
	items, ranked := p.assembler.Assemble(q, set, limit, outcome)

	status := outcome.Status
	if status == RankingOK && !ranked {
		// every ranked item was rejected by validation
		status = RankingMalformed
	}

	diag := models.Diagnostics{
		Path:           models.PathTopic,
		TierUsed:       string(set.Tier),
		CandidateCount: len(set.Items),
		RankingStatus:  string(status),
	}
	if match != nil {
		diag.Path = models.PathAuthor
		diag.TierUsed = string(match.MatchTier)
		diag.Author = match.CanonicalName
	}
	metrics.PipelineResolutions.WithLabelValues(diag.Path, diag.TierUsed).Inc()

	log.Info().Str("query", q).Str("path", diag.Path).Str("tier", diag.TierUsed).
		Int("count", len(items)).Str("ranking", string(status)).Msg("[Pipeline] resolved")

	return &models.Response{
		Success:     true,
		Items:       items,
		Summary:     summarize(q, match, outcome, ranked, len(items)),
		Message:     message(diag, match, ranked),
		Diagnostics: diag,
	}
}

// resolveFirst tries candidates in confidence order, skipping repeated names.
func (p *Pipeline) resolveFirst(ctx context.Context, candidates []models.ExtractedCandidate) *models.AuthorMatch {
	tried := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := tried[c.Name]; dup {
			continue
		}
		tried[c.Name] = struct{}{}

		res, err := cache.GetOrCompute(ctx, p.cache, cache.ResultAuthor, []any{c.Name}, func(ctx context.Context) (*AuthorResolution, error) {
			return &AuthorResolution{Match: p.resolver.Resolve(ctx, c.Name)}, nil
		})
		if err == nil && res.Match != nil {
			return res.Match
		}
	}
	return nil
}

func (p *Pipeline) authorCandidates(ctx context.Context, author string, fetch int) *models.CandidateSet {
	set, err := cache.GetOrCompute(ctx, p.cache, cache.ResultCandidates, []any{models.PathAuthor, author, fetch}, func(ctx context.Context) (*models.CandidateSet, error) {
		return p.search.ForAuthor(ctx, author, fetch), nil
	})
	if err != nil {
		return p.search.ForAuthor(ctx, author, fetch)
	}
	return set
}

func (p *Pipeline) topicCandidates(ctx context.Context, q string, cls models.Classification, fetch int) *models.CandidateSet {
	set, err := cache.GetOrCompute(ctx, p.cache, cache.ResultCandidates, []any{models.PathTopic, q, fetch}, func(ctx context.Context) (*models.CandidateSet, error) {
		return p.search.Search(ctx, q, cls, fetch), nil
	})
	if err != nil {
		return p.search.Search(ctx, q, cls, fetch)
	}
	return set
}

func summarize(q string, match *models.AuthorMatch, outcome RankingOutcome, ranked bool, n int) string {
	if ranked && outcome.Summary != "" {
		return outcome.Summary
	}
	if match != nil {
		return match.Describe()
	}
	return fmt.Sprintf("为您找到%d本与「%s」相关的图书。", n, q)
}

func message(diag models.Diagnostics, match *models.AuthorMatch, ranked bool) string {
	var msg string
	switch {
	case match != nil:
		msg = fmt.Sprintf("已识别作者「%s」（%s匹配）。", match.CanonicalName, match.MatchTier)
	default:
		msg = fmt.Sprintf("按主题检索（%s层）。", diag.TierUsed)
	}
	if !ranked {
		msg += "智能排序暂不可用，已按热度排序。"
	}
	return msg
}
