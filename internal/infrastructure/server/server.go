package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/booksage/booksage-recommend/internal/config"
	"github.com/booksage/booksage-recommend/internal/database/bunstore"
	"github.com/booksage/booksage-recommend/internal/domain/repository"
	"github.com/booksage/booksage-recommend/internal/infrastructure/cachestore"
	"github.com/booksage/booksage-recommend/internal/infrastructure/llm"
	"github.com/booksage/booksage-recommend/internal/infrastructure/resilience"
	httpserver "github.com/booksage/booksage-recommend/internal/interface/http"
	"github.com/booksage/booksage-recommend/internal/lexicon"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/booksage/booksage-recommend/internal/usecase/cache"
	"github.com/booksage/booksage-recommend/internal/usecase/query"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const shutdownTimeout = 10 * time.Second

// App is the wired object graph shared by the serve, query and import commands.
type App struct {
	Catalog  *bunstore.BunStore
	Pipeline *query.Pipeline

	local   *llm.LocalOllamaClient
	closers []func() error
}

// Build initializes every dependency from cfg. The cache is best-effort: if
// badger cannot be opened the pipeline runs uncached.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.WithComponent("bootstrap")
	app := &App{}

	catalog, err := OpenCatalog(cfg.CatalogDSN)
	if err != nil {
		return nil, err
	}
	app.Catalog = catalog
	app.closers = append(app.closers, catalog.Close)

	var store repository.CacheStore
	badgerStore, err := cachestore.Open(cfg.CacheDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("[System] cache unavailable, running uncached")
	} else {
		store = badgerStore
		app.closers = append(app.closers, badgerStore.Close)
	}

	// Initialize the LLM clients. Gemini stays a nil interface in local-only
	// mode so the router falls through to Ollama.
	app.local = llm.NewLocalOllamaClient(cfg.OllamaHost, cfg.OllamaModel, nil)
	var cloud repository.LLMClient
	if !cfg.UseLocalOnlyLLM {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		cloud = gemini
		app.closers = append(app.closers, gemini.Close)
	}
	router := llm.NewRouter(app.local, cloud)

	guard := resilience.NewGuard[string](resilience.Settings{
		Name:              "ranking",
		FailThreshold:     cfg.BreakerFailThreshold,
		OpenTimeout:       cfg.BreakerOpenTimeout,
		RequestsPerSecond: cfg.RankingRPS,
	})
	ranker := query.NewLLMRanker(router, guard, cfg.RankingTimeout, cfg.RankingMaxCandidates)

	facade := cache.NewFacade(store, cache.Policy{
		Rich:     cfg.CacheTTLRich,
		Result:   cfg.CacheTTLResult,
		Degraded: cfg.CacheTTLDegraded,
	})

	mapper := lexicon.NewMapper()
	app.Pipeline = query.NewPipeline(
		query.NewClassifier(mapper),
		query.NewAuthorResolver(catalog, nil),
		query.NewCandidateSearch(catalog, mapper),
		ranker,
		query.NewAssembler(),
		facade,
		query.Options{
			DefaultLimit:      cfg.DefaultLimit,
			MaxLimit:          cfg.MaxLimit,
			Overfetch:         cfg.Overfetch,
			MaxRankCandidates: cfg.RankingMaxCandidates,
		},
	)

	log.Info().Str("ranking_backend", router.RouteLLMTask(llm.TaskRecommendationRanking).Name()).
		Bool("cache", store != nil).Msg("[System] dependencies initialized")
	return app, nil
}

// OpenCatalog opens the SQLite catalog through bun and ensures its schema.
func OpenCatalog(dsn string) (*bunstore.BunStore, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", dsn, err)
	}
	// SQLite allows one writer; a single connection also keeps in-memory DSNs alive.
	db.SetMaxOpenConns(1)

	store, err := bunstore.NewBunStore(db, sqlitedialect.New())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Server runs the HTTP API until SIGINT/SIGTERM or ctx cancellation.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run(ctx context.Context) error {
	log := logging.WithComponent("server")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := Build(ctx, s.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("[System] failed to release resources")
		}
	}()

	if s.cfg.UseLocalOnlyLLM {
		if err := app.local.PullModel(ctx); err != nil {
			log.Warn().Err(err).Msg("[System] failed to pull local model, ranking will degrade until it is available")
		}
	}

	api := httpserver.NewServer(app.Pipeline, app.Catalog, s.cfg.RankingTimeout+10*time.Second)
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           api.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.HTTPAddr).Msg("[System] starting REST API server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("[System] shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[System] HTTP shutdown error")
	}
	api.Wait()

	log.Info().Msg("[System] server stopped gracefully")
	return nil
}
