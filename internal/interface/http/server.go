package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/booksage/booksage-recommend/internal/database"
	dbmodels "github.com/booksage/booksage-recommend/internal/database/models"
	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 64 << 10
	viewCountBudget = 5 * time.Second
)

// Recommender answers free-text recommendation queries.
type Recommender interface {
	ResolveAndRecommend(ctx context.Context, text string, limit int) *models.Response
}

// BookCatalog is the slice of the catalog the book detail endpoint needs.
type BookCatalog interface {
	GetBookByID(ctx context.Context, id string) (*dbmodels.Book, error)
	IncrementViewCount(ctx context.Context, id string) error
}

// Server holds the dependencies for the HTTP API server
type Server struct {
	recommender    Recommender
	catalog        BookCatalog
	requestTimeout time.Duration

	// background view-count writes
	pending sync.WaitGroup
}

// NewServer initializes a new API server with the required dependencies
func NewServer(rec Recommender, catalog BookCatalog, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Server{recommender: rec, catalog: catalog, requestTimeout: requestTimeout}
}

// RegisterRoutes builds the chi router with all API endpoints.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog)

	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.requestTimeout))
		r.Post("/recommend", s.handleRecommend)
		r.Get("/recommend", s.handleRecommendQuery)
		r.Get("/books/{id}", s.handleBook)
	})

	return r
}

// Wait blocks until background writes started by handlers have finished.
func (s *Server) Wait() {
	s.pending.Wait()
}

type RecommendRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	s.recommend(w, r, req)
}

func (s *Server) handleRecommendQuery(w http.ResponseWriter, r *http.Request) {
	req := RecommendRequest{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	s.recommend(w, r, req)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, req RecommendRequest) {
	resp := s.recommender.ResolveAndRecommend(r.Context(), req.Query, req.Limit)

	status := http.StatusOK
	if strings.TrimSpace(req.Query) == "" {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := s.catalog.GetBookByID(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "book not found")
		return
	case err != nil:
		logging.Warn().Err(err).Str("id", id).Msg("[HTTP] catalog lookup failed")
		respondError(w, r, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}

	// The counter update must not delay or fail the read.
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), viewCountBudget)
		defer cancel()
		if err := s.catalog.IncrementViewCount(ctx, id); err != nil {
			logging.Warn().Err(err).Str("id", id).Msg("[HTTP] view count update failed")
		}
	}()

	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("[HTTP] failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Warn().Err(err).Msg("[HTTP] failed to write response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, status, errorResponse{
		Success:   false,
		Message:   message,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

// withRequestID makes sure every request carries a UUID correlation id
// before chi's RequestID middleware copies it into the context.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(elapsed.Seconds())

		log := logging.WithComponent("http")
		log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("[HTTP] request served")
	})
}
