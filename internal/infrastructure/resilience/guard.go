// Package resilience wraps calls to flaky remote services with a circuit
// breaker and a client-side rate limit.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/booksage/booksage-recommend/internal/logging"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Settings configures a Guard.
type Settings struct {
	Name string
	// FailThreshold consecutive failures open the circuit.
	FailThreshold uint32
	// OpenTimeout is how long the circuit stays open before a probe is allowed.
	OpenTimeout time.Duration
	// RequestsPerSecond caps call rate; zero or less disables limiting.
	RequestsPerSecond float64
}

// Guard runs calls through a rate limiter and then a circuit breaker.
// Rejections surface as gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
type Guard[T any] struct {
	name    string
	cb      *gobreaker.CircuitBreaker[T]
	limiter *rate.Limiter
}

func NewGuard[T any](s Settings) *Guard[T] {
	if s.FailThreshold == 0 {
		s.FailThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	burst := 0
	if s.RequestsPerSecond > 0 {
		limit = rate.Limit(s.RequestsPerSecond)
		burst = max(1, int(s.RequestsPerSecond))
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CircuitBreaker] state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Guard[T]{
		name:    s.Name,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Execute waits for a rate-limit token and runs fn through the breaker.
func (g *Guard[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		var zero T
		// the limiter refuses early when the wait would outlast the deadline
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return zero, fmt.Errorf("rate limit wait for %s: %w: %w", g.name, context.DeadlineExceeded, err)
		}
		return zero, fmt.Errorf("rate limit wait for %s: %w", g.name, err)
	}
	return g.cb.Execute(func() (T, error) {
		return fn(ctx)
	})
}

// State returns the current breaker state.
func (g *Guard[T]) State() gobreaker.State {
	return g.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
