// Package cache centralises the read-through caching used by the
// recommendation pipeline: key derivation, TTL policy and coalescing of
// identical concurrent misses.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/booksage/booksage-recommend/internal/domain/repository"
	"github.com/booksage/booksage-recommend/internal/infrastructure/metrics"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

// Namespace prefixes every key written by the facade.
const Namespace = "booksage"

// ResultType namespaces keys and selects the TTL of a cached value.
type ResultType string

const (
	ResultAuthor     ResultType = "author"
	ResultCandidates ResultType = "candidates"
	ResultRecommend  ResultType = "recommend"
)

// Cacheable values report whether they are empty or degraded, which caps
// their TTL at Policy.Degraded.
type Cacheable interface {
	Degraded() bool
}

// Policy holds the TTL per result type.
type Policy struct {
	// Rich applies to author resolutions.
	Rich time.Duration
	// Result applies to candidate sets and recommendations.
	Result time.Duration
	// Degraded caps empty or degraded values of any type.
	Degraded time.Duration
}

// DefaultPolicy is 30 minutes for author profiles, 15 for results and 5 for
// anything empty or degraded.
var DefaultPolicy = Policy{
	Rich:     30 * time.Minute,
	Result:   15 * time.Minute,
	Degraded: 5 * time.Minute,
}

// Facade is a get-or-compute wrapper over a best-effort CacheStore. A nil
// store disables caching; store failures are logged and bypassed.
type Facade struct {
	store  repository.CacheStore
	policy Policy
	group  singleflight.Group
}

func NewFacade(store repository.CacheStore, policy Policy) *Facade {
	return &Facade{store: store, policy: policy}
}

// TTL returns the time-to-live for a value of the given type.
func (f *Facade) TTL(rt ResultType, degraded bool) time.Duration {
	ttl := f.policy.Result
	if rt == ResultAuthor {
		ttl = f.policy.Rich
	}
	if degraded && f.policy.Degraded < ttl {
		ttl = f.policy.Degraded
	}
	return ttl
}

// Key derives a deterministic key from the ordered parts.
func Key(rt ResultType, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		return fmt.Sprintf("%s:%s:%v", Namespace, rt, parts)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%x", Namespace, rt, hash[:16])
}

// GetOrCompute returns the cached value for (rt, parts) or runs compute and
// stores its result. Concurrent misses on the same key share one compute,
// which runs detached from the caller's cancellation but keeps its deadline;
// a caller that gives up gets ctx.Err() while the shared compute finishes.
// Errors from compute are returned and never cached, and neither is a value
// computed after its context expired.
func GetOrCompute[T any, PT interface {
	*T
	Cacheable
}](ctx context.Context, f *Facade, rt ResultType, parts []any, compute func(ctx context.Context) (PT, error)) (PT, error) {
	var zero PT
	key := Key(rt, parts...)
	log := logging.WithComponent("cache")

	if cached, ok := f.lookup(ctx, rt, key); ok {
		value := PT(new(T))
		if err := json.Unmarshal(cached, value); err == nil {
			metrics.CacheRequests.WithLabelValues(string(rt), "hit").Inc()
			return value, nil
		}
		log.Warn().Str("key", key).Msg("[Cache] undecodable entry, recomputing")
	}
	metrics.CacheRequests.WithLabelValues(string(rt), "miss").Inc()

	run := func() (any, error) {
		computeCtx, cancel := detachedContext(ctx)
		defer cancel()

		value, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		// failures seen by an expired compute look like empty results
		if err := computeCtx.Err(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("[Cache] context expired during compute, not caching")
			return nil, err
		}
		f.write(computeCtx, rt, key, value)
		return value, nil
	}

	for attempt := 0; ; attempt++ {
		select {
		case res := <-f.group.DoChan(key, run):
			if res.Err != nil {
				// another caller's deadline ended the shared compute; run our own
				if attempt == 0 && res.Shared && ctx.Err() == nil && isContextErr(res.Err) {
					continue
				}
				return zero, res.Err
			}
			if res.Shared {
				log.Debug().Str("key", key).Msg("[Cache] coalesced concurrent miss")
			}
			return res.Val.(PT), nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// detachedContext keeps ctx's values and deadline but not its cancellation.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return context.WithCancel(detached)
}

func (f *Facade) lookup(ctx context.Context, rt ResultType, key string) ([]byte, bool) {
	if f.store == nil {
		return nil, false
	}
	data, found, err := f.store.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(string(rt), "error").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("[Cache] store unavailable, computing directly")
		return nil, false
	}
	return data, found
}

func (f *Facade) write(ctx context.Context, rt ResultType, key string, value Cacheable) {
	if f.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("[Cache] value not serialisable, skipping write")
		return
	}
	ttl := f.TTL(rt, value.Degraded())
	if err := f.store.Set(ctx, key, data, ttl); err != nil {
		metrics.CacheRequests.WithLabelValues(string(rt), "error").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("[Cache] write failed")
	}
}
