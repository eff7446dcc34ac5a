// Package metrics implements the Metrics Aggregator (§4.8): dashboard
// counters computed over a rolling window and cached process-locally for a
// short TTL so GET /api/metrics doesn't recompute aggregate SQL on every
// poll. Grounded on catchup-feed-backend's internal/observability/metrics
// cache-with-TTL pattern, generalized from its own request-rate gauges to
// the job/article counters this engine tracks.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/newsscrape/engine/internal/domain"
)

// Repository is the persistence seam the aggregator recomputes through on
// a cache miss.
type Repository interface {
	Compute(ctx context.Context, window time.Duration) (domain.DashboardMetrics, error)
}

// Aggregator serves §4.8's GET /api/metrics counters from a short-lived
// process-local cache.
type Aggregator struct {
	repo   Repository
	window time.Duration
	ttl    time.Duration

	mu        sync.Mutex
	cached    domain.DashboardMetrics
	cachedAt  time.Time
	hasCached bool
}

func New(repo Repository, window, ttl time.Duration) *Aggregator {
	return &Aggregator{repo: repo, window: window, ttl: ttl}
}

// Get returns the cached dashboard metrics if still fresh, or recomputes
// them otherwise. Concurrent callers during a cache miss each trigger their
// own recompute; the cache is an optimization, not a request-coalescing
// mechanism.
func (a *Aggregator) Get(ctx context.Context) (domain.DashboardMetrics, error) {
	a.mu.Lock()
	if a.hasCached && time.Since(a.cachedAt) < a.ttl {
		cached := a.cached
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	fresh, err := a.repo.Compute(ctx, a.window)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	a.mu.Lock()
	a.cached = fresh
	a.cachedAt = time.Now()
	a.hasCached = true
	a.mu.Unlock()

	return fresh, nil
}
