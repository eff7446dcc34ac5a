package pipeline

import (
	"time"

	"github.com/sony/gobreaker"
)

// newSourceBreaker returns a per-source circuit breaker tuned for RSS/
// article fetches, adapted from catchup-feed-backend's
// circuitbreaker.FeedFetchConfig (internal/resilience/circuitbreaker):
// trip once at least 5 requests have been seen and 70% of them failed,
// then hold open for a minute before probing again.
func newSourceBreaker(name string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.7
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}
