package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/newsscrape/engine/internal/domain"
)

// MetricsRepository runs the aggregate queries behind the Metrics
// Aggregator (§4.8). Each query is scoped to the rolling window the caller
// supplies, except activeJobs, which is never time-bound (a job doesn't
// stop being "active" because it was triggered a week ago), and
// recentErrors, which always covers the last 24 hours.
type MetricsRepository struct {
	db *sqlx.DB
}

func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// Compute runs the six §4.8 counters in a handful of scalar queries. It is
// not itself cached; internal/metrics.Aggregator wraps it with the ~60s TTL
// the spec requires.
func (r *MetricsRepository) Compute(ctx context.Context, window time.Duration) (domain.DashboardMetrics, error) {
	var m domain.DashboardMetrics
	since := time.Now().UTC().Add(-window)

	if err := r.db.GetContext(ctx, &m.JobsTriggered, `
		SELECT COUNT(*) FROM scraping_jobs WHERE triggered_at >= $1
	`, since); err != nil {
		return m, fmt.Errorf("count jobs triggered: %w", err)
	}

	var completedTerminal, totalTerminal int
	if err := r.db.GetContext(ctx, &totalTerminal, `
		SELECT COUNT(*) FROM scraping_jobs
		WHERE triggered_at >= $1 AND status IN ('successful','partial','failed','cancelled')
	`, since); err != nil {
		return m, fmt.Errorf("count terminal jobs: %w", err)
	}
	if err := r.db.GetContext(ctx, &completedTerminal, `
		SELECT COUNT(*) FROM scraping_jobs
		WHERE triggered_at >= $1 AND status IN ('successful','partial')
	`, since); err != nil {
		return m, fmt.Errorf("count completed jobs: %w", err)
	}
	if totalTerminal > 0 {
		rate := float64(completedTerminal) / float64(totalTerminal) * 100
		m.SuccessRate = roundToTwoDecimals(rate)
	}

	var articles *int
	if err := r.db.GetContext(ctx, &articles, `
		SELECT SUM(total_articles_scraped) FROM scraping_jobs WHERE triggered_at >= $1
	`, since); err != nil {
		return m, fmt.Errorf("sum articles scraped: %w", err)
	}
	if articles != nil {
		m.ArticlesScraped = *articles
	}

	var avgSeconds *float64
	if err := r.db.GetContext(ctx, &avgSeconds, `
		SELECT AVG(EXTRACT(EPOCH FROM (completed_at - triggered_at)))
		FROM scraping_jobs
		WHERE triggered_at >= $1 AND completed_at IS NOT NULL
	`, since); err != nil {
		return m, fmt.Errorf("average job duration: %w", err)
	}
	if avgSeconds != nil {
		m.AverageJobDuration = roundToTwoDecimals(*avgSeconds)
	}

	if err := r.db.GetContext(ctx, &m.ActiveJobs, `
		SELECT COUNT(*) FROM scraping_jobs WHERE status IN ('new','in-progress')
	`); err != nil {
		return m, fmt.Errorf("count active jobs: %w", err)
	}

	if err := r.db.GetContext(ctx, &m.RecentErrors, `
		SELECT COUNT(*) FROM scraping_jobs
		WHERE status = 'failed' AND triggered_at >= $1
	`, time.Now().UTC().Add(-24*time.Hour)); err != nil {
		return m, fmt.Errorf("count recent errors: %w", err)
	}

	return m, nil
}

func roundToTwoDecimals(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
