// Package obsmetrics holds the Prometheus instruments shared across
// layers that otherwise have no business depending on each other —
// internal/pipeline (job/article counters), internal/repository (content
// gauge) and internal/api/middleware (HTTP counters stay there, since
// they're purely an HTTP-layer concern). Split out of the teacher's single
// internal/api/middleware/metrics.go so the scraping pipeline doesn't need
// to import an HTTP middleware package just to record a counter.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScrapeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trough_scrape_jobs_total",
			Help: "Total number of scrape jobs by source and status",
		},
		[]string{"source", "status"},
	)

	ScrapeArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trough_scrape_articles_total",
			Help: "Total number of articles scraped by source and outcome",
		},
		[]string{"source", "status"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trough_scrape_duration_seconds",
			Help:    "Duration of scrape jobs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"source"},
	)

	ContentTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trough_content_total",
			Help: "Total number of scraped content rows persisted by source and language",
		},
		[]string{"source", "language"},
	)
)
