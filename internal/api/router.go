// Package api assembles the §4.7 HTTP control surface: a chi router wiring
// the job lifecycle, source registry, content search and metrics dashboard
// handlers behind the same middleware stack (request id, structured
// logging, Prometheus instrumentation, recovery, timeout, CORS) the teacher
// repo used for its listings API.
package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newsscrape/engine/internal/api/handlers"
	mw "github.com/newsscrape/engine/internal/api/middleware"
)

// Server wires the resource handlers behind chi's router.
type Server struct {
	router *chi.Mux
	db     *sqlx.DB
}

func NewServer(
	db *sqlx.DB,
	jobs handlers.JobManager,
	sources handlers.SourceRegistry,
	content handlers.ContentRepository,
	dashboard handlers.MetricsAggregator,
) *Server {
	s := &Server{router: chi.NewRouter(), db: db}
	s.setupRoutes(jobs, sources, content, dashboard)
	return s
}

func (s *Server) setupRoutes(
	jobs handlers.JobManager,
	sources handlers.SourceRegistry,
	content handlers.ContentRepository,
	dashboard handlers.MetricsAggregator,
) {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.StructuredLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthCheck)
	r.Get("/ready", s.readinessCheck)
	r.Handle("/metrics", promhttp.Handler())

	jobHandler := handlers.NewJobHandler(jobs, sources)
	sourceHandler := handlers.NewSourceHandler(sources)
	contentHandler := handlers.NewContentHandler(content)
	metricsHandler := handlers.NewMetricsHandler(dashboard)

	// Triggering a job fans out to every requested source's RSS feed and
	// article pool, so it gets its own per-client-address limiter: a few
	// manual triggers are fine, a burst isn't.
	scrapeLimiter := mw.NewRateLimiter(6, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.With(scrapeLimiter.Middleware).Post("/scrape", jobHandler.Create)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.List)
			r.Get("/{id}", jobHandler.Get)
			r.Get("/{id}/logs", jobHandler.Logs)
			r.Delete("/{id}", jobHandler.Cancel)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", sourceHandler.List)
			r.Post("/", sourceHandler.Create)
			r.Get("/{id}", sourceHandler.Get)
			r.Patch("/{id}", sourceHandler.Update)
			r.Delete("/{id}", sourceHandler.Delete)
			r.Patch("/{id}/test", sourceHandler.Test)
		})

		r.Route("/content", func(r chi.Router) {
			r.Get("/", contentHandler.Search)
			r.Get("/{id}", contentHandler.Get)
		})

		r.Get("/metrics", metricsHandler.Dashboard)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var dbOK bool
	var dbLatency time.Duration
	dbStart := time.Now()
	if err := s.db.PingContext(ctx); err == nil {
		dbOK = true
		dbLatency = time.Since(dbStart)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !dbOK {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": map[string]interface{}{
			"database": map[string]interface{}{
				"status":     dbOK,
				"latency_ms": dbLatency.Milliseconds(),
			},
		},
		"system": map[string]interface{}{
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": mem.Alloc,
			"memory_sys":   mem.Sys,
			"gc_cycles":    mem.NumGC,
		},
		"time": time.Now().UTC(),
	})
}

func (s *Server) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var sourceCount int
	err := s.db.GetContext(ctx, &sourceCount, "SELECT COUNT(*) FROM sources LIMIT 1")

	ready := err == nil
	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"ready":  ready,
		"time":   time.Now().UTC(),
	})
}
