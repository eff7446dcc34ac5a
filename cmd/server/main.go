// Command server runs the Scraping Engine's HTTP API and job dispatch
// process. It mirrors the teacher's cmd/scraper/main.go bootstrap (connect
// both the sqlx and pgx pools off one DATABASE_URL, wire River, wait for a
// shutdown signal) extended with the chi HTTP server §4.7 requires.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/newsscrape/engine/internal/api"
	"github.com/newsscrape/engine/internal/config"
	"github.com/newsscrape/engine/internal/jobmanager"
	"github.com/newsscrape/engine/internal/logging"
	"github.com/newsscrape/engine/internal/metrics"
	"github.com/newsscrape/engine/internal/migrate"
	"github.com/newsscrape/engine/internal/pipeline"
	"github.com/newsscrape/engine/internal/repository"
	"github.com/newsscrape/engine/internal/scheduler"
	"github.com/newsscrape/engine/internal/sourceregistry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	if err := migrate.Run(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db, err := repository.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	pool, err := repository.ConnectPool(ctx, cfg)
	if err != nil {
		log.Fatalf("create pgx pool: %v", err)
	}
	defer pool.Close()

	jobRepo := repository.NewJobRepository(db)
	contentRepo := repository.NewContentRepository(db)
	logRepo := repository.NewLogRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)

	logger := logging.New(logRepo, cfg.Debug)

	scrapePipeline := pipeline.New(pipeline.Config{
		SourceConcurrency:  cfg.SourceConcurrency,
		ArticleConcurrency: cfg.ArticleConcurrency,
		RSSFetchTimeout:    cfg.RSSFetchTimeout,
	}, jobRepo, contentRepo, logger)

	manager := jobmanager.New(jobRepo, logRepo, sourceRepo, scrapePipeline, logger, cfg.StuckJobThreshold)
	registry := sourceregistry.New(sourceRepo)
	aggregator := metrics.New(metricsRepo, cfg.MetricsWindow, cfg.MetricsCacheTTL)

	if err := manager.RecoverOrphans(ctx); err != nil {
		log.Printf("startup orphan recovery failed: %v", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, scheduler.NewOrphanSweepWorker(manager))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: scheduler.PeriodicJobs(cfg.StuckJobThreshold),
	})
	if err != nil {
		log.Fatalf("create river client: %v", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		log.Fatalf("start river client: %v", err)
	}

	server := api.NewServer(db, manager, registry, contentRepo, aggregator)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server,
	}

	go func() {
		log.Printf("scraping engine listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.Printf("river client shutdown: %v", err)
	}
}
