// Command admin is a direct-repository administrative CLI — source
// seeding, job triggering/listing/cancelling, and aggregate stats —
// modeled on the teacher's cmd/cli (cobra, one root command connecting
// to the database in PersistentPreRunE, one subcommand tree per concern).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/newsscrape/engine/internal/config"
	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/jobmanager"
	"github.com/newsscrape/engine/internal/logging"
	"github.com/newsscrape/engine/internal/pipeline"
	"github.com/newsscrape/engine/internal/repository"
	"github.com/newsscrape/engine/internal/sourceregistry"
)

var db *sqlx.DB

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Scraping Engine administrative CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			cfg := config.Load()
			var err error
			db, err = sqlx.Connect("postgres", cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if db != nil {
				db.Close()
			}
		},
	}

	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sources", Short: "Manage configured news sources"}
	cmd.AddCommand(sourcesSeedCmd())
	cmd.AddCommand(sourcesListCmd())
	return cmd
}

var defaultSeedSources = []domain.SourceCreate{
	{Name: "BBC News", Domain: "bbc.co.uk", RSSURL: "https://feeds.bbci.co.uk/news/rss.xml"},
	{Name: "Reuters", Domain: "reuters.com", RSSURL: "https://www.reutersagency.com/feed/"},
	{Name: "NPR", Domain: "npr.org", RSSURL: "https://feeds.npr.org/1001/rss.xml"},
}

func sourcesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with a starter set of news sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			registry := sourceregistry.New(repository.NewSourceRepository(db))

			for _, payload := range defaultSeedSources {
				source, err := registry.CreateSource(ctx, payload)
				if err != nil {
					fmt.Printf("skip %s: %v\n", payload.Name, err)
					continue
				}
				fmt.Printf("seeded %s (%s)\n", source.Name, source.ID)
			}
			return nil
		},
	}
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			registry := sourceregistry.New(repository.NewSourceRepository(db))

			sources, err := registry.ListSources(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDOMAIN\tACTIVE")
			for _, s := range sources {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, s.Name, s.Domain, s.IsActive)
			}
			return tw.Flush()
		},
	}
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Manage scraping jobs"}
	cmd.AddCommand(jobsTriggerCmd())
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsCancelCmd())
	return cmd
}

func buildManager(cfg config.Config) *jobmanager.Manager {
	jobRepo := repository.NewJobRepository(db)
	contentRepo := repository.NewContentRepository(db)
	logRepo := repository.NewLogRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	logger := logging.New(logRepo, cfg.Debug)

	p := pipeline.New(pipeline.Config{
		SourceConcurrency:  cfg.SourceConcurrency,
		ArticleConcurrency: cfg.ArticleConcurrency,
		RSSFetchTimeout:    cfg.RSSFetchTimeout,
	}, jobRepo, contentRepo, logger)

	return jobmanager.New(jobRepo, logRepo, sourceRepo, p, logger, cfg.StuckJobThreshold)
}

func jobsTriggerCmd() *cobra.Command {
	var articlesPerSource int
	var sourceIDs []string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Create and start a scraping job across the given sources (or all active sources if none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()
			manager := buildManager(cfg)
			registry := sourceregistry.New(repository.NewSourceRepository(db))

			var ids []uuid.UUID
			if len(sourceIDs) == 0 {
				active, err := registry.ListActiveSources(ctx)
				if err != nil {
					return err
				}
				for _, s := range active {
					ids = append(ids, s.ID)
				}
			} else {
				for _, raw := range sourceIDs {
					id, err := uuid.Parse(raw)
					if err != nil {
						return fmt.Errorf("invalid source id %q: %w", raw, err)
					}
					ids = append(ids, id)
				}
			}

			jobID, err := manager.CreateJob(ctx, domain.JobCreate{Sources: ids, ArticlesPerSource: articlesPerSource})
			if err != nil {
				return err
			}
			if err := manager.StartJob(ctx, jobID); err != nil {
				return err
			}
			fmt.Printf("started job %s across %d source(s)\n", jobID, len(ids))
			return nil
		},
	}

	cmd.Flags().IntVar(&articlesPerSource, "max-articles", 10, "articles to fetch per source")
	cmd.Flags().StringSliceVar(&sourceIDs, "source", nil, "source id to include (repeatable); defaults to all active sources")
	return cmd
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent scraping jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()
			manager := buildManager(cfg)

			jobs, total, err := manager.ListJobs(ctx, "", 1, 50)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tARTICLES\tERRORS\tTRIGGERED")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					j.ID, j.Status, j.TotalArticlesScraped, j.TotalErrors,
					j.TriggeredAt.Format(time.RFC3339))
			}
			fmt.Printf("\n%d of %d jobs shown\n", len(jobs), total)
			return tw.Flush()
		},
	}
}

func jobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [jobID]",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			cfg := config.Load()
			manager := buildManager(cfg)
			if err := manager.CancelJob(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("cancelling job %s\n", id)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()
			metricsRepo := repository.NewMetricsRepository(db)

			m, err := metricsRepo.Compute(ctx, cfg.MetricsWindow)
			if err != nil {
				return err
			}

			fmt.Printf("jobs triggered:       %d\n", m.JobsTriggered)
			fmt.Printf("success rate:         %.2f%%\n", m.SuccessRate)
			fmt.Printf("articles scraped:     %d\n", m.ArticlesScraped)
			fmt.Printf("avg job duration (s): %.1f\n", m.AverageJobDuration)
			fmt.Printf("active jobs:          %d\n", m.ActiveJobs)
			fmt.Printf("recent errors (24h):  %d\n", m.RecentErrors)
			return nil
		},
	}
}
