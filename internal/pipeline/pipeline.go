// Package pipeline implements the Scraping Pipeline (§4.3): for a running
// job it walks the job's sources with bounded concurrency, fetches each
// source's RSS feed, fans out bounded per-article fetches, hands article
// bodies to the Content Extractor, and persists the results. Concurrency
// shape (bounded worker pools fed by a channel, golang.org/x/sync/errgroup
// for fan-out, golang.org/x/time/rate for per-source politeness) is
// grounded on the teacher's channel-based engine.RunSource
// (internal/scraper/engine/engine.go) generalized from a single-scraper
// push loop into the source/article two-level pool the spec requires, and
// on catchup-feed-backend's circuit-breaker-wrapped fetchers
// (internal/infra/scraper) for per-source resilience.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
	"github.com/newsscrape/engine/internal/extract"
	"github.com/newsscrape/engine/internal/logging"
	"github.com/newsscrape/engine/internal/obsmetrics"
)

// JobRepository is the persistence seam the pipeline writes job progress
// through.
type JobRepository interface {
	IncrementCounters(ctx context.Context, id uuid.UUID, articlesDelta, errorsDelta int) error
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, completedAt time.Time, log *domain.ScrapingLog) error
}

// ContentRepository is the persistence seam article extraction results are
// written through.
type ContentRepository interface {
	Upsert(ctx context.Context, c *domain.ScrapedContent, sourceName string) (bool, error)
}

// Config bounds the pipeline's concurrency, mirroring §5's C_src/C_art caps.
type Config struct {
	SourceConcurrency  int
	ArticleConcurrency int
	RSSFetchTimeout    time.Duration
}

// Pipeline drives a single job to a terminal state.
type Pipeline struct {
	cfg        Config
	jobs       JobRepository
	content    ContentRepository
	logger     *logging.Logger
	httpClient *http.Client
}

func New(cfg Config, jobs JobRepository, content ContentRepository, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		jobs:       jobs,
		content:    content,
		logger:     logger,
		httpClient: &http.Client{},
	}
}

// sourceOutcome is what a single source's worker reports back once settled.
type sourceOutcome struct {
	sourceID        uuid.UUID
	articlesScraped int
	failed          bool
}

// Run executes §4.3's per-job algorithm. ctx carries the job's cooperative
// cancellation signal: when it is cancelled, in-flight source workers stop
// enqueuing new article fetches and the job settles to "cancelled" rather
// than being aggregated from per-source outcomes.
func (p *Pipeline) Run(ctx context.Context, job domain.ScrapingJob, sources []domain.Source) {
	p.logger.Info(ctx, job.ID, nil, "job started", domain.AdditionalData{
		domain.KeyEventType: domain.EventTypeLifecycle,
		domain.KeyEventName: domain.EventJobStarted,
	})

	outcomes := p.runSources(ctx, job, sources)

	status, completedAt := aggregate(ctx, outcomes)
	eventName := domain.EventJobCompleted
	if status == domain.JobStatusCancelled {
		eventName = domain.EventJobCancelled
	}

	terminalLog := &domain.ScrapingLog{
		ID:        uuid.New(),
		JobID:     job.ID,
		LogLevel:  domain.LogLevelInfo,
		Message:   fmt.Sprintf("job %s", status),
		Timestamp: completedAt,
		AdditionalData: domain.AdditionalData{
			domain.KeyEventType: domain.EventTypeLifecycle,
			domain.KeyEventName: eventName,
		},
	}

	// Use a fresh background context for the terminal write: a cancelled
	// job must still be able to record its own cancellation.
	if err := p.jobs.Finish(context.Background(), job.ID, status, completedAt, terminalLog); err != nil {
		p.logger.Error(context.Background(), job.ID, nil, "failed to finalize job", domain.AdditionalData{
			domain.KeyErrorType:    "persistence",
			domain.KeyErrorMessage: err.Error(),
		})
	}

	obsmetrics.ScrapeJobsTotal.WithLabelValues(jobSourceLabel(sources), string(status)).Inc()
	obsmetrics.ScrapeDuration.WithLabelValues(jobSourceLabel(sources)).Observe(completedAt.Sub(job.TriggeredAt).Seconds())
}

// jobSourceLabel collapses a job's sources into a single Prometheus label:
// the source name when there's exactly one, "multi" otherwise, so the
// cardinality stays bounded regardless of how many sources a job covers.
func jobSourceLabel(sources []domain.Source) string {
	if len(sources) == 1 {
		return sources[0].Name
	}
	return "multi"
}

// runSources processes sources with a bounded concurrency of C_src,
// isolating each source's error boundary from the others (§4.3).
func (p *Pipeline) runSources(ctx context.Context, job domain.ScrapingJob, sources []domain.Source) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(sources))
	sem := make(chan struct{}, max(1, p.cfg.SourceConcurrency))
	g, gctx := errgroup.WithContext(context.Background())

	for i, source := range sources {
		i, source := i, source
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			outcomes[i] = p.runSource(gctx, ctx, job, source)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// runSource fetches one source's RSS feed and its article URLs. workCtx is
// the errgroup's own context (used only to bound goroutine lifetime);
// jobCtx is the job's cancellation signal, checked at every suspension
// point per §4.3/§5.
func (p *Pipeline) runSource(workCtx, jobCtx context.Context, job domain.ScrapingJob, source domain.Source) sourceOutcome {
	out := sourceOutcome{sourceID: source.ID}

	p.logger.Info(workCtx, job.ID, &source.ID, "source started", domain.AdditionalData{
		domain.KeyEventType: domain.EventTypeLifecycle,
		domain.KeyEventName: domain.EventSourceStarted,
	})

	if jobCtx.Err() != nil {
		return out
	}

	items, err := p.fetchRSS(workCtx, source)
	if err != nil {
		out.failed = true
		p.logSourceFetchFailed(workCtx, job.ID, source.ID, source.RSSURL, err)
		_ = p.jobs.IncrementCounters(workCtx, job.ID, 0, 1)
		return out
	}

	p.logger.Info(workCtx, job.ID, &source.ID, "rss feed parsed", domain.AdditionalData{
		domain.KeyEventType:      domain.EventTypeExtraction,
		domain.KeyEventName:      domain.EventRSSParsed,
		domain.KeyTotalItems:     len(items),
		domain.KeyItemsToProcess: min(len(items), job.ArticlesPerSource),
	})

	if len(items) > job.ArticlesPerSource {
		items = items[:job.ArticlesPerSource]
	}

	scraped, errCount := p.fetchArticles(workCtx, jobCtx, job, source, items)
	out.articlesScraped = scraped
	if errCount > 0 {
		_ = p.jobs.IncrementCounters(workCtx, job.ID, 0, errCount)
	}
	out.failed = scraped == 0 && len(items) > 0

	obsmetrics.ScrapeArticlesTotal.WithLabelValues(source.Name, "success").Add(float64(scraped))
	obsmetrics.ScrapeArticlesTotal.WithLabelValues(source.Name, "error").Add(float64(errCount))

	return out
}

// feedItem is the subset of a gofeed item the pipeline needs.
type feedItem struct {
	url string
}

func (p *Pipeline) fetchRSS(ctx context.Context, source domain.Source) ([]feedItem, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RSSFetchTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.UserAgent = source.UserAgent
	fp.Client = p.httpClient

	feed, err := fp.ParseURLWithContext(source.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrSourceFetchFailed, err.Error())
	}

	items := make([]feedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Link == "" {
			continue
		}
		items = append(items, feedItem{url: it.Link})
	}
	return items, nil
}

// fetchArticles runs a bounded pool of C_art workers over items, spacing
// requests within the source by delay_between_requests_ms via a token
// bucket limiter (§4.3c).
func (p *Pipeline) fetchArticles(workCtx, jobCtx context.Context, job domain.ScrapingJob, source domain.Source, items []feedItem) (scraped, errCount int) {
	limiter := rate.NewLimiter(rate.Every(time.Duration(source.DelayBetweenRequestsMs)*time.Millisecond), 1)
	breaker := newSourceBreaker(source.Domain)

	sem := make(chan struct{}, max(1, p.cfg.ArticleConcurrency))
	results := make(chan bool, len(items))

	var inFlight int
	for _, item := range items {
		if jobCtx.Err() != nil {
			break
		}
		if err := limiter.Wait(jobCtx); err != nil {
			break
		}
		sem <- struct{}{}
		inFlight++
		item := item
		go func() {
			defer func() { <-sem }()
			ok := p.fetchOneArticle(workCtx, jobCtx, job, source, item.url, breaker)
			results <- ok
		}()
	}

	for i := 0; i < inFlight; i++ {
		if <-results {
			scraped++
		} else {
			errCount++
		}
	}
	return scraped, errCount
}

// fetchOneArticle performs one article's HTTP GET, extraction and
// persistence, isolated from its siblings (§4.3).
func (p *Pipeline) fetchOneArticle(workCtx, jobCtx context.Context, job domain.ScrapingJob, source domain.Source, articleURL string, breaker *gobreaker.CircuitBreaker) bool {
	start := time.Now()

	body, status, err := p.fetchHTML(workCtx, source, articleURL, breaker)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		p.logger.Error(workCtx, job.ID, &source.ID, "article fetch failed", domain.AdditionalData{
			domain.KeyEventType:     domain.EventTypeHTTP,
			domain.KeyURL:           articleURL,
			domain.KeyHTTPStatus:    status,
			domain.KeyHTTPLatencyMs: latency,
			domain.KeyErrorType:     "fetch",
			domain.KeyErrorMessage:  err.Error(),
		})
		return false
	}

	article, err := extract.Extract(body)
	if err != nil {
		p.logger.Warn(workCtx, job.ID, &source.ID, "extraction failed", domain.AdditionalData{
			domain.KeyEventType: domain.EventTypeExtraction,
			domain.KeyEventName: domain.EventExtractionFailed,
			domain.KeyURL:       articleURL,
		})
		return false
	}

	content := &domain.ScrapedContent{
		ID:               uuid.New(),
		SourceID:         source.ID,
		SourceURL:        articleURL,
		Title:            article.Title,
		Content:          article.Content,
		Author:           article.Author,
		PublicationDate:  article.PublicationDate,
		ContentType:      domain.DefaultContentType,
		Language:         article.Language,
		ProcessingStatus: domain.ProcessingCompleted,
		ContentHash:      extract.ContentHash(article.Title, article.Content),
		CreatedAt:        time.Now().UTC(),
	}

	inserted, err := p.content.Upsert(workCtx, content, source.Name)
	if err != nil {
		p.logger.Error(workCtx, job.ID, &source.ID, "persistence failed", domain.AdditionalData{
			domain.KeyEventType:    domain.EventTypePersistence,
			domain.KeyURL:          articleURL,
			domain.KeyErrorType:    "persistence",
			domain.KeyErrorMessage: err.Error(),
		})
		return false
	}
	if !inserted {
		// Duplicate (source_url conflict): absorbed, not an error.
		return false
	}

	_ = p.jobs.IncrementCounters(workCtx, job.ID, 1, 0)
	p.logger.Info(workCtx, job.ID, &source.ID, "article saved", domain.AdditionalData{
		domain.KeyEventType:     domain.EventTypePersistence,
		domain.KeyEventName:     domain.EventArticleSaved,
		domain.KeyURL:           articleURL,
		domain.KeyLanguage:      string(article.Language),
		domain.KeyContentLength: len(article.Content),
	})
	return true
}

func (p *Pipeline) fetchHTML(ctx context.Context, source domain.Source, articleURL string, breaker *gobreaker.CircuitBreaker) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(source.TimeoutMs)*time.Millisecond)
	defer cancel()

	type fetchResult struct {
		body   string
		status int
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
		if err != nil {
			return fetchResult{}, err
		}
		req.Header.Set("User-Agent", source.UserAgent)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fetchResult{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fetchResult{status: resp.StatusCode}, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		if err != nil {
			return fetchResult{status: resp.StatusCode}, err
		}
		return fetchResult{body: string(body), status: resp.StatusCode}, nil
	})
	r, _ := result.(fetchResult)
	if err != nil {
		return "", r.status, err
	}
	return r.body, r.status, nil
}

func (p *Pipeline) logSourceFetchFailed(ctx context.Context, jobID, sourceID uuid.UUID, url string, err error) {
	p.logger.Error(ctx, jobID, &sourceID, "source fetch failed", domain.AdditionalData{
		domain.KeyEventType:    domain.EventTypeError,
		domain.KeyEventName:    domain.EventSourceFetchFailed,
		domain.KeyURL:          url,
		domain.KeyErrorType:    "rss_fetch",
		domain.KeyErrorMessage: err.Error(),
	})
}

// aggregate applies §4.1's terminal-status rule from per-source outcomes,
// or reports "cancelled" if the job's cancellation signal fired.
func aggregate(ctx context.Context, outcomes []sourceOutcome) (domain.JobStatus, time.Time) {
	now := time.Now().UTC()
	if ctx.Err() != nil {
		return domain.JobStatusCancelled, now
	}

	var anySucceeded, anyFailed bool
	for _, o := range outcomes {
		if o.failed || o.articlesScraped == 0 {
			anyFailed = true
		}
		if o.articlesScraped > 0 {
			anySucceeded = true
		}
	}

	switch {
	case anySucceeded && !anyFailed:
		return domain.JobStatusSuccessful, now
	case anySucceeded && anyFailed:
		return domain.JobStatusPartial, now
	default:
		return domain.JobStatusFailed, now
	}
}
