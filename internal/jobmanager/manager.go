// Package jobmanager implements the Job Manager (§4.1): job lifecycle,
// status taxonomy, progress, cancellation and startup recovery. It is the
// sole writer of ScrapingJob rows while a job is in flight. Grounded on
// the teacher's job-dispatch style (internal/scraper/jobs/scrape_job.go in
// kbsch-trough creates a job record, runs the engine, updates the record)
// generalized into an explicit state machine with cooperative
// context-based cancellation, since the spec requires cancel latency under
// one article-fetch timeout rather than the teacher's run-to-completion
// River worker.
package jobmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
	"github.com/newsscrape/engine/internal/logging"
)

// JobRepository is the persistence seam for ScrapingJob rows.
type JobRepository interface {
	CreateWithLog(ctx context.Context, job *domain.ScrapingJob, log *domain.ScrapingLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapingJob, error)
	List(ctx context.Context, status domain.JobStatus, page, pageSize int) ([]domain.ScrapingJob, int, error)
	ListNonTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ScrapingJob, error)
	MarkInProgress(ctx context.Context, id uuid.UUID) error
	CancelIfNotTerminal(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, completedAt time.Time, log *domain.ScrapingLog) error
}

// LogRepository is the persistence seam for paginated log retrieval.
type LogRepository interface {
	ListByJob(ctx context.Context, jobID uuid.UUID, level domain.LogLevel, page, pageSize int) ([]domain.ScrapingLog, int, error)
}

// SourceLister resolves the sources a job requested, validating existence
// without importing the sourceregistry package (kept decoupled so
// jobmanager does not depend on source-write operations).
type SourceLister interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Source, error)
}

// Pipeline drives one job to a terminal state. Run is expected to call
// back into the JobRepository itself to record progress and the terminal
// transition; the Job Manager only starts it and tracks cancellation.
type Pipeline interface {
	Run(ctx context.Context, job domain.ScrapingJob, sources []domain.Source)
}

// Manager implements §4.1's operations.
type Manager struct {
	jobs     JobRepository
	logs     LogRepository
	sources  SourceLister
	pipeline Pipeline
	logger   *logging.Logger

	stuckThreshold time.Duration

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

func New(jobs JobRepository, logs LogRepository, sources SourceLister, pipeline Pipeline, logger *logging.Logger, stuckThreshold time.Duration) *Manager {
	return &Manager{
		jobs:           jobs,
		logs:           logs,
		sources:        sources,
		pipeline:       pipeline,
		logger:         logger,
		stuckThreshold: stuckThreshold,
		running:        make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateJob validates the request, writes the job row and its creation log
// atomically, and returns the new job's id. It does not start the job.
func (m *Manager) CreateJob(ctx context.Context, payload domain.JobCreate) (uuid.UUID, error) {
	if len(payload.Sources) == 0 {
		return uuid.Nil, fmt.Errorf("%w: sources must be non-empty", errs.ErrInvalidRequest)
	}
	if payload.ArticlesPerSource < 1 {
		return uuid.Nil, fmt.Errorf("%w: articlesPerSource must be >= 1", errs.ErrInvalidRequest)
	}

	found, err := m.sources.ListByIDs(ctx, payload.Sources)
	if err != nil {
		return uuid.Nil, err
	}
	if len(found) != len(payload.Sources) {
		return uuid.Nil, fmt.Errorf("%w: one or more sources do not exist", errs.ErrInvalidRequest)
	}
	for _, s := range found {
		if !s.IsActive {
			return uuid.Nil, fmt.Errorf("%w: source %s is not active", errs.ErrInvalidRequest, s.ID)
		}
	}

	now := time.Now().UTC()
	sourceStrs := make([]string, len(payload.Sources))
	for i, id := range payload.Sources {
		sourceStrs[i] = id.String()
	}

	job := &domain.ScrapingJob{
		ID:                uuid.New(),
		TriggeredAt:       now,
		Status:            domain.JobStatusNew,
		SourcesRequested:  sourceStrs,
		ArticlesPerSource: payload.ArticlesPerSource,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	createLog := &domain.ScrapingLog{
		ID:        uuid.New(),
		JobID:     job.ID,
		LogLevel:  domain.LogLevelInfo,
		Message:   "job created",
		Timestamp: now,
		AdditionalData: domain.AdditionalData{
			domain.KeyEventType: domain.EventTypeLifecycle,
			domain.KeyEventName: domain.EventJobCreated,
		},
	}

	if err := m.jobs.CreateWithLog(ctx, job, createLog); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

// StartJob transitions new → in-progress and hands the job to the
// pipeline in its own goroutine, governed by a cancellation context
// registered for CancelJob to trip. Idempotent: starting an already
// in-progress or terminal job is a no-op.
func (m *Manager) StartJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusNew {
		return nil
	}
	if err := m.jobs.MarkInProgress(ctx, jobID); err != nil {
		return err
	}

	sourceIDs := make([]uuid.UUID, len(job.SourcesRequested))
	for i, s := range job.SourcesRequested {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		sourceIDs[i] = id
	}
	sources, err := m.sources.ListByIDs(context.Background(), sourceIDs)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.running[jobID] = cancel
	m.mu.Unlock()

	job.Status = domain.JobStatusInProgress
	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.running, jobID)
			m.mu.Unlock()
			cancel()
		}()
		m.pipeline.Run(runCtx, *job, sources)
	}()
	return nil
}

// CancelJob sets the job's cancellation signal (observed cooperatively by
// the pipeline) and marks the row cancelled if the pipeline hasn't already
// settled it. Cancel on a terminal job is a no-op error.
func (m *Manager) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return errs.ErrJobTerminal
	}

	m.mu.Lock()
	cancel, running := m.running[jobID]
	m.mu.Unlock()
	if running {
		cancel()
		return nil
	}

	// Not actually running in this process (e.g. "new" but never started,
	// or recovered elsewhere): settle it directly.
	return m.jobs.CancelIfNotTerminal(ctx, jobID)
}

func (m *Manager) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ScrapingJob, error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.ProgressPercent = progressPercent(*job)
	return job, nil
}

func (m *Manager) ListJobs(ctx context.Context, status domain.JobStatus, page, pageSize int) ([]domain.ScrapingJob, int, error) {
	jobs, total, err := m.jobs.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	for i := range jobs {
		jobs[i].ProgressPercent = progressPercent(jobs[i])
	}
	return jobs, total, nil
}

func (m *Manager) GetJobLogs(ctx context.Context, jobID uuid.UUID, level domain.LogLevel, page, pageSize int) ([]domain.ScrapingLog, int, error) {
	return m.logs.ListByJob(ctx, jobID, level, page, pageSize)
}

// RecoverOrphans transitions any job stuck in "new"/"in-progress" past the
// stuck threshold to "failed" (§4.1). It runs at startup and again on the
// periodic orphan sweep; jobs whose pipeline is running in this process are
// skipped, so it never races a live pipeline here.
func (m *Manager) RecoverOrphans(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-m.stuckThreshold)
	orphans, err := m.jobs.ListNonTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list orphaned jobs: %w", err)
	}

	for _, job := range orphans {
		m.mu.Lock()
		_, live := m.running[job.ID]
		m.mu.Unlock()
		if live {
			continue
		}
		now := time.Now().UTC()
		recoveryLog := &domain.ScrapingLog{
			ID:        uuid.New(),
			JobID:     job.ID,
			LogLevel:  domain.LogLevelWarning,
			Message:   "job recovered as failed after exceeding stuck threshold",
			Timestamp: now,
			AdditionalData: domain.AdditionalData{
				domain.KeyEventType: domain.EventTypeLifecycle,
				domain.KeyEventName: domain.EventStuckJobRecovery,
			},
		}
		if err := m.jobs.Finish(ctx, job.ID, domain.JobStatusFailed, now, recoveryLog); err != nil {
			m.logger.Error(ctx, job.ID, nil, "failed to recover orphaned job", domain.AdditionalData{
				domain.KeyErrorType:    "recovery",
				domain.KeyErrorMessage: err.Error(),
			})
		}
	}
	return nil
}

// progressPercent implements §4.1's formula:
// 0.3 * sourcesProcessed/totalSources + 0.7 * articlesProcessed/expectedArticles.
// Non-terminal jobs with no sources yet attempted report 0.
func progressPercent(job domain.ScrapingJob) float64 {
	if job.Status.IsTerminal() {
		return 100
	}
	totalSources := len(job.SourcesRequested)
	if totalSources == 0 {
		return 0
	}
	expectedArticles := totalSources * job.ArticlesPerSource
	if expectedArticles == 0 {
		return 0
	}

	// sourcesProcessed is not separately tracked; approximate it from
	// article throughput, which is the dominant term (weight 0.7) and the
	// only one the pipeline reports incrementally.
	articleRatio := float64(job.TotalArticlesScraped) / float64(expectedArticles)
	if articleRatio > 1 {
		articleRatio = 1
	}
	sourceRatio := articleRatio
	pct := (0.3*sourceRatio + 0.7*articleRatio) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
