package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
)

// JobRepository is the persistence contract for ScrapingJob rows.
type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateWithLog inserts a new job row and its "job_created" lifecycle log in
// a single transaction, matching §4.1's atomicity requirement that a job
// never exists without its creation event.
func (r *JobRepository) CreateWithLog(ctx context.Context, job *domain.ScrapingJob, log *domain.ScrapingLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create job tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scraping_jobs (
			id, triggered_at, status, sources_requested, articles_per_source,
			total_articles_scraped, total_errors, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		job.ID, job.TriggeredAt, job.Status, pq.Array(job.SourcesRequested), job.ArticlesPerSource,
		job.TotalArticlesScraped, job.TotalErrors, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	if err := insertLogTx(ctx, tx, log); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create job tx: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapingJob, error) {
	var job domain.ScrapingJob
	err := r.db.GetContext(ctx, &job, `SELECT * FROM scraping_jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List returns jobs newest-first, optionally filtered by status, paginated.
func (r *JobRepository) List(ctx context.Context, status domain.JobStatus, page, pageSize int) ([]domain.ScrapingJob, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM scraping_jobs %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	offset := (page - 1) * pageSize
	limitIdx := len(args) + 1
	offsetIdx := len(args) + 2
	query := fmt.Sprintf(`
		SELECT * FROM scraping_jobs %s
		ORDER BY triggered_at DESC
		LIMIT $%d OFFSET $%d
	`, where, limitIdx, offsetIdx)
	args = append(args, pageSize, offset)

	var jobs []domain.ScrapingJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

// ListNonTerminalOlderThan finds jobs still "new" or "in-progress" whose
// triggered_at predates cutoff, feeding RecoverOrphans at startup (§4.1).
func (r *JobRepository) ListNonTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ScrapingJob, error) {
	var jobs []domain.ScrapingJob
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM scraping_jobs
		WHERE status IN ('new', 'in-progress') AND triggered_at < $1
		ORDER BY triggered_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list orphaned jobs: %w", err)
	}
	return jobs, nil
}

// MarkInProgress transitions a job from "new" to "in-progress".
func (r *JobRepository) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, domain.JobStatusInProgress, domain.JobStatusNew)
	if err != nil {
		return fmt.Errorf("mark job in-progress: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrJobTerminal
	}
	return nil
}

// IncrementCounters adds to a job's running totals as the pipeline saves
// articles and records failures, without touching status.
func (r *JobRepository) IncrementCounters(ctx context.Context, id uuid.UUID, articlesDelta, errorsDelta int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET
			total_articles_scraped = total_articles_scraped + $2,
			total_errors = total_errors + $3,
			updated_at = now()
		WHERE id = $1
	`, id, articlesDelta, errorsDelta)
	if err != nil {
		return fmt.Errorf("increment job counters: %w", err)
	}
	return nil
}

// Finish transitions a job to a terminal status, stamping completed_at, and
// writes the terminal lifecycle log atomically (§4.1).
func (r *JobRepository) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, completedAt time.Time, log *domain.ScrapingLog) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish job: %q is not a terminal status", status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish job tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE scraping_jobs SET status = $2, completed_at = $3, updated_at = now()
		WHERE id = $1 AND status NOT IN ('successful', 'partial', 'failed', 'cancelled')
	`, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("update job terminal status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrJobTerminal
	}

	if err := insertLogTx(ctx, tx, log); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish job tx: %w", err)
	}
	return nil
}

// CancelIfNotTerminal flips a job straight to "cancelled" as long as it
// hasn't already settled. The Job Manager uses it for jobs with no pipeline
// running in this process; a running pipeline observes cancellation through
// its context, not through this row.
func (r *JobRepository) CancelIfNotTerminal(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('new', 'in-progress')
	`, id, domain.JobStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrJobTerminal
	}
	return nil
}
