package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
)

// SourceRepository is the persistence contract for the Source Registry.
type SourceRepository struct {
	db *sqlx.DB
}

func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	var s domain.Source
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sources WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &s, nil
}

func (r *SourceRepository) ListAll(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := r.db.SelectContext(ctx, &sources, `SELECT * FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

func (r *SourceRepository) ListActive(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := r.db.SelectContext(ctx, &sources, `SELECT * FROM sources WHERE is_active = true ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// ListByIDs fetches sources by id, used by the Job Manager to validate
// CreateJob's requested source list.
func (r *SourceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Source, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sources []domain.Source
	err := r.db.SelectContext(ctx, &sources, `SELECT * FROM sources WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list sources by ids: %w", err)
	}
	return sources, nil
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	query := `
		INSERT INTO sources (
			id, name, domain, rss_url, description, icon_url,
			respect_robots_txt, delay_between_requests, user_agent, timeout_ms,
			is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, strings.ToLower(s.Domain), s.RSSURL, s.Description, s.IconURL,
		s.RespectRobotsTxt, s.DelayBetweenRequestsMs, s.UserAgent, s.TimeoutMs,
		s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

func (r *SourceRepository) Update(ctx context.Context, s *domain.Source) error {
	query := `
		UPDATE sources SET
			name = $2, domain = $3, rss_url = $4, description = $5, icon_url = $6,
			respect_robots_txt = $7, delay_between_requests = $8, user_agent = $9,
			timeout_ms = $10, is_active = $11, updated_at = $12
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, strings.ToLower(s.Domain), s.RSSURL, s.Description, s.IconURL,
		s.RespectRobotsTxt, s.DelayBetweenRequestsMs, s.UserAgent, s.TimeoutMs,
		s.IsActive, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a source. The caller (Source Registry) is responsible for
// checking ErrSourceInUse before calling this; the cascade to
// scraped_content is enforced at the schema level (FK ... ON DELETE CASCADE).
func (r *SourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountNonTerminalJobsReferencing reports how many non-terminal jobs
// requested this source, used to enforce DeleteSource's invariant.
func (r *SourceRepository) CountNonTerminalJobsReferencing(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM scraping_jobs
		WHERE status IN ('new', 'in-progress') AND $1 = ANY(sources_requested)
	`, id.String())
	if err != nil {
		return 0, fmt.Errorf("count jobs referencing source: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
