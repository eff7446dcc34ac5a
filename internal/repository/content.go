package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
	"github.com/newsscrape/engine/internal/obsmetrics"
)

// ContentRepository is the persistence contract for ScrapedContent rows.
type ContentRepository struct {
	db *sqlx.DB
}

func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Upsert inserts a scraped article, treating a source_url collision as a
// no-op rather than an error: §4.4 requires duplicate articles across a
// job's runs to be silently skipped, not failed. source_url carries the
// repo's only uniqueness constraint (see db/migrations); content_hash is
// an index only, used for near-duplicate lookups, not conflict detection.
// sourceName labels the trough_content_total gauge; it isn't persisted.
func (r *ContentRepository) Upsert(ctx context.Context, c *domain.ScrapedContent, sourceName string) (inserted bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scraped_content (
			id, source_id, source_url, title, content, author, publication_date,
			content_type, language, processing_status, content_hash, full_html,
			category, tags, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (source_url) DO NOTHING
	`,
		c.ID, c.SourceID, c.SourceURL, c.Title, c.Content, c.Author, c.PublicationDate,
		c.ContentType, c.Language, c.ProcessingStatus, c.ContentHash, c.FullHTML,
		c.Category, pq.Array(c.Tags), c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert scraped content: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		obsmetrics.ContentTotal.WithLabelValues(sourceName, string(c.Language)).Inc()
	}
	return n > 0, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapedContent, error) {
	var c domain.ScrapedContent
	err := r.db.GetContext(ctx, &c, `SELECT * FROM scraped_content WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scraped content: %w", err)
	}
	return &c, nil
}

// Search serves GET /api/content (§4.7): full-text search plus source,
// language and processing-status filters, paginated.
func (r *ContentRepository) Search(ctx context.Context, params domain.ContentSearchParams) ([]domain.ScrapedContent, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.SourceID != nil {
		conditions = append(conditions, fmt.Sprintf("source_id = $%d", argIdx))
		args = append(args, *params.SourceID)
		argIdx++
	}
	if params.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", argIdx))
		args = append(args, params.Language)
		argIdx++
	}
	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("processing_status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + joinAnd(conditions)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM scraped_content %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count scraped content: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`
		SELECT * FROM scraped_content %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	var results []domain.ScrapedContent
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search scraped content: %w", err)
	}
	return results, total, nil
}

func joinAnd(conditions []string) string {
	out := conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}
