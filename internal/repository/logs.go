package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/newsscrape/engine/internal/domain"
)

// LogRepository persists ScrapingLog rows and implements logging.Store.
type LogRepository struct {
	db *sqlx.DB
}

func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// InsertLog appends a single log row. Satisfies logging.Store.
func (r *LogRepository) InsertLog(ctx context.Context, log *domain.ScrapingLog) error {
	data, err := json.Marshal(log.AdditionalData)
	if err != nil {
		return fmt.Errorf("marshal additional_data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scraping_logs (id, job_id, source_id, log_level, message, timestamp, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.JobID, log.SourceID, log.LogLevel, log.Message, log.Timestamp, data)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// insertLogTx appends a log row as part of an existing transaction, used by
// JobRepository to satisfy §4.1's log+state-change atomicity requirement.
func insertLogTx(ctx context.Context, tx *sqlx.Tx, log *domain.ScrapingLog) error {
	data, err := json.Marshal(log.AdditionalData)
	if err != nil {
		return fmt.Errorf("marshal additional_data: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scraping_logs (id, job_id, source_id, log_level, message, timestamp, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.JobID, log.SourceID, log.LogLevel, log.Message, log.Timestamp, data)
	if err != nil {
		return fmt.Errorf("insert log (tx): %w", err)
	}
	return nil
}

// ListByJob returns a job's log entries, newest first, optionally filtered
// by level, paginated (§4.7 GET /api/jobs/:id/logs).
func (r *LogRepository) ListByJob(ctx context.Context, jobID uuid.UUID, level domain.LogLevel, page, pageSize int) ([]domain.ScrapingLog, int, error) {
	where := "WHERE job_id = $1"
	args := []interface{}{jobID}
	if level != "" {
		where += " AND log_level = $2"
		args = append(args, level)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM scraping_logs %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	offset := (page - 1) * pageSize
	limitIdx := len(args) + 1
	offsetIdx := len(args) + 2
	query := fmt.Sprintf(`
		SELECT id, job_id, source_id, log_level, message, timestamp, additional_data
		FROM scraping_logs %s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d
	`, where, limitIdx, offsetIdx)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ScrapingLog
	for rows.Next() {
		var l domain.ScrapingLog
		var raw []byte
		if err := rows.Scan(&l.ID, &l.JobID, &l.SourceID, &l.LogLevel, &l.Message, &l.Timestamp, &raw); err != nil {
			return nil, 0, fmt.Errorf("scan log row: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &l.AdditionalData); err != nil {
				return nil, 0, fmt.Errorf("unmarshal additional_data: %w", err)
			}
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate log rows: %w", err)
	}
	return logs, total, nil
}
