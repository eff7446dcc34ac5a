// Package logging implements the Structured Logging Subsystem (§4.6): it
// writes append-only ScrapingLog rows linked to (job_id, source_id?) with a
// typed additional_data payload, and mirrors every entry to a process-level
// slog logger the way catchup-feed-backend and IntelliNieuws's pkg/logger
// wrap log/slog for operational visibility alongside the persisted record.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/newsscrape/engine/internal/domain"
)

// Store is the persistence seam the Logger writes through. The repository
// package implements this; logging stays decoupled from sqlx so it can be
// unit tested with a fake.
type Store interface {
	InsertLog(ctx context.Context, log *domain.ScrapingLog) error
}

// Logger appends structured ScrapingLog rows and mirrors them to slog.
type Logger struct {
	store Store
	slog  *slog.Logger
}

// New builds a Logger. When debug is true, the mirrored slog output uses
// slog.LevelDebug as its minimum level; otherwise slog.LevelInfo.
func New(store Store, debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{store: store, slog: slog.New(handler)}
}

// Event is a single structured log write.
type Event struct {
	JobID          uuid.UUID
	SourceID       *uuid.UUID
	Level          domain.LogLevel
	Message        string
	AdditionalData domain.AdditionalData
}

// Log appends one ScrapingLog row and mirrors it to slog. Persistence
// failures are logged to slog but not returned: a dropped log entry must
// never abort the pipeline stage that produced it.
func (l *Logger) Log(ctx context.Context, ev Event) {
	entry := &domain.ScrapingLog{
		ID:             uuid.New(),
		JobID:          ev.JobID,
		SourceID:       ev.SourceID,
		LogLevel:       ev.Level,
		Message:        ev.Message,
		Timestamp:      time.Now().UTC(),
		AdditionalData: ev.AdditionalData,
	}
	if entry.AdditionalData == nil {
		entry.AdditionalData = domain.AdditionalData{}
	}

	if err := l.store.InsertLog(ctx, entry); err != nil {
		l.slog.Error("failed to persist scraping log", "error", err, "job_id", ev.JobID, "message", ev.Message)
	}

	attrs := []any{"job_id", ev.JobID, "message", ev.Message}
	if ev.SourceID != nil {
		attrs = append(attrs, "source_id", *ev.SourceID)
	}
	for k, v := range ev.AdditionalData {
		attrs = append(attrs, k, v)
	}

	switch ev.Level {
	case domain.LogLevelError:
		l.slog.Error(ev.Message, attrs...)
	case domain.LogLevelWarning:
		l.slog.Warn(ev.Message, attrs...)
	default:
		l.slog.Info(ev.Message, attrs...)
	}
}

// Info is a convenience wrapper for an info-level Log call.
func (l *Logger) Info(ctx context.Context, jobID uuid.UUID, sourceID *uuid.UUID, message string, data domain.AdditionalData) {
	l.Log(ctx, Event{JobID: jobID, SourceID: sourceID, Level: domain.LogLevelInfo, Message: message, AdditionalData: data})
}

// Warn is a convenience wrapper for a warning-level Log call.
func (l *Logger) Warn(ctx context.Context, jobID uuid.UUID, sourceID *uuid.UUID, message string, data domain.AdditionalData) {
	l.Log(ctx, Event{JobID: jobID, SourceID: sourceID, Level: domain.LogLevelWarning, Message: message, AdditionalData: data})
}

// Error is a convenience wrapper for an error-level Log call.
func (l *Logger) Error(ctx context.Context, jobID uuid.UUID, sourceID *uuid.UUID, message string, data domain.AdditionalData) {
	l.Log(ctx, Event{JobID: jobID, SourceID: sourceID, Level: domain.LogLevelError, Message: message, AdditionalData: data})
}
