package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of a ScrapingLog entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// AdditionalData is the typed, free-form payload attached to a log entry.
// Keys follow §4.6; unknown keys passed in by callers are preserved
// verbatim rather than rejected, so the shape can grow without a migration.
type AdditionalData map[string]interface{}

// Recognized additional_data keys. Callers should use these constants
// rather than hand-typing strings so a typo doesn't silently create an
// unindexed, unfilterable field.
const (
	KeyEventType     = "event_type"
	KeyEventName     = "event_name"
	KeyURL           = "url"
	KeyHTTPStatus    = "http.status"
	KeyHTTPLatencyMs = "http.latency_ms"
	KeyRetryCount    = "retry_count"
	KeyWillRetry     = "will_retry"
	KeyErrorType     = "error_type"
	KeyErrorMessage  = "error_message"
	KeyErrorStack    = "error_stack"
	KeyLanguage      = "language"
	KeyContentLength = "content_length"
	KeyFeedTitle     = "feed_title"
	KeyItemsToProcess = "items_to_process"
	KeyTotalItems     = "total_items"
	KeyCorrelationID  = "correlation_id"
	KeyMemoryUsageMB  = "memory_usage_mb"
	KeyTimestampMs    = "timestamp_ms"
	KeyDebug          = "debug"
)

// Event types for KeyEventType.
const (
	EventTypeLifecycle   = "lifecycle"
	EventTypeHTTP        = "http"
	EventTypeExtraction  = "extraction"
	EventTypePersistence = "persistence"
	EventTypePerformance = "performance"
	EventTypeError       = "error"
)

// Event names for KeyEventName.
const (
	EventJobCreated        = "job_created"
	EventJobStarted        = "job_started"
	EventSourceStarted     = "source_started"
	EventRSSParsed         = "rss_parsed"
	EventArticleSaved      = "article_saved"
	EventExtractionFailed  = "extraction_failed"
	EventSourceFetchFailed = "source_fetch_failed"
	EventStuckJobRecovery  = "stuck_job_recovery"
	EventJobCompleted      = "job_completed"
	EventJobCancelled      = "job_cancelled"
)

// ScrapingLog is an append-only record of an engine event tied to a job
// (and optionally a source) with a structured payload.
type ScrapingLog struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	JobID          uuid.UUID      `json:"job_id" db:"job_id"`
	SourceID       *uuid.UUID     `json:"source_id,omitempty" db:"source_id"`
	LogLevel       LogLevel       `json:"log_level" db:"log_level"`
	Message        string         `json:"message" db:"message"`
	Timestamp      time.Time      `json:"timestamp" db:"timestamp"`
	AdditionalData AdditionalData `json:"additional_data" db:"additional_data"`
}
