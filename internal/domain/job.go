package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// JobStatus is the status taxonomy of a ScrapingJob (§4.1).
type JobStatus string

const (
	JobStatusNew        JobStatus = "new"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusSuccessful JobStatus = "successful"
	JobStatusPartial    JobStatus = "partial"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether status is one from which no further transition occurs.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccessful, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// ScrapingJob is a user-initiated unit of work fetching up to N articles from
// each of a set of sources.
type ScrapingJob struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TriggeredAt time.Time  `json:"triggered_at" db:"triggered_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status      JobStatus  `json:"status" db:"status"`

	// SourcesRequested is stored as a Postgres TEXT[] of source UUID strings.
	SourcesRequested  pq.StringArray `json:"sources_requested" db:"sources_requested"`
	ArticlesPerSource int            `json:"articles_per_source" db:"articles_per_source"`

	TotalArticlesScraped int     `json:"total_articles_scraped" db:"total_articles_scraped"`
	TotalErrors          int     `json:"total_errors" db:"total_errors"`
	ProgressPercent      float64 `json:"progress_percent,omitempty" db:"-"`
	CurrentSource        string  `json:"current_source,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JobCreate is the validated payload for CreateJob.
type JobCreate struct {
	Sources           []uuid.UUID
	ArticlesPerSource int
}

// SourceOutcome is a per-source aggregate of the kind §4.1's terminal-status
// rule is computed from. The pipeline aggregates with its own unexported
// equivalent and does not use this type.
type SourceOutcome struct {
	SourceID        uuid.UUID
	ArticlesScraped int
	Failed          bool
}
