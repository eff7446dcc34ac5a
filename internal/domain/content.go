package domain

import (
	"time"

	"github.com/google/uuid"
)

// Language is the detected language of a ScrapedContent's text.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHebrew  Language = "he"
	LanguageArabic  Language = "ar"
	LanguageOther   Language = "other"
)

// ProcessingStatus tracks where a ScrapedContent row is in the extraction
// pipeline.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

const DefaultContentType = "article"

// ScrapedContent is the cleaned, persisted result of fetching and
// extracting a single article URL.
type ScrapedContent struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	SourceID        uuid.UUID  `json:"source_id" db:"source_id"`
	SourceURL       string     `json:"source_url" db:"source_url"`
	Title           string     `json:"title" db:"title"`
	Content         string     `json:"content" db:"content"`
	Author          string     `json:"author,omitempty" db:"author"`
	PublicationDate *time.Time `json:"publication_date,omitempty" db:"publication_date"`

	ContentType      string           `json:"content_type" db:"content_type"`
	Language         Language         `json:"language" db:"language"`
	ProcessingStatus ProcessingStatus `json:"processing_status" db:"processing_status"`
	ContentHash      string           `json:"content_hash" db:"content_hash"`
	FullHTML         string           `json:"full_html,omitempty" db:"full_html"`

	Category string   `json:"category,omitempty" db:"category"`
	Tags     []string `json:"tags,omitempty" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ContentSearchParams is accepted by GET /api/content.
type ContentSearchParams struct {
	Page     int
	PageSize int
	Search   string
	SourceID *uuid.UUID
	Language Language
	Status   ProcessingStatus
}

// ExtractedArticle is the product of the Content Extractor before it is
// assigned a source and persisted.
type ExtractedArticle struct {
	Title           string
	Content         string
	Author          string
	PublicationDate *time.Time
	Language        Language
}
