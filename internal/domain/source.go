package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is a configured news origin identified by its RSS feed.
type Source struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Domain string    `json:"domain" db:"domain"`
	RSSURL string    `json:"rss_url" db:"rss_url"`

	Description string `json:"description,omitempty" db:"description"`
	IconURL     string `json:"icon_url,omitempty" db:"icon_url"`

	RespectRobotsTxt       bool   `json:"respect_robots_txt" db:"respect_robots_txt"`
	DelayBetweenRequestsMs int    `json:"delay_between_requests_ms" db:"delay_between_requests"`
	TimeoutMs              int    `json:"timeout_ms" db:"timeout_ms"`
	UserAgent              string `json:"user_agent" db:"user_agent"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Default politeness/config values applied when a field is left unset at create time.
const (
	DefaultDelayBetweenRequestsMs = 1000
	DefaultTimeoutMs              = 30000
	DefaultUserAgent              = "NewsScrapeEngine/1.0 (+https://example.invalid/bot)"
)

// SourceCreate is the payload accepted by the Source Registry's CreateSource operation.
type SourceCreate struct {
	Name        string
	Domain      string
	RSSURL      string
	Description string
	IconURL     string

	RespectRobotsTxt       *bool
	DelayBetweenRequestsMs *int
	TimeoutMs              *int
	UserAgent              *string
}

// SourcePatch is a partial update accepted by UpdateSource; nil fields are left untouched.
type SourcePatch struct {
	Name        *string
	Domain      *string
	RSSURL      *string
	Description *string
	IconURL     *string

	RespectRobotsTxt       *bool
	DelayBetweenRequestsMs *int
	TimeoutMs              *int
	UserAgent              *string
	IsActive               *bool
}
