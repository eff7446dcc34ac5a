// Package sourceregistry implements CRUD over news sources with RSS
// validation (§4.2), grounded on the teacher's source.go CRUD surface
// (internal/repository/source.go in kbsch-trough) generalized to the new
// Source shape, with feed validation borrowed from catchup-feed-backend's
// gofeed-based RSS fetcher (internal/infra/scraper/rss.go).
package sourceregistry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
)

const rssValidationTimeout = 10 * time.Second

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// SourceRepository is the persistence seam the registry writes through.
type SourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	ListAll(ctx context.Context) ([]domain.Source, error)
	ListActive(ctx context.Context) ([]domain.Source, error)
	Create(ctx context.Context, s *domain.Source) error
	Update(ctx context.Context, s *domain.Source) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountNonTerminalJobsReferencing(ctx context.Context, id uuid.UUID) (int, error)
}

// Registry implements §4.2's operations.
type Registry struct {
	repo   SourceRepository
	client *http.Client
}

func New(repo SourceRepository) *Registry {
	return &Registry{
		repo:   repo,
		client: &http.Client{Timeout: rssValidationTimeout},
	}
}

// CreateSource validates the RSS feed before persisting.
func (r *Registry) CreateSource(ctx context.Context, payload domain.SourceCreate) (*domain.Source, error) {
	if err := validateCreate(payload); err != nil {
		return nil, err
	}
	if err := r.validateRSS(ctx, payload.RSSURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s := &domain.Source{
		ID:          uuid.New(),
		Name:        payload.Name,
		Domain:      strings.ToLower(payload.Domain),
		RSSURL:      payload.RSSURL,
		Description: payload.Description,
		IconURL:     payload.IconURL,

		RespectRobotsTxt:       true,
		DelayBetweenRequestsMs: domain.DefaultDelayBetweenRequestsMs,
		TimeoutMs:              domain.DefaultTimeoutMs,
		UserAgent:              domain.DefaultUserAgent,

		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if payload.RespectRobotsTxt != nil {
		s.RespectRobotsTxt = *payload.RespectRobotsTxt
	}
	if payload.DelayBetweenRequestsMs != nil {
		s.DelayBetweenRequestsMs = *payload.DelayBetweenRequestsMs
	}
	if payload.TimeoutMs != nil {
		s.TimeoutMs = *payload.TimeoutMs
	}
	if payload.UserAgent != nil {
		s.UserAgent = *payload.UserAgent
	}

	if err := r.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSource applies a partial update, re-validating the RSS feed only
// if it changed.
func (r *Registry) UpdateSource(ctx context.Context, id uuid.UUID, patch domain.SourcePatch) (*domain.Source, error) {
	s, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rssChanged := patch.RSSURL != nil && *patch.RSSURL != s.RSSURL
	applyPatch(s, patch)

	if rssChanged {
		if err := r.validateRSS(ctx, s.RSSURL); err != nil {
			return nil, err
		}
	}

	s.UpdatedAt = time.Now().UTC()
	if err := r.repo.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func applyPatch(s *domain.Source, patch domain.SourcePatch) {
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Domain != nil {
		s.Domain = strings.ToLower(*patch.Domain)
	}
	if patch.RSSURL != nil {
		s.RSSURL = *patch.RSSURL
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.IconURL != nil {
		s.IconURL = *patch.IconURL
	}
	if patch.RespectRobotsTxt != nil {
		s.RespectRobotsTxt = *patch.RespectRobotsTxt
	}
	if patch.DelayBetweenRequestsMs != nil {
		s.DelayBetweenRequestsMs = *patch.DelayBetweenRequestsMs
	}
	if patch.TimeoutMs != nil {
		s.TimeoutMs = *patch.TimeoutMs
	}
	if patch.UserAgent != nil {
		s.UserAgent = *patch.UserAgent
	}
	if patch.IsActive != nil {
		s.IsActive = *patch.IsActive
	}
}

// DeleteSource forbids deletion while a non-terminal job still references
// the source (§4.2).
func (r *Registry) DeleteSource(ctx context.Context, id uuid.UUID) error {
	count, err := r.repo.CountNonTerminalJobsReferencing(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errs.ErrSourceInUse
	}
	return r.repo.Delete(ctx, id)
}

func (r *Registry) ListSources(ctx context.Context) ([]domain.Source, error) {
	return r.repo.ListAll(ctx)
}

func (r *Registry) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return r.repo.ListActive(ctx)
}

func (r *Registry) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	return r.repo.GetByID(ctx, id)
}

// TestSource re-runs RSS validation against the source's current feed URL
// without mutating anything (dry run).
func (r *Registry) TestSource(ctx context.Context, id uuid.UUID) error {
	s, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.validateRSS(ctx, s.RSSURL)
}

func (r *Registry) validateRSS(ctx context.Context, rssURL string) error {
	ctx, cancel := context.WithTimeout(ctx, rssValidationTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = r.client
	if _, err := fp.ParseURLWithContext(rssURL, ctx); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidRSSFeed, err.Error())
	}
	return nil
}

func validateCreate(payload domain.SourceCreate) error {
	if len(payload.Name) < 1 || len(payload.Name) > 200 {
		return fmt.Errorf("%w: name must be 1-200 characters", errs.ErrInvalidRequest)
	}
	if !domainPattern.MatchString(strings.ToLower(payload.Domain)) {
		return fmt.Errorf("%w: invalid domain", errs.ErrInvalidRequest)
	}
	u, err := url.Parse(payload.RSSURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: rss_url must be an absolute http(s) URL", errs.ErrInvalidRequest)
	}
	return nil
}
