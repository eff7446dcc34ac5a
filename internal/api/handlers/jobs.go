package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/newsscrape/engine/internal/domain"
)

// JobManager is the seam jobmanager.Manager satisfies.
type JobManager interface {
	CreateJob(ctx context.Context, payload domain.JobCreate) (uuid.UUID, error)
	StartJob(ctx context.Context, jobID uuid.UUID) error
	CancelJob(ctx context.Context, jobID uuid.UUID) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ScrapingJob, error)
	ListJobs(ctx context.Context, status domain.JobStatus, page, pageSize int) ([]domain.ScrapingJob, int, error)
	GetJobLogs(ctx context.Context, jobID uuid.UUID, level domain.LogLevel, page, pageSize int) ([]domain.ScrapingLog, int, error)
}

// SourceLookup resolves the job-creation request's "sources" entries, which
// §4.7's examples show as either source names ("BBC News") or ids; the
// data model (§3) is authoritative that ScrapingJob.sources_requested holds
// identifiers, so the API accepts either and resolves names here.
type SourceLookup interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
}

type JobHandler struct {
	jobs    JobManager
	sources SourceLookup
}

func NewJobHandler(jobs JobManager, sources SourceLookup) *JobHandler {
	return &JobHandler{jobs: jobs, sources: sources}
}

type createJobRequest struct {
	Sources     []string `json:"sources"`
	MaxArticles int      `json:"maxArticles"`
}

// Create implements POST /api/scrape: validates, creates and starts a job,
// returning 202 Accepted with the new job's id.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", err.Error())
		return
	}

	ids, err := h.resolveSources(ctx, req.Sources)
	if err != nil {
		WriteErr(w, err)
		return
	}

	jobID, err := h.jobs.CreateJob(ctx, domain.JobCreate{Sources: ids, ArticlesPerSource: req.MaxArticles})
	if err != nil {
		WriteErr(w, err)
		return
	}
	if err := h.jobs.StartJob(ctx, jobID); err != nil {
		WriteErr(w, err)
		return
	}

	JSON(w, http.StatusAccepted, map[string]string{"jobId": jobID.String()})
}

func (h *JobHandler) resolveSources(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	all, err := h.sources.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uuid.UUID, len(all))
	for _, s := range all {
		byName[strings.ToLower(s.Name)] = s.ID
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, entry := range raw {
		if id, err := uuid.Parse(entry); err == nil {
			ids = append(ids, id)
			continue
		}
		if id, ok := byName[strings.ToLower(entry)]; ok {
			ids = append(ids, id)
			continue
		}
		// Unresolvable entries become uuid.Nil; CreateJob's existence check
		// rejects them with InvalidRequest.
		ids = append(ids, uuid.Nil)
	}
	return ids, nil
}

// List implements GET /api/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := parsePagination(r)
	status := domain.JobStatus(r.URL.Query().Get("status"))

	jobs, total, err := h.jobs.ListJobs(ctx, status, page, pageSize)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, domain.NewPage(jobs, total, page, pageSize))
}

// Get implements GET /api/jobs/:id.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid job id")
		return
	}
	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

// Logs implements GET /api/jobs/:id/logs.
func (h *JobHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid job id")
		return
	}
	page, pageSize := parsePagination(r)
	level := domain.LogLevel(r.URL.Query().Get("level"))

	logs, total, err := h.jobs.GetJobLogs(r.Context(), id, level, page, pageSize)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, domain.NewPage(logs, total, page, pageSize))
}

// Cancel implements DELETE /api/jobs/:id.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid job id")
		return
	}
	if err := h.jobs.CancelJob(r.Context(), id); err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}
