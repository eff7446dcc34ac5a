package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/newsscrape/engine/internal/domain"
)

// ContentRepository is the seam repository.ContentRepository satisfies.
type ContentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapedContent, error)
	Search(ctx context.Context, params domain.ContentSearchParams) ([]domain.ScrapedContent, int, error)
}

type ContentHandler struct {
	repo ContentRepository
}

func NewContentHandler(repo ContentRepository) *ContentHandler {
	return &ContentHandler{repo: repo}
}

// Search implements GET /api/content: paginated, filterable by free-text
// search, source, language and processing status.
func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	params := domain.ContentSearchParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Language: domain.Language(q.Get("language")),
		Status:   domain.ProcessingStatus(q.Get("status")),
	}
	if raw := q.Get("source"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			params.SourceID = &id
		} else {
			WriteError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
			return
		}
	}

	content, total, err := h.repo.Search(r.Context(), params)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, domain.NewPage(content, total, page, pageSize))
}

// Get implements GET /api/content/:id.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid content id")
		return
	}
	content, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, content)
}
