package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/newsscrape/engine/internal/domain"
)

// SourceRegistry is the seam sourceregistry.Registry satisfies.
type SourceRegistry interface {
	CreateSource(ctx context.Context, payload domain.SourceCreate) (*domain.Source, error)
	UpdateSource(ctx context.Context, id uuid.UUID, patch domain.SourcePatch) (*domain.Source, error)
	DeleteSource(ctx context.Context, id uuid.UUID) error
	ListSources(ctx context.Context) ([]domain.Source, error)
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	TestSource(ctx context.Context, id uuid.UUID) error
}

type SourceHandler struct {
	registry SourceRegistry
}

func NewSourceHandler(registry SourceRegistry) *SourceHandler {
	return &SourceHandler{registry: registry}
}

// List implements GET /api/sources.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.registry.ListSources(r.Context())
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"data": sources})
}

// Get implements GET /api/sources/:id.
func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
		return
	}
	source, err := h.registry.GetSource(r.Context(), id)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, source)
}

// Create implements POST /api/sources.
func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload domain.SourceCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", err.Error())
		return
	}
	source, err := h.registry.CreateSource(r.Context(), payload)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusCreated, source)
}

// Update implements PATCH /api/sources/:id.
func (h *SourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
		return
	}
	var patch domain.SourcePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", err.Error())
		return
	}
	source, err := h.registry.UpdateSource(r.Context(), id, patch)
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, source)
}

// Delete implements DELETE /api/sources/:id.
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
		return
	}
	if err := h.registry.DeleteSource(r.Context(), id); err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

// Test implements PATCH /api/sources/:id/test: re-validates the source's RSS
// feed on demand without waiting for the next scheduled job.
func (h *SourceHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
		return
	}
	if err := h.registry.TestSource(r.Context(), id); err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"valid": true})
}
