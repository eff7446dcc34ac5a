package handlers

import (
	"errors"
	"net/http"

	"github.com/newsscrape/engine/internal/errs"
)

// WriteErr maps the engine's boundary error taxonomy (§7) onto §4.7's HTTP
// status codes and uniform error envelope.
func WriteErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "resource not found", err.Error())
	case errors.Is(err, errs.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, "invalid_request", "request validation failed", err.Error())
	case errors.Is(err, errs.ErrInvalidRSSFeed):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_rss_feed", "RSS feed could not be validated", err.Error())
	case errors.Is(err, errs.ErrSourceInUse):
		WriteError(w, http.StatusConflict, "conflict", "source is referenced by an in-flight job", err.Error())
	case errors.Is(err, errs.ErrJobTerminal):
		WriteError(w, http.StatusConflict, "conflict", "job has already reached a terminal state", err.Error())
	case errors.Is(err, errs.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "resource already exists", err.Error())
	case errors.Is(err, errs.ErrTransient):
		WriteError(w, http.StatusServiceUnavailable, "transient", "temporarily unavailable, retry shortly", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
