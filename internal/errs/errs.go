// Package errs defines the error taxonomy shared across the engine's
// boundaries (§7), mirroring the sentinel-error style used throughout the
// pack (e.g. catchup-feed's usecase/fetch package) rather than one giant
// error-code enum.
package errs

import "errors"

// Boundary errors. Components wrap these with fmt.Errorf("...: %w", Err...)
// so callers can use errors.Is across package boundaries.
var (
	// ErrInvalidRequest indicates validation failed at the API boundary.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidRSSFeed indicates RSS validation failed at source create/update.
	ErrInvalidRSSFeed = errors.New("invalid RSS feed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique-constraint violation; on dedup paths
	// this is treated as success, not surfaced as a failure.
	ErrConflict = errors.New("conflict")

	// ErrSourceInUse indicates a source cannot be deleted because it is
	// referenced by a non-terminal job.
	ErrSourceInUse = errors.New("source referenced by an in-flight job")

	// ErrJobTerminal indicates an operation (e.g. cancel) was attempted on
	// a job that has already reached a terminal status.
	ErrJobTerminal = errors.New("job already in a terminal state")

	// ErrTransient indicates a connection/timeout error at the persistence
	// boundary that is eligible for a small bounded retry with backoff.
	ErrTransient = errors.New("transient persistence error")

	// ErrFatal indicates a schema/constraint violation not expected on
	// this path; the affected unit of work is abandoned.
	ErrFatal = errors.New("fatal persistence error")

	// ErrExtractionFailed indicates no extraction strategy produced usable
	// content for an article.
	ErrExtractionFailed = errors.New("content extraction failed")

	// ErrSourceFetchFailed indicates the per-source RSS or article fetch failed.
	ErrSourceFetchFailed = errors.New("source fetch failed")
)
