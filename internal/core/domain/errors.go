package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidURL       = errors.New("invalid url")
	ErrNetwork          = errors.New("network error")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrStorage          = errors.New("storage error")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrEnrichment       = errors.New("enrichment error")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FetchError reports a non-success HTTP status returned by the origin.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: status %s", e.URL, status)
}

func (e *FetchError) Unwrap() error { return ErrFetchFailed }

// FetchStatus returns the upstream status carried by err, or 0.
func FetchStatus(err error) int {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.StatusCode
	}
	return 0
}

// ErrorKind names the public error class for inbound surfaces.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrInvalidURL):
		return "InvalidUrl"
	case IsKind(err, ErrFetchFailed):
		return "FetchFailed"
	case IsKind(err, ErrNetwork):
		return "NetworkError"
	case IsKind(err, ErrStorage):
		return "StorageError"
	case IsKind(err, ErrDocumentNotFound):
		return "NotFound"
	case IsKind(err, ErrInvalidInput):
		return "InvalidInput"
	case IsKind(err, ErrTemporary):
		return "Unavailable"
	default:
		return "Internal"
	}
}
