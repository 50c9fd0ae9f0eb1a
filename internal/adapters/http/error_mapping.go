package httpadapter

import (
	"net/http"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidURL), domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrFetchFailed), domain.IsKind(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary), resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	kind := domain.ErrorKind(err)
	if status == http.StatusServiceUnavailable {
		kind = "Unavailable"
	}
	writeJSON(w, status, errorResponse{
		Kind:           kind,
		Message:        err.Error(),
		UpstreamStatus: domain.FetchStatus(err),
	})
}
