package httpadapter

import (
	"net/http"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

// mapErrorToHTTPStatus checks ErrUpstream before ErrTemporary: a
// classification failure caused by an overloaded model carries both kinds.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoFiles):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusInternalServerError
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeDetail(w, mapErrorToHTTPStatus(err), domain.ClientDetail(err))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
