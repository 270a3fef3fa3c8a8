package httpadapter

import (
	"net/http"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

// statusByKind maps failure kinds to response codes; unlisted kinds are 500.
var statusByKind = map[string]int{
	"InvalidInput": http.StatusBadRequest,
	"Unauthorized": http.StatusUnauthorized,
	"NotFound":     http.StatusNotFound,
	"Temporary":    http.StatusServiceUnavailable,
}

func statusForError(err error) int {
	if status, ok := statusByKind[domain.ErrorKind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
