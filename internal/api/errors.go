package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/tracking/processor"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeServiceError maps sentinel errors onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, processor.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "tracking is not running")
	default:
		s.log.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// unwrapMessage strips the operation prefix and sentinel text from a wrapped
// validation error, e.g. "service.ZoneService.Create: validation error: x" -> "x".
func unwrapMessage(err error) string {
	msg := err.Error()
	const sentinel = "validation error: "
	if i := strings.Index(msg, sentinel); i >= 0 {
		return msg[i+len(sentinel):]
	}
	return msg
}
