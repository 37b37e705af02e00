package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/clausewise/internal/ingest"
	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/pipeline"
	"github.com/ppiankov/clausewise/internal/store"
)

// errorBody is the envelope for every non-2xx response
type errorBody struct {
	RequestID string    `json:"request_id"`
	Error     errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorBody{
		RequestID: middleware.GetReqID(r.Context()),
		Error:     errorInfo{Code: code, Message: message},
	})
}

// fail maps domain errors to HTTP statuses. Unexpected errors are logged
// and reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ingest.ErrUnsupportedType):
		writeError(w, r, http.StatusBadRequest, "invalid_file_type", err.Error())
	case errors.Is(err, ingest.ErrEmptyDocument), errors.Is(err, pipeline.ErrEmptyText):
		writeError(w, r, http.StatusBadRequest, "empty_document", err.Error())
	case errors.Is(err, ingest.ErrExtraction):
		writeError(w, r, http.StatusUnprocessableEntity, "extraction_failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "analysis timed out")
	default:
		s.log.Error(r.Context(), "Request error",
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
