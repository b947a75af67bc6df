package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"paydue/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the core error taxonomy onto HTTP statuses:
// validation 422, not found 404, store unavailable 503, auth 401,
// anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnauthenticated):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Unhandled request error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// slogError reports a failure after the response has started streaming,
// where a status rewrite is no longer possible.
func slogError(r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
}
