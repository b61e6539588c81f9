package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/graph"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// RejectionResponse is returned when a connection is refused. Silent
// rejections should not be shown to the user.
type RejectionResponse struct {
	Error  string `json:"error" example:"Queue nodes can only connect to Function nodes."`
	Silent bool   `json:"silent"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP responses.
func writeError(w http.ResponseWriter, op string, err error) {
	var rej *graph.RejectedError
	var verrs validation.Errors
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, RejectionResponse{Error: rej.Error(), Silent: rej.Silent()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidJSON):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(apperr.ErrInvalidJSON.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrLocked):
		writeJSON(w, http.StatusLocked, errorBody(apperr.ErrLocked.Error()))
	case errors.Is(err, apperr.ErrLimit):
		writeJSON(w, http.StatusTooManyRequests, errorBody("too many open sessions"))
	case errors.Is(err, apperr.ErrInvalid), errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
