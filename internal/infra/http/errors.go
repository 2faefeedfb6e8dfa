package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Spok95/labstock/internal/domain"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeValidation         = "validation_error"
	codePrecondition       = "precondition_failed"
	codeInvalidState       = "invalid_state"
	codeBlockedMovement    = "blocked_movement"
	codeNotFound           = "not_found"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// statusOf maps a service error to its HTTP status and error code.
func statusOf(err error) (int, string) {
	var (
		ve *domain.ValidationError
		pe *domain.PreconditionError
		ie *domain.InvalidStateError
		be *domain.BlockedMovementError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.As(err, &pe):
		return http.StatusConflict, codePrecondition
	case errors.As(err, &ie):
		return http.StatusBadRequest, codeInvalidState
	case errors.As(err, &be):
		return http.StatusForbidden, codeBlockedMovement
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		writeError(w, status, code, "internal error")
		return
	}
	resp := errorResponse{Error: err.Error(), Code: code}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
