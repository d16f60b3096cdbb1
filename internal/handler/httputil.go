package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/service"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/wizard"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: message, Code: code})
}

// writeHTML writes an HTML fragment.
func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// ErrorCode maps a service error to its HTTP status and error code.
func ErrorCode(err error) (int, string) {
	var be *submit.BackendError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUnknownUnit):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, wizard.ErrUnknownField):
		return http.StatusBadRequest, "UNKNOWN_FIELD"
	case errors.Is(err, wizard.ErrNotFinalStep):
		return http.StatusConflict, "NOT_FINAL_STEP"
	case errors.Is(err, wizard.ErrSubmitInFlight):
		return http.StatusConflict, "SUBMIT_IN_FLIGHT"
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		return http.StatusConflict, "ALREADY_SUBMITTED"
	case errors.Is(err, wizard.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case errors.As(err, &be), errors.Is(err, submit.ErrNoBackend):
		return http.StatusBadGateway, "BACKEND_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// errorToHTTP maps service errors to appropriate HTTP responses.
func errorToHTTP(w http.ResponseWriter, log *zap.Logger, err error) {
	status, code := ErrorCode(err)
	if status == http.StatusInternalServerError {
		log.Error("internal error", zap.Error(err))
		writeError(w, status, code, "internal server error")
		return
	}
	body := ErrorBody{Error: err.Error(), Code: code}
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		body.Fields = make(map[string]string, len(verr.Fields))
		for name, reason := range verr.Fields {
			body.Fields[name] = string(reason)
		}
	}
	writeJSON(w, status, body)
}
