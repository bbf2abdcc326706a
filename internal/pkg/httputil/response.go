// Package httputil holds the HTTP plumbing shared by the queue handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes v without an envelope. Use Success for {"data": ...} responses.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}

// Text writes a plain text response, used by /healthz and /readyz.
func Text(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes data inside a {"data": ...} envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"data": data})
}

// Error writes a {"error": {"message": ...}} envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorEnvelope{Error: &errorBody{Message: message}})
}

// ValidationError writes a 400 with one detail per failed field. Errors that
// do not come from the validator are reported as a plain details string.
func ValidationError(w http.ResponseWriter, err error) {
	body := &errorBody{Message: "validation error", Details: err.Error()}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]fieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, fieldError{Field: fe.Field(), Message: fe.Tag()})
		}
		body.Details = fields
	}

	JSON(w, http.StatusBadRequest, errorEnvelope{Error: body})
}
