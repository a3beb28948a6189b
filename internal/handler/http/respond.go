package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
	"github.com/griebenowschalk/manga-tracker/pkg/validator"
)

// response is the JSON envelope every endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Error: message})
}

// writeAppError serializes a service error into the envelope. Unknown errors
// are logged and reported with a generic message so internals never leak.
func writeAppError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed",
				slog.String("code", appErr.Code),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, appErr.Status, appErr.Message)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
		writeError(w, status, "Database error")
		return
	}

	// Sub-500 errors still only expose the taxonomy's wording, never the
	// wrapped context from the service layer.
	writeError(w, status, apperrors.PublicMessage(err))
}

// writeValidationError flattens field errors into a single message, sorted so
// the output is stable.
func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		fields := valErr.Fields()
		parts := make([]string, 0, len(fields))
		for field, msg := range fields {
			parts = append(parts, field+": "+msg)
		}
		sort.Strings(parts)
		writeError(w, http.StatusBadRequest, strings.Join(parts, "; "))
		return
	}

	writeError(w, http.StatusBadRequest, err.Error())
}
