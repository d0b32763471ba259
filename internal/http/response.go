package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
)

type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Details    any    `json:"details,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, successResponse{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, successResponse{Success: true, Message: message})
}

// handlerFunc is an HTTP handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// errorWriter is the single place errors become HTTP responses.
type errorWriter struct {
	production bool
}

func (e errorWriter) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			e.write(w, r, err)
		}
	}
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)

	body := errorBody{
		Message:    appErr.Message,
		StatusCode: appErr.Status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Method:     r.Method,
		Details:    appErr.Details,
	}
	if appErr.Status >= http.StatusInternalServerError {
		logger.Errorf(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	if e.production {
		if appErr.Status == http.StatusInternalServerError {
			body.Message = "internal server error"
		}
	} else if appErr.Err != nil {
		body.Cause = appErr.Err.Error()
	}

	respondJSON(w, appErr.Status, errorResponse{Success: false, Error: body})
}

// authError adapts the writer to the auth middleware.
func (e errorWriter) authError(w http.ResponseWriter, r *http.Request, status int, message string) {
	e.write(w, r, &apperr.Error{Status: status, Message: message})
}

// decodeJSON reads a single JSON object into dst. Oversized bodies and
// malformed JSON are client errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &apperr.Error{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON body", apperr.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}
