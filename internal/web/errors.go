package web

// errors.go maps errors to responses.
//
// Every error is logged with its technical detail and request id, then
// mapped with core.MapError to a message, an action and a code. API
// clients get JSON; htmx requests get an alert partial.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
	"github.com/JonMunkholm/sheetprep/internal/session"
	"github.com/JonMunkholm/sheetprep/internal/sink"
	"github.com/JonMunkholm/sheetprep/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Action  string       `json:"action,omitempty"`
	Code    string       `json:"code"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// requestError marks an error caused by the client's input.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	if err == nil {
		return nil
	}
	return &requestError{err: err}
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		reqErr   *requestError
		valErr   *ValidationError
		maxErr   *http.MaxBytesError
		loadErr  *core.LoadError
		rangeErr *core.RangeError
		invErr   *core.InvalidRangeError
		colErr   *core.ColumnError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTooManyLoads), errors.Is(err, sink.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &reqErr), errors.As(err, &valErr),
		errors.As(err, &loadErr), errors.As(err, &rangeErr),
		errors.As(err, &invErr), errors.As(err, &colErr),
		errors.Is(err, core.ErrNotTemporal), errors.Is(err, core.ErrNotNumeric),
		errors.Is(err, core.ErrNoTimestamps):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-friendly response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		resp.Fields = valErr.Fields
	}

	if wantsJSON(r) {
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}
	http.Error(w, userMsg.Message+" ("+userMsg.Code+")", status)
}

// isHTMX checks if the request is an htmx request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
