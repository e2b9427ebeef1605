package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/logger"
	"github.com/dmitrymomot/refcache/pkg/refdata"
)

// httpError is the JSON body of every error response.
type httpError struct {
	Err       error  `json:"-"`
	Message   string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	Code      int    `json:"-"`
}

func (e *httpError) Error() string { return e.Message }
func (e *httpError) Unwrap() error { return e.Err }

func newHTTPError(code int, message string, err error) *httpError {
	return &httpError{Code: code, Message: message, Err: err}
}

// classify maps domain errors to status codes. Upstream failures become 502
// since the cache itself is healthy.
func classify(err error) *httpError {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, refdata.ErrNotFound):
		return newHTTPError(http.StatusNotFound, "not found", err)
	case errors.Is(err, refdata.ErrEmptyID), errors.Is(err, refdata.ErrReservedID),
		errors.Is(err, cache.ErrInvalidPattern):
		return newHTTPError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return newHTTPError(http.StatusGatewayTimeout, "upstream timeout", err)
	case errors.Is(err, context.Canceled):
		return newHTTPError(499, "request canceled", err)
	default:
		return newHTTPError(http.StatusBadGateway, "upstream unavailable", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	he := classify(err)
	he.RequestID = logger.RequestID(r.Context())

	level := slog.LevelWarn
	if he.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.Int("status", he.Code),
		slog.Any("error", err),
	)

	writeJSON(w, he.Code, he)
}
