package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/refcache/pkg/refdata"
)

type presetView struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	TTL      string `json:"ttl"`
}

type presetsResponse struct {
	Presets []presetView         `json:"presets"`
	Keys    []refdata.Descriptor `json:"keys"`
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) presets(w http.ResponseWriter, _ *http.Request) {
	presets := refdata.Presets()
	resp := presetsResponse{
		Presets: make([]presetView, 0, len(presets)),
		Keys:    refdata.Descriptors(),
	}
	for _, p := range presets {
		resp.Presets = append(resp.Presets, presetView{
			Name:     p.Name,
			Strategy: p.Strategy.String(),
			TTL:      p.TTL.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type invalidateRequest struct {
	Key     string `json:"key"`
	Pattern string `json:"pattern"`
}

type invalidateResponse struct {
	Removed int `json:"removed"`
}

// invalidate drops one key (204) or every key matching a pattern (200 with
// the number of removed keys).
func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, newHTTPError(http.StatusBadRequest, "invalid request body", err))
		return
	}
	if (req.Key == "") == (req.Pattern == "") {
		s.fail(w, r, newHTTPError(http.StatusBadRequest, "exactly one of key or pattern is required", nil))
		return
	}

	if req.Key != "" {
		s.cache.Invalidate(r.Context(), req.Key)
		s.logger.InfoContext(r.Context(), "cache key invalidated", slog.String("key", req.Key))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	n, err := s.cache.InvalidatePattern(r.Context(), req.Pattern)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "cache pattern invalidated",
		slog.String("pattern", req.Pattern),
		slog.Int("removed", n),
	)
	writeJSON(w, http.StatusOK, invalidateResponse{Removed: n})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	s.logger.InfoContext(r.Context(), "cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

type warmResponse struct {
	Duration string `json:"duration"`
	Entries  int    `json:"entries"`
}

func (s *Server) warm(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.svc.Warm(r.Context()); err != nil {
		s.fail(w, r, fmt.Errorf("warm: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, warmResponse{
		Duration: time.Since(start).String(),
		Entries:  s.cache.Stats().Count,
	})
}
