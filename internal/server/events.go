package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/refcache/pkg/cache"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// events streams cache events as server-sent events until the client leaves.
//
//	event: invalidate_pattern
//	data: {"at":"...","pattern":"^variants_","removed":["variants_5"],"op":"invalidate_pattern"}
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, newHTTPError(http.StatusInternalServerError, "streaming unsupported", errStreamingUnsupported))
		return
	}

	ctx := r.Context()
	ch := make(chan cache.Event, 64)
	unsubscribe := s.cache.Subscribe(func(ev cache.Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Op, data); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
