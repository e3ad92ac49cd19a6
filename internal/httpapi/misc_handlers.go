package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type StatsHandler struct {
	Store *store.Store
	Loc   *time.Location
}

func (h StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc := h.Loc
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	stats, err := h.Store.Stats(r.Context(), dayStart)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type DiscoverHandler struct {
	Run func() error
}

func (h DiscoverHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Run == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "discovery not wired")
		return
	}
	if err := h.Run(); err != nil {
		writeError(w, r, http.StatusInternalServerError, "discovery_error", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type EventsHandler struct {
	Hub *events.Hub
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	ping := events.MakeEvent(RequestIDFrom(r.Context()), "ping", nil)
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", ping)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
