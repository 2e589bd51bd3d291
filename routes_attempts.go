package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/history"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	keepaliveInterval = 25 * time.Second
	tailBackoff       = 300 * time.Millisecond
)

// attemptsHandler feeds live publish attempts to dashboards.
type attemptsHandler struct {
	tailer history.Tailer
	logger logrus.FieldLogger
}

type attemptFilter struct {
	contentID string
	platform  content.Platform
}

func (f attemptFilter) match(rec history.Record) bool {
	if f.contentID != "" && rec.ContentID != f.contentID {
		return false
	}
	return f.platform == "" || rec.Platform == f.platform
}

func registerAttemptRoutes(r *mux.Router, tailer history.Tailer, logger logrus.FieldLogger) {
	h := &attemptsHandler{tailer: tailer, logger: logger}
	r.HandleFunc("/api/attempts/stream", h.handleSSE).Methods("GET")
	r.HandleFunc("/api/attempts/ws", h.handleWebSocket).Methods("GET")
}

func parseFilter(r *http.Request) (attemptFilter, string, error) {
	q := r.URL.Query()
	f := attemptFilter{contentID: strings.TrimSpace(q.Get("content_id"))}
	if raw := strings.TrimSpace(q.Get("platform")); raw != "" {
		p, err := content.ParsePlatform(raw)
		if err != nil {
			return f, "", err
		}
		f.platform = p
	}
	return f, strings.TrimSpace(q.Get("after")), nil
}

func (h *attemptsHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	if h.tailer == nil {
		http.Error(w, "attempt stream unavailable", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter, lastID, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
			continue
		default:
		}

		records, nextID, err := h.tailer.Tail(ctx, lastID)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			h.logger.WithError(err).Warn("attempt tail failed")
			time.Sleep(tailBackoff)
			continue
		}
		if len(records) == 0 {
			continue
		}

		lastID = nextID
		for _, rec := range records {
			if !filter.match(rec) {
				continue
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				h.logger.WithError(err).Warn("attempt encode failed")
				continue
			}
			fmt.Fprintf(w, "id: %s\n", rec.ID)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

var attemptsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Output-only surface.
		return true
	},
}

func (h *attemptsHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.tailer == nil {
		http.Error(w, "attempt stream unavailable", http.StatusServiceUnavailable)
		return
	}

	filter, lastID, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := attemptsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// The request context is not cancelled for hijacked connections, so a
	// read pump watches for the client going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		records, nextID, err := h.tailer.Tail(ctx, lastID)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			time.Sleep(tailBackoff)
			continue
		}
		if len(records) == 0 {
			continue
		}

		lastID = nextID
		for _, rec := range records {
			if !filter.match(rec) {
				continue
			}
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}
