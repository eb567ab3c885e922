package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
)

const keepaliveInterval = 30 * time.Second

// wants filters the stream down to one draft when ?draftId= is given
func wants(r *http.Request) func(pubsub.Event) bool {
	id := r.URL.Query().Get("draftId")
	return func(ev pubsub.Event) bool {
		return id == "" || ev.DraftID == id
	}
}

// EventsSSE provides Server-Sent Events for realtime updates
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(eventChan)
	match := wants(r)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !match(event) {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// EventsWS streams the same events over a websocket. Clients only listen;
// actions go through the authenticated JSON endpoints.
func (h *APIHandlers) EventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(eventChan)
	match := wants(r)

	ctx := conn.CloseRead(r.Context())
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !match(event) {
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				logger.Debug("Websocket write failed", "error", err)
				return
			}
		case <-keepalive.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			logger.Debug("Websocket client disconnected")
			return
		}
	}
}
