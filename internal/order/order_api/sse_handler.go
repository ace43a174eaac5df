package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/sse"
)

// SSEHandler streams order events to the merchant dashboard
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.OrderFeedEmitter
	Heartbeat    time.Duration
}

func NewSSEHandler(logger *logger.Logger, emitter *sse.OrderFeedEmitter) *SSEHandler {
	return &SSEHandler{
		Logger:       logger,
		EventEmitter: emitter,
		Heartbeat:    25 * time.Second,
	}
}

// HandleOrderFeed streams created/updated order events, optionally filtered by ?platform=.
func (h *SSEHandler) HandleOrderFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	platform := models.Platform(r.URL.Query().Get("platform"))

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.Subscribe(ctx, platform)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"platform\":%q}\n\n", string(platform))
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Dashboard client connected (platform=%q, clients=%d)", platform, h.EventEmitter.ClientCount()))

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", "Order feed channel closed")
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize order event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Dashboard client disconnected")
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-XSS-Protection", "0")
	w.Header().Set("Referrer-Policy", "no-referrer")
}
