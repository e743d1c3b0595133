package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chat-tutor/chattutor/internal/event"
	"github.com/chat-tutor/chattutor/internal/logging"
)

// StreamEvent is the wire shape of one SSE payload.
type StreamEvent struct {
	Type       event.EventType `json:"type"`
	Properties any             `json:"properties"`
}

const (
	// SSEHeartbeatInterval is the interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	if err != nil {
		return err
	}

	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// allEvents handles GET /event, streaming the full chat event firehose.
// An optional chatID query value filters to one chat.
func (srv *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Flush headers so the client sees the stream before the first event.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("message", StreamEvent{
		Type:       "server.connected",
		Properties: map[string]any{},
	}); err != nil {
		return
	}

	// Small buffer for low-latency streaming; slow consumers drop events
	// rather than stalling publishers.
	events := make(chan event.Event, 10)

	unsub := event.SubscribeAll(func(e event.Event) {
		if chatID != "" && !eventBelongsToChat(e, chatID) {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			data := StreamEvent{
				Type:       e.Type,
				Properties: e.Data,
			}
			if err := sse.writeEvent("message", data); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// eventBelongsToChat checks if an event belongs to a chat.
func eventBelongsToChat(e event.Event, chatID string) bool {
	switch data := e.Data.(type) {
	case event.ChatCreatedData:
		return data.Info.ID == chatID
	case event.ChatUpdatedData:
		return data.Info.ID == chatID
	case event.ActionEmittedData:
		return data.ChatID == chatID
	case event.TurnSettledData:
		return data.ChatID == chatID
	}
	return false
}
