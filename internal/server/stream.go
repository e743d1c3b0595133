package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/internal/storage"
	"github.com/chat-tutor/chattutor/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin clients are allowed; the API has no browser session
	// to protect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket connection to the controller's channel
// interface. Writes are serialized by the controller's single turn loop.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadAction() (types.Action, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		action, err := types.UnmarshalAction(data)
		if err != nil {
			// Malformed frames are reported in-band, not fatal.
			logging.Warn().Err(err).Msg("dropping malformed frame")
			_ = c.WriteAction(types.NewError(err.Error()))
			continue
		}
		return action, nil
	}
}

func (c *wsConn) WriteAction(action types.Action) error {
	return c.ws.WriteJSON(action)
}

// streamChat handles GET /chat/{chatID}/stream, upgrading to a websocket
// carrying the bidirectional action stream. Query params override the
// provider configuration for this connection only.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	// Reject unknown chats with an HTTP status while we still can.
	if _, err := s.store.Load(r.Context(), chatID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return
	}

	override := types.AgentConfig{
		Provider: r.URL.Query().Get("provider"),
		Model:    r.URL.Query().Get("model"),
		BaseURL:  r.URL.Query().Get("baseUrl"),
		APIKey:   r.URL.Query().Get("apiKey"),
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	conn := &wsConn{ws: ws}
	if err := s.controller.Serve(r.Context(), chatID, override, conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			logging.Debug().Str("chatID", chatID).Err(err).Msg("stream ended")
		}
	}
}
