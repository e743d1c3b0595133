package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/event"
	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/internal/storage"
	"github.com/chat-tutor/chattutor/pkg/types"
)

// CreateChatRequest represents the request body for creating a chat. The
// prompt, when present, seeds asynchronous title generation; it is not
// added to the message log.
type CreateChatRequest struct {
	Prompt string `json:"prompt,omitempty"`
}

// listChats handles GET /chat
func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Ensure we return an empty array [] instead of null
	if chats == nil {
		chats = []types.ChatSummary{}
	}

	chats = paginate(chats, r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))

	writeJSON(w, http.StatusOK, chats)
}

// paginate applies optional limit/offset query values to the listing.
func paginate(chats []types.ChatSummary, limitStr, offsetStr string) []types.ChatSummary {
	offset := 0
	if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
		offset = v
	}
	if offset >= len(chats) {
		return []types.ChatSummary{}
	}
	chats = chats[offset:]

	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v < len(chats) {
		chats = chats[:v]
	}
	return chats
}

// createChat handles POST /chat
func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
			return
		}
	}

	rec, err := s.store.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	event.Publish(event.Event{
		Type: event.ChatCreated,
		Data: event.ChatCreatedData{Info: rec.Summary()},
	})

	if req.Prompt != "" {
		go s.generateTitle(rec.ID, req.Prompt)
	}

	writeJSON(w, http.StatusOK, rec)
}

// generateTitle names the chat after its first prompt. Failures are
// logged and the placeholder title stays.
func (s *Server) generateTitle(chatID, prompt string) {
	cfg := s.appConfig.TitleConfig()
	if !cfg.Resolved() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := agent.GenerateTitle(ctx, cfg, prompt)
	if err != nil {
		logging.Warn().Str("chatID", chatID).Err(err).Msg("title generation failed")
		return
	}
	if title == "" {
		return
	}

	if err := s.store.SetTitle(ctx, chatID, title); err != nil {
		logging.Warn().Str("chatID", chatID).Err(err).Msg("failed to store title")
		return
	}

	rec, err := s.store.Load(ctx, chatID)
	if err != nil {
		return
	}
	event.Publish(event.Event{
		Type: event.ChatUpdated,
		Data: event.ChatUpdatedData{Info: rec.Summary()},
	})
}

// getChat handles GET /chat/{chatID}
func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadChat(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getChatStatus handles GET /chat/{chatID}/status
func (s *Server) getChatStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadChat(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Status{"status": rec.Status})
}

// getChatMessages handles GET /chat/{chatID}/messages
func (s *Server) getChatMessages(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadChat(w, r)
	if !ok {
		return
	}
	messages := rec.Messages
	if messages == nil {
		messages = []types.ClientMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// getChatPages handles GET /chat/{chatID}/pages
func (s *Server) getChatPages(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadChat(w, r)
	if !ok {
		return
	}
	pages := rec.Pages
	if pages == nil {
		pages = []types.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

// loadChat fetches the record for the {chatID} route param, writing the
// error response itself when the chat does not exist.
func (s *Server) loadChat(w http.ResponseWriter, r *http.Request) (*types.ChatRecord, bool) {
	chatID := chi.URLParam(r, "chatID")

	rec, err := s.store.Load(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return nil, false
	}
	return rec, true
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
