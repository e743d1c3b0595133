package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/chat"
	"github.com/chat-tutor/chattutor/internal/storage"
	"github.com/chat-tutor/chattutor/pkg/types"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	store := chat.NewStore(storage.New(t.TempDir()), chat.ULIDSource())
	machine := chat.NewMachine(store, chat.ULIDSource())
	appConfig := &types.Config{}

	return &Server{
		config:     DefaultConfig(),
		appConfig:  appConfig,
		store:      store,
		machine:    machine,
		controller: chat.NewController(machine, store, agent.NewGateway(), appConfig.Agent),
	}
}

func chatRequest(method, target, chatID string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if chatID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("chatID", chatID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

func TestListChats_Empty(t *testing.T) {
	srv := setupTestServer(t)

	w := httptest.NewRecorder()
	srv.listChats(w, chatRequest("GET", "/chat", "", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var chats []types.ChatSummary
	if err := json.NewDecoder(w.Body).Decode(&chats); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("Expected empty list, got %d chats", len(chats))
	}
}

func TestCreateChat(t *testing.T) {
	srv := setupTestServer(t)

	w := httptest.NewRecorder()
	srv.createChat(w, chatRequest("POST", "/chat", "", []byte(`{}`)))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rec types.ChatRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if rec.ID == "" {
		t.Error("Chat ID should not be empty")
	}
	if rec.Title != "New Chat" {
		t.Errorf("Title mismatch: got %q", rec.Title)
	}
	if rec.Status != types.StatusPending {
		t.Errorf("Status mismatch: got %q", rec.Status)
	}
}

func TestCreateChat_EmptyBody(t *testing.T) {
	srv := setupTestServer(t)

	w := httptest.NewRecorder()
	srv.createChat(w, chatRequest("POST", "/chat", "", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for empty body, got %d", w.Code)
	}
}

func TestCreateChat_InvalidJSON(t *testing.T) {
	srv := setupTestServer(t)

	w := httptest.NewRecorder()
	srv.createChat(w, chatRequest("POST", "/chat", "", []byte("invalid json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestGetChat(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	rec, err := srv.store.Create(ctx)
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	w := httptest.NewRecorder()
	srv.getChat(w, chatRequest("GET", "/chat/"+rec.ID, rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var retrieved types.ChatRecord
	if err := json.NewDecoder(w.Body).Decode(&retrieved); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if retrieved.ID != rec.ID {
		t.Errorf("Chat ID mismatch: got %s, want %s", retrieved.ID, rec.ID)
	}
}

func TestGetChat_NotFound(t *testing.T) {
	srv := setupTestServer(t)

	w := httptest.NewRecorder()
	srv.getChat(w, chatRequest("GET", "/chat/nonexistent", "nonexistent", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetChatStatus(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	rec, err := srv.store.Create(ctx)
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	w := httptest.NewRecorder()
	srv.getChatStatus(w, chatRequest("GET", "/chat/"+rec.ID+"/status", rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]types.Status
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp["status"] != types.StatusPending {
		t.Errorf("Status mismatch: got %q", resp["status"])
	}
}

func TestGetChatMessages_EmptyArray(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	rec, err := srv.store.Create(ctx)
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	w := httptest.NewRecorder()
	srv.getChatMessages(w, chatRequest("GET", "/chat/"+rec.ID+"/messages", rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body == "null\n" {
		t.Error("Expected [] for empty messages, got null")
	}
}

func TestGetChatPages(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	rec, err := srv.store.Create(ctx)
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	if _, err := srv.store.BeginRun(ctx, rec.ID); err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	ws := &chat.WorkingState{Pages: []types.Page{{ID: "p1", Title: "Notes"}}}
	if err := srv.store.CommitTurn(ctx, rec.ID, ws); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	w := httptest.NewRecorder()
	srv.getChatPages(w, chatRequest("GET", "/chat/"+rec.ID+"/pages", rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var pages []types.Page
	if err := json.NewDecoder(w.Body).Decode(&pages); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != "p1" {
		t.Errorf("Pages mismatch: %+v", pages)
	}
}

func TestPaginate(t *testing.T) {
	chats := []types.ChatSummary{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got := paginate(chats, "2", "")
	if len(got) != 2 || got[0].ID != "a" {
		t.Errorf("limit=2: got %+v", got)
	}

	got = paginate(chats, "", "1")
	if len(got) != 2 || got[0].ID != "b" {
		t.Errorf("offset=1: got %+v", got)
	}

	got = paginate(chats, "1", "2")
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("limit=1 offset=2: got %+v", got)
	}

	got = paginate(chats, "", "10")
	if len(got) != 0 {
		t.Errorf("offset past end: got %+v", got)
	}

	got = paginate(chats, "bogus", "bogus")
	if len(got) != 3 {
		t.Errorf("invalid values ignored: got %+v", got)
	}
}
