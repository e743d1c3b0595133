package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/storage"
	"github.com/chat-tutor/chattutor/pkg/types"
)

// echoCapability streams a fixed reply for every prompt.
type echoCapability struct{}

func (echoCapability) Invoke(ctx context.Context, cfg types.AgentConfig, in agent.Input) error {
	in.Emit(types.NewText("echo: "))
	in.Emit(types.NewText(in.Prompt))
	in.Emit(types.NewEnd())
	return nil
}

func newStreamTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	appConfig := &types.Config{
		Agent: types.AgentConfig{
			Provider: "openai",
			APIKey:   "test-key",
			BaseURL:  "http://localhost:1",
			Model:    "test-model",
		},
	}
	srv := New(DefaultConfig(), appConfig, storage.New(t.TempDir()), echoCapability{})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialStream(t *testing.T, ts *httptest.Server, chatID string) *websocket.Conn {
	t.Helper()

	url := strings.Replace(ts.URL, "http", "ws", 1) + "/chat/" + chatID + "/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial stream: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readActions(t *testing.T, ws *websocket.Conn) []types.Action {
	t.Helper()

	var actions []types.Action
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		action, err := types.UnmarshalAction(data)
		if err != nil {
			t.Fatalf("Unexpected frame %q: %v", data, err)
		}
		actions = append(actions, action)
		if action.ActionType() == "end" || action.ActionType() == "error" {
			return actions
		}
	}
}

func TestStreamChat_Turn(t *testing.T) {
	srv, ts := newStreamTestServer(t)

	rec, err := srv.store.Create(context.Background())
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	ws := dialStream(t, ts, rec.ID)

	input := types.NewUserInput("hello", nil)
	if err := ws.WriteJSON(input); err != nil {
		t.Fatalf("Failed to send input: %v", err)
	}

	actions := readActions(t, ws)
	if len(actions) != 3 {
		t.Fatalf("Expected 3 actions, got %d", len(actions))
	}
	text, ok := actions[1].(*types.TextAction)
	if !ok || text.Chunk != "hello" {
		t.Errorf("Expected echoed prompt, got %+v", actions[1])
	}

	// The turn settles before the end frame is written, so the status is
	// already final.
	status, err := srv.store.Status(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Failed to read status: %v", err)
	}
	if status != types.StatusCompleted {
		t.Errorf("Expected completed, got %q", status)
	}
}

func TestStreamChat_SecondTurnOnSameConnection(t *testing.T) {
	srv, ts := newStreamTestServer(t)

	rec, err := srv.store.Create(context.Background())
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	ws := dialStream(t, ts, rec.ID)

	for _, prompt := range []string{"first", "second"} {
		if err := ws.WriteJSON(types.NewUserInput(prompt, nil)); err != nil {
			t.Fatalf("Failed to send input: %v", err)
		}
		actions := readActions(t, ws)
		if actions[len(actions)-1].ActionType() != "end" {
			t.Fatalf("Turn %q did not end cleanly: %+v", prompt, actions)
		}
	}

	loaded, err := srv.store.Load(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Failed to load chat: %v", err)
	}
	// Two user entries and two coalesced replies.
	if len(loaded.Messages) != 4 {
		t.Errorf("Expected 4 messages, got %d: %+v", len(loaded.Messages), loaded.Messages)
	}
}

func TestStreamChat_UnknownChat(t *testing.T) {
	_, ts := newStreamTestServer(t)

	url := strings.Replace(ts.URL, "http", "ws", 1) + "/chat/nonexistent/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected dial to fail for unknown chat")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 handshake response, got %+v", resp)
	}
}

func TestStreamChat_MalformedFrame(t *testing.T) {
	srv, ts := newStreamTestServer(t)

	rec, err := srv.store.Create(context.Background())
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	ws := dialStream(t, ts, rec.ID)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`)); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	var errAction types.ErrorAction
	if err := json.Unmarshal(data, &errAction); err != nil || errAction.Type != "error" {
		t.Errorf("Expected in-band error frame, got %q", data)
	}

	// The connection survives the bad frame.
	if err := ws.WriteJSON(types.NewUserInput("still here", nil)); err != nil {
		t.Fatalf("Failed to send input after bad frame: %v", err)
	}
	actions := readActions(t, ws)
	if actions[len(actions)-1].ActionType() != "end" {
		t.Errorf("Expected turn to complete, got %+v", actions)
	}
}
