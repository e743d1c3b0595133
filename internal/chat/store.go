package chat

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/chat-tutor/chattutor/internal/storage"
	"github.com/chat-tutor/chattutor/pkg/types"
)

// Store persists chat records. Status transitions go through conditional
// read-modify-write updates so the RUNNING guard holds under concurrent
// connections to the same chat.
type Store struct {
	storage *storage.Storage
	ids     IDSource
}

// NewStore creates a chat store on top of the JSON storage layer.
func NewStore(store *storage.Storage, ids IDSource) *Store {
	return &Store{storage: store, ids: ids}
}

func chatPath(chatID string) []string {
	return []string{"chat", chatID}
}

// Create persists a new chat in PENDING with an empty log, pages, and
// context.
func (s *Store) Create(ctx context.Context) (*types.ChatRecord, error) {
	now := time.Now().UnixMilli()
	rec := &types.ChatRecord{
		ID:       s.ids(),
		Title:    "New Chat",
		Status:   types.StatusPending,
		Context:  types.Context{Agent: []types.AgentMessage{}},
		Messages: []types.ClientMessage{},
		Pages:    []types.Page{},
		Created:  now,
		Updated:  now,
	}

	if err := s.storage.Put(ctx, chatPath(rec.ID), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Load reads the full record for a chat.
func (s *Store) Load(ctx context.Context, chatID string) (*types.ChatRecord, error) {
	var rec types.ChatRecord
	if err := s.storage.Get(ctx, chatPath(chatID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns chat summaries, newest first.
func (s *Store) List(ctx context.Context) ([]types.ChatSummary, error) {
	var chats []types.ChatSummary
	err := s.storage.Scan(ctx, []string{"chat"}, func(key string, data json.RawMessage) error {
		var rec types.ChatRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		chats = append(chats, rec.Summary())
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chats, func(i, j int) bool {
		if chats[i].Created != chats[j].Created {
			return chats[i].Created > chats[j].Created
		}
		return chats[i].ID > chats[j].ID
	})
	return chats, nil
}

// Status reads the current status of a chat.
func (s *Store) Status(ctx context.Context, chatID string) (types.Status, error) {
	rec, err := s.Load(ctx, chatID)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// SetTitle updates the chat title.
func (s *Store) SetTitle(ctx context.Context, chatID, title string) error {
	var rec types.ChatRecord
	return s.storage.Update(ctx, chatPath(chatID), &rec, func() error {
		rec.Title = title
		rec.Updated = time.Now().UnixMilli()
		return nil
	})
}

// BeginRun conditionally flips the chat to RUNNING and returns the
// hydrated record from the same locked update. A chat already RUNNING is
// rejected with ErrChatRunning and left unmodified; this compare-and-set
// is the single-flight guarantee.
func (s *Store) BeginRun(ctx context.Context, chatID string) (*types.ChatRecord, error) {
	var rec types.ChatRecord
	err := s.storage.Update(ctx, chatPath(chatID), &rec, func() error {
		if rec.Status == types.StatusRunning {
			return ErrChatRunning
		}
		rec.Status = types.StatusRunning
		rec.Updated = time.Now().UnixMilli()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CommitTurn persists the turn result and marks the chat COMPLETED in one
// atomic write.
func (s *Store) CommitTurn(ctx context.Context, chatID string, ws *WorkingState) error {
	var rec types.ChatRecord
	return s.storage.Update(ctx, chatPath(chatID), &rec, func() error {
		rec.Context = ws.Context
		rec.Messages = ws.Messages
		rec.Pages = ws.Pages
		rec.Status = types.StatusCompleted
		rec.Updated = time.Now().UnixMilli()
		return nil
	})
}

// FailTurn marks the chat FAILED while keeping the messages resolved up to
// the failure point, so partial output survives. Context and pages are not
// written: the agent may have been mid-mutation when the turn aborted.
func (s *Store) FailTurn(ctx context.Context, chatID string, messages []types.ClientMessage) error {
	var rec types.ChatRecord
	return s.storage.Update(ctx, chatPath(chatID), &rec, func() error {
		rec.Messages = messages
		rec.Status = types.StatusFailed
		rec.Updated = time.Now().UnixMilli()
		return nil
	})
}
