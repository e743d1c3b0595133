// Package chat implements the core of the server: the message resolver
// that folds the agent action stream into the persisted log, the per-chat
// session state machine with its single-flight run guard, and the
// streaming controller that binds both to a client connection.
package chat

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/chat-tutor/chattutor/pkg/types"
)

// IDSource produces message ids, collision-free within a chat's lifetime.
// The resolver never invents ids itself so replays with a fixed id
// sequence are deterministic.
type IDSource func() string

// ULIDSource returns the production id source.
func ULIDSource() IDSource {
	return func() string { return ulid.Make().String() }
}

// Resolver folds an ordered action stream into the message log. One
// resolver instance serves one turn; actions must be applied strictly in
// generation order because text coalescing and task matching depend on it.
type Resolver struct {
	ids IDSource

	// open is the index of the assistant text entry still accepting
	// deltas, -1 when none. Error entries do not close it; every other
	// non-text action does.
	open int
}

// NewResolver creates a resolver with the given id source.
func NewResolver(ids IDSource) *Resolver {
	return &Resolver{ids: ids, open: -1}
}

// Apply resolves one action against the log and returns the updated log.
// A *ProtocolError means the action referenced an unknown task and was
// dropped; the log is returned unchanged and the turn may continue. Any
// other error is an unrecognized variant and must not be swallowed.
func (r *Resolver) Apply(log []types.ClientMessage, action types.Action) ([]types.ClientMessage, error) {
	switch a := action.(type) {
	case *types.UserInputAction:
		r.open = -1
		return append(log, types.ClientMessage{
			ID:      r.ids(),
			Type:    "user",
			Content: a.Options.Prompt,
		}), nil

	case *types.TextAction:
		if r.open >= 0 && r.open < len(log) {
			log[r.open].Content += a.Chunk
			return log, nil
		}
		log = append(log, types.ClientMessage{
			ID:      r.ids(),
			Type:    "agent",
			Content: a.Chunk,
			Page:    a.Page,
		})
		r.open = len(log) - 1
		return log, nil

	case *types.PageCreateAction:
		r.open = -1
		return append(log, types.ClientMessage{
			ID:    r.ids(),
			Type:  "page-create",
			Page:  a.Page.ID,
			Title: a.Title,
		}), nil

	case *types.TaskStartAction:
		r.open = -1
		running := true
		return append(log, types.ClientMessage{
			ID:      r.ids(),
			Type:    string(a.Kind),
			Content: a.Content,
			Running: &running,
			TaskID:  a.TaskID,
			Page:    a.Page,
		}), nil

	case *types.TaskUpdateAction:
		r.open = -1
		i := findTask(log, a.TaskID)
		if i < 0 {
			return log, &ProtocolError{Action: "task-update", TaskID: a.TaskID}
		}
		log[i].Content = a.Content
		return log, nil

	case *types.TaskEndAction:
		r.open = -1
		i := findTask(log, a.TaskID)
		if i < 0 {
			return log, &ProtocolError{Action: "task-end", TaskID: a.TaskID}
		}
		if a.Content != "" {
			log[i].Content = a.Content
		}
		done := false
		log[i].Running = &done
		return log, nil

	case *types.ErrorAction:
		// Appended as an immutable entry without touching r.open: a text
		// delta after an error keeps extending the same assistant message.
		return append(log, types.ClientMessage{
			ID:    r.ids(),
			Type:  "error",
			Error: a.Message,
		}), nil

	case *types.EndAction:
		r.open = -1
		return log, nil

	default:
		return log, fmt.Errorf("unresolvable action type: %T", action)
	}
}

// findTask returns the index of the entry with the given taskId, or -1.
func findTask(log []types.ClientMessage, taskID string) int {
	if taskID == "" {
		return -1
	}
	for i := range log {
		if log[i].TaskID == taskID {
			return i
		}
	}
	return -1
}
