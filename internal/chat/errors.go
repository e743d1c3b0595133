package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrChatRunning is returned when a turn is requested while the chat
	// already has one in flight. The caller may retry later; no state was
	// mutated.
	ErrChatRunning = errors.New("chat is already running")

	// ErrAgentConfig is returned when required provider configuration is
	// missing at turn start. The chat status is left untouched so a later
	// configured attempt is not blocked.
	ErrAgentConfig = errors.New("agent configuration is not set")
)

// ProtocolError reports a task action referencing an unknown taskId. The
// offending action is dropped and the turn continues.
type ProtocolError struct {
	Action string
	TaskID string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s references unknown task %q", e.Action, e.TaskID)
}
