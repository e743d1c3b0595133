// Package types defines the shared wire types for the chat tutor server:
// the action stream exchanged with the agent, the persisted message log,
// and the durable chat record.
package types

import (
	"encoding/json"
	"fmt"
)

// TaskKind identifies the kind of a long-running task emitted by the agent.
type TaskKind string

const (
	TaskPlan    TaskKind = "plan"
	TaskNote    TaskKind = "note"
	TaskMermaid TaskKind = "mermaid"
	TaskGGB     TaskKind = "ggb"
)

// Action is one unit of the agent/client event stream. The set of
// implementations is closed; consumers must handle every variant and
// UnmarshalAction rejects unknown tags instead of coercing them.
type Action interface {
	ActionType() string
}

// Resource is an attachment supplied with a user prompt.
type Resource struct {
	Type string `json:"type"` // "image"
	URL  string `json:"url"`
}

// UserInputAction carries a user prompt into a turn.
type UserInputAction struct {
	Type    string `json:"type"` // always "user-input"
	Options struct {
		Prompt    string     `json:"prompt"`
		Resources []Resource `json:"resources,omitempty"`
	} `json:"options"`
}

func (a *UserInputAction) ActionType() string { return "user-input" }

// TextAction is a delta of an in-progress assistant message. Consecutive
// text actions with no intervening non-text action form one growing message.
type TextAction struct {
	Type  string `json:"type"` // always "text"
	Chunk string `json:"content"`
	Page  string `json:"page,omitempty"`
}

func (a *TextAction) ActionType() string { return "text" }

// PageCreateAction announces a new page artifact created during the run.
type PageCreateAction struct {
	Type  string `json:"type"` // always "page-create"
	Page  Page   `json:"page"`
	Title string `json:"title"`
}

func (a *PageCreateAction) ActionType() string { return "page-create" }

// TaskStartAction opens a long-running task identified by TaskID.
type TaskStartAction struct {
	Type    string   `json:"type"` // always "task-start"
	TaskID  string   `json:"taskId"`
	Kind    TaskKind `json:"kind"`
	Content string   `json:"content"`
	Page    string   `json:"page,omitempty"`
}

func (a *TaskStartAction) ActionType() string { return "task-start" }

// TaskUpdateAction replaces the content of a running task.
type TaskUpdateAction struct {
	Type    string `json:"type"` // always "task-update"
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

func (a *TaskUpdateAction) ActionType() string { return "task-update" }

// TaskEndAction finalizes a task with its final content.
type TaskEndAction struct {
	Type    string `json:"type"` // always "task-end"
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

func (a *TaskEndAction) ActionType() string { return "task-end" }

// ErrorAction surfaces an error to the client as part of the stream.
type ErrorAction struct {
	Type    string `json:"type"` // always "error"
	Message string `json:"message"`
}

func (a *ErrorAction) ActionType() string { return "error" }

// EndAction marks turn completion. It carries no payload and causes no
// log mutation.
type EndAction struct {
	Type string `json:"type"` // always "end"
}

func (a *EndAction) ActionType() string { return "end" }

// rawAction is used for JSON unmarshaling of actions.
type rawAction struct {
	Type string `json:"type"`
}

// UnmarshalAction unmarshals a JSON action into the appropriate variant.
// Unknown tags are an error: new action kinds must fail loudly rather than
// be silently dropped.
func UnmarshalAction(data []byte) (Action, error) {
	var raw rawAction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "user-input":
		var a UserInputAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "text":
		var a TextAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "page-create":
		var a PageCreateAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "task-start":
		var a TaskStartAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "task-update":
		var a TaskUpdateAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "task-end":
		var a TaskEndAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "error":
		var a ErrorAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case "end":
		var a EndAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown action type: %q", raw.Type)
	}
}

// NewUserInput builds a user-input action from a prompt and resources.
func NewUserInput(prompt string, resources []Resource) *UserInputAction {
	a := &UserInputAction{Type: "user-input"}
	a.Options.Prompt = prompt
	a.Options.Resources = resources
	return a
}

// NewText builds a text delta action.
func NewText(chunk string) *TextAction {
	return &TextAction{Type: "text", Chunk: chunk}
}

// NewError builds an error action.
func NewError(message string) *ErrorAction {
	return &ErrorAction{Type: "error", Message: message}
}

// NewEnd builds an end action.
func NewEnd() *EndAction {
	return &EndAction{Type: "end"}
}
