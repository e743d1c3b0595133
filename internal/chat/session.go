package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/pkg/types"
)

// WorkingState is the in-memory copy of a chat's mutable state held for
// the duration of one turn. It is written back exactly once, at the run
// boundary.
type WorkingState struct {
	Context  types.Context
	Messages []types.ClientMessage
	Pages    []types.Page
}

// Machine drives the per-chat turn lifecycle:
// * -> RUNNING -> {COMPLETED|FAILED}. At most one turn per chat is in
// flight at any time; the store's conditional status transition enforces
// it across connections and processes.
type Machine struct {
	store *Store
	ids   IDSource
}

// NewMachine creates a session state machine over the given store.
func NewMachine(store *Store, ids IDSource) *Machine {
	return &Machine{store: store, ids: ids}
}

// BeginTurn validates provider configuration, flips the chat to RUNNING,
// and returns the hydrated working state. Config validation happens
// before the status transition so a misconfigured attempt never blocks a
// later one. A chat already RUNNING yields ErrChatRunning with no state
// change.
func (m *Machine) BeginTurn(ctx context.Context, chatID string, cfg types.AgentConfig) (*WorkingState, error) {
	if !cfg.Resolved() {
		return nil, ErrAgentConfig
	}

	rec, err := m.store.BeginRun(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return &WorkingState{
		Context:  rec.Context,
		Messages: rec.Messages,
		Pages:    rec.Pages,
	}, nil
}

// RunTurn feeds one user input through the agent capability, resolving
// every emitted action into the working state's message log and forwarding
// it to emit in generation order. On success the turn is committed
// atomically; on capability failure the messages resolved so far are
// persisted and the chat is marked FAILED.
func (m *Machine) RunTurn(
	ctx context.Context,
	chatID string,
	ws *WorkingState,
	input *types.UserInputAction,
	capability agent.Capability,
	cfg types.AgentConfig,
	emit agent.Emitter,
) error {
	log := logging.With().Str("chatID", chatID).Logger()
	resolver := NewResolver(m.ids)

	apply := func(action types.Action) {
		updated, err := resolver.Apply(ws.Messages, action)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				log.Warn().
					Str("action", perr.Action).
					Str("taskId", perr.TaskID).
					Msg("dropping action for unknown task")
				return
			}
			log.Error().Err(err).Msg("dropping unresolvable action")
			return
		}
		ws.Messages = updated
		if pc, ok := action.(*types.PageCreateAction); ok {
			ws.Pages = append(ws.Pages, pc.Page)
		}
	}

	// The user entry joins the log first; it is not echoed back.
	apply(input)

	err := capability.Invoke(ctx, cfg, agent.Input{
		Prompt:    input.Options.Prompt,
		Resources: input.Options.Resources,
		Context:   &ws.Context,
		Pages:     &ws.Pages,
		Emit: func(action types.Action) {
			apply(action)
			if emit != nil {
				emit(action)
			}
		},
	})
	if err != nil {
		if failErr := m.store.FailTurn(ctx, chatID, ws.Messages); failErr != nil {
			log.Error().Err(failErr).Msg("failed to settle turn as FAILED")
		}
		return fmt.Errorf("agent capability: %w", err)
	}

	if err := m.store.CommitTurn(ctx, chatID, ws); err != nil {
		if failErr := m.store.FailTurn(ctx, chatID, ws.Messages); failErr != nil {
			log.Error().Err(failErr).Msg("failed to settle turn as FAILED")
		}
		return fmt.Errorf("commit turn: %w", err)
	}

	return nil
}
