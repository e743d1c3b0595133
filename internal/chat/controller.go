package chat

import (
	"context"

	"github.com/chat-tutor/chattutor/internal/agent"
	"github.com/chat-tutor/chattutor/internal/event"
	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/pkg/types"
)

// Conn is the controller's view of the bidirectional channel. The server
// adapts a websocket to it; tests use an in-memory implementation.
type Conn interface {
	// ReadAction blocks for the next inbound action. A returned error is a
	// transport-level disconnect and ends the connection.
	ReadAction() (types.Action, error)

	// WriteAction delivers one outbound action to the client.
	WriteAction(action types.Action) error
}

// Controller glues a connection to the session state machine. It owns no
// business rules: turn admission, resolution, and persistence live in the
// Machine; the controller routes actions and keeps the channel open across
// business failures.
type Controller struct {
	machine    *Machine
	store      *Store
	capability agent.Capability
	defaults   types.AgentConfig
}

// NewController creates a streaming session controller.
func NewController(machine *Machine, store *Store, capability agent.Capability, defaults types.AgentConfig) *Controller {
	return &Controller{
		machine:    machine,
		store:      store,
		capability: capability,
		defaults:   defaults,
	}
}

// Serve pumps one connection for one chat until the transport disconnects.
// Persisted state is always re-read on (re)connect; nothing is trusted
// from a previous connection. Business failures (already running, missing
// config, capability errors) are surfaced as error actions and the loop
// continues; only transport errors end it.
func (c *Controller) Serve(ctx context.Context, chatID string, override types.AgentConfig, conn Conn) error {
	cfg := c.defaults.Merge(override)
	log := logging.With().Str("chatID", chatID).Logger()

	if _, err := c.store.Load(ctx, chatID); err != nil {
		return err
	}

	for {
		action, err := conn.ReadAction()
		if err != nil {
			log.Debug().Err(err).Msg("connection closed")
			return err
		}

		input, ok := action.(*types.UserInputAction)
		if !ok {
			log.Warn().Str("type", action.ActionType()).Msg("ignoring non-input action from client")
			continue
		}

		if err := c.runTurn(ctx, chatID, cfg, input, conn); err != nil {
			log.Warn().Err(err).Msg("turn failed")
			if writeErr := conn.WriteAction(types.NewError(err.Error())); writeErr != nil {
				return writeErr
			}
		}
	}
}

// runTurn executes one turn end to end, forwarding every resolved action
// to the connection and the event bus in generation order.
func (c *Controller) runTurn(ctx context.Context, chatID string, cfg types.AgentConfig, input *types.UserInputAction, conn Conn) error {
	ws, err := c.machine.BeginTurn(ctx, chatID, cfg)
	if err != nil {
		return err
	}

	emit := func(action types.Action) {
		if err := conn.WriteAction(action); err != nil {
			// The channel may die mid-turn; resolution continues so the
			// log is still persisted at settle.
			logging.Warn().Str("chatID", chatID).Err(err).Msg("channel write failed")
		}
		event.PublishSync(event.Event{
			Type: event.ActionEmitted,
			Data: event.ActionEmittedData{ChatID: chatID, Action: action},
		})
	}

	runErr := c.machine.RunTurn(ctx, chatID, ws, input, c.capability, cfg, emit)

	status := types.StatusCompleted
	if runErr != nil {
		status = types.StatusFailed
	}
	event.PublishSync(event.Event{
		Type: event.TurnSettled,
		Data: event.TurnSettledData{ChatID: chatID, Status: status},
	})

	return runErr
}
