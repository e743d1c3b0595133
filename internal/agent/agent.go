// Package agent defines the agent capability consumed by the chat session
// and its production implementation on top of the Eino model framework.
package agent

import (
	"context"

	"github.com/chat-tutor/chattutor/pkg/types"
)

// Emitter receives one action of the agent's output stream. Calls happen
// strictly in generation order on a single goroutine.
type Emitter func(action types.Action)

// Input carries one turn's worth of work into a capability. Context and
// Pages point into the session's working state; the capability mutates
// them in place.
type Input struct {
	Prompt    string
	Resources []types.Resource
	Context   *types.Context
	Pages     *[]types.Page
	Emit      Emitter
}

// Capability generates the agent side of a turn. Implementations must
// terminate the stream with an end action or return an error; they never
// do both.
type Capability interface {
	Invoke(ctx context.Context, cfg types.AgentConfig, in Input) error
}
