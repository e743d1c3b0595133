package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chat-tutor/chattutor/internal/logging"
	"github.com/chat-tutor/chattutor/pkg/types"
)

const (
	// DefaultMaxTokens caps a single assistant response.
	DefaultMaxTokens = 4096
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
	// MaxRetries is the maximum number of retries when opening a stream.
	MaxRetries = 3
)

const systemPrompt = `You are a patient tutor. Answer the student's question
directly and build on the conversation so far. Keep explanations concrete
and step by step.`

// Gateway is the production agent capability. It selects a chat model per
// the turn's provider configuration, streams the completion, and converts
// model deltas into text actions terminated by an end action.
type Gateway struct{}

// NewGateway creates a new Gateway.
func NewGateway() *Gateway {
	return &Gateway{}
}

// newRetryBackoff creates an exponential backoff with jitter for opening
// the provider stream.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// newChatModel builds the Eino chat model for a provider config. The
// openai component also serves deepseek and other OpenAI-compatible
// endpoints through BaseURL.
func newChatModel(ctx context.Context, cfg types.AgentConfig) (model.ToolCallingChatModel, error) {
	switch cfg.Provider {
	case "anthropic":
		claudeCfg := &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: DefaultMaxTokens,
		}
		if cfg.BaseURL != "" {
			claudeCfg.BaseURL = &cfg.BaseURL
		}
		chatModel, err := claude.NewChatModel(ctx, claudeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create claude model: %w", err)
		}
		return chatModel, nil
	case "openai", "deepseek":
		maxTokens := DefaultMaxTokens
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:              cfg.APIKey,
			BaseURL:             cfg.BaseURL,
			Model:               cfg.Model,
			MaxCompletionTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model: %w", err)
		}
		return chatModel, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}

// PromptWithResources folds resource references into the prompt text.
func PromptWithResources(prompt string, resources []types.Resource) string {
	if len(resources) == 0 {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	for _, r := range resources {
		sb.WriteString("\n[attached ")
		sb.WriteString(r.Type)
		sb.WriteString("] ")
		sb.WriteString(r.URL)
	}
	return sb.String()
}

// buildMessages converts the persisted conversation history into the
// provider request.
func buildMessages(history []types.AgentMessage) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, &schema.Message{Role: schema.System, Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content})
	}
	return msgs
}

// Invoke runs one turn against the configured provider. The user prompt is
// appended to the context history before the call; the assistant reply is
// appended after the stream drains, so a failed turn leaves the history
// with the prompt but no reply.
func (g *Gateway) Invoke(ctx context.Context, cfg types.AgentConfig, in Input) error {
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return err
	}

	in.Context.Agent = append(in.Context.Agent, types.AgentMessage{
		Role:    "user",
		Content: PromptWithResources(in.Prompt, in.Resources),
	})
	msgs := buildMessages(in.Context.Agent)

	var stream *schema.StreamReader[*schema.Message]
	err = backoff.Retry(func() error {
		var streamErr error
		stream, streamErr = chatModel.Stream(ctx, msgs)
		return streamErr
	}, newRetryBackoff(ctx))
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		if msg.Content == "" {
			continue
		}
		reply.WriteString(msg.Content)
		in.Emit(types.NewText(msg.Content))
	}

	in.Context.Agent = append(in.Context.Agent, types.AgentMessage{
		Role:    "assistant",
		Content: reply.String(),
	})

	logging.Debug().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Int("replyLen", reply.Len()).
		Msg("turn completed")

	in.Emit(types.NewEnd())
	return nil
}
