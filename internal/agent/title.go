package agent

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/chat-tutor/chattutor/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a chat title. Nothing else.

Generate a brief title that would help the student find this conversation later.

Rules:
- A single line, ≤50 characters
- No explanations
- Keep exact: technical terms, formulas, numbers
- Remove: the, this, my, a, an
- Always output something meaningful`

// GenerateTitle produces a short chat title from the first user input.
// It performs a one-shot completion against the title model config.
func GenerateTitle(ctx context.Context, cfg types.AgentConfig, input string) (string, error) {
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return "", err
	}

	msgs := []*schema.Message{
		{Role: schema.System, Content: titleSystemPrompt},
		{Role: schema.User, Content: "Generate a title for this conversation:\n\n" + input},
	}

	stream, err := chatModel.Stream(ctx, msgs)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var title strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		title.WriteString(msg.Content)
	}

	return CleanTitle(title.String()), nil
}

// CleanTitle reduces raw model output to a single usable title line.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, line := range strings.Split(title, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	return title
}
