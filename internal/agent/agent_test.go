package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-tutor/chattutor/pkg/types"
)

func TestNewChatModel_UnknownProvider(t *testing.T) {
	_, err := newChatModel(context.Background(), types.AgentConfig{
		Provider: "carrier-pigeon",
		APIKey:   "k",
		BaseURL:  "https://api",
		Model:    "m",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestPromptWithResources(t *testing.T) {
	prompt := PromptWithResources("what is this graph?", []types.Resource{
		{Type: "image", URL: "https://example.com/a.png"},
		{Type: "image", URL: "https://example.com/b.png"},
	})

	assert.True(t, strings.HasPrefix(prompt, "what is this graph?"))
	assert.Contains(t, prompt, "https://example.com/a.png")
	assert.Contains(t, prompt, "https://example.com/b.png")

	assert.Equal(t, "plain", PromptWithResources("plain", nil))
}

func TestBuildMessages(t *testing.T) {
	history := []types.AgentMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	msgs := buildMessages(history)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", string(msgs[0].Role))
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "assistant", string(msgs[2].Role))
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		check func(t *testing.T, got string)
	}{
		{name: "trims whitespace", raw: "  Derivatives intro  \n", want: "Derivatives intro"},
		{name: "first non-empty line", raw: "\n\nQuadratic equations\nextra commentary", want: "Quadratic equations"},
		{name: "empty stays empty", raw: "   ", want: ""},
		{
			name: "long titles are truncated",
			raw:  strings.Repeat("x", 200),
			check: func(t *testing.T, got string) {
				assert.Len(t, got, 100)
				assert.True(t, strings.HasSuffix(got, "..."))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanTitle(tt.raw)
			if tt.check != nil {
				tt.check(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
