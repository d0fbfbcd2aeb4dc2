package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"document-embed/internal/models"
)

type fakeGenerator struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (f *fakeGenerator) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestAsk(t *testing.T) {
	fake := &fakeGenerator{answer: "<think>\nlet me see\n</think>\nThe Ryzen has 8 cores."}
	agent := NewAgentWithModel(fake, "llama3.1", "", zerolog.Nop())

	answer, err := agent.Ask(context.Background(), "How many cores?", "AMD RYZEN 7 with 8 cores")
	require.NoError(t, err)
	assert.Equal(t, "The Ryzen has 8 cores.", answer)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, models.DefaultSystemPrompt, textOf(t, fake.messages[0]))
	assert.Equal(t, schema.ChatMessageTypeHuman, fake.messages[1].Role)
	assert.Contains(t, textOf(t, fake.messages[1]), "AMD RYZEN 7 with 8 cores")
	assert.Contains(t, textOf(t, fake.messages[1]), "User: How many cores?")
}

func TestAsk_Errors(t *testing.T) {
	agent := NewAgentWithModel(&fakeGenerator{err: errors.New("refused")}, "m", "be brief", zerolog.Nop())
	_, err := agent.Ask(context.Background(), "q", "ctx")
	assert.ErrorIs(t, err, models.ErrTransport)

	_, err = agent.Ask(context.Background(), "  ", "ctx")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestNewAgent(t *testing.T) {
	_, err := NewAgent(Options{Provider: "ollama", BaseURL: "http://localhost:11434"}, zerolog.Nop())
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewAgent(Options{Provider: "bedrock", Model: "m"}, zerolog.Nop())
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	agent, err := NewAgent(Options{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "llama3.1"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", agent.model)
}

func TestJoinContext(t *testing.T) {
	assert.Equal(t, "a\n---\nb", JoinContext([]string{"a", "b"}))
}
