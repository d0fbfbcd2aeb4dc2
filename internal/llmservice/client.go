package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"document-embed/internal/models"
)

var thinkTag = regexp.MustCompile(models.ThinkTag)

// Generator is the part of llms.Model the agent needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Options configures the chat model behind an Agent.
type Options struct {
	Provider     string
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string
}

// Agent answers questions using a retrieved passage as context.
type Agent struct {
	llm          Generator
	model        string
	systemPrompt string
	log          zerolog.Logger
}

// NewAgent connects to the chat model named by opts.Model.
func NewAgent(opts Options, logger zerolog.Logger) (*Agent, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: base model name is not set", models.ErrInvalidInput)
	}
	logger.Debug().Str("provider", opts.Provider).Str("model", opts.Model).Msg("Creating chat model")

	var (
		llm Generator
		err error
	)
	switch opts.Provider {
	case "", "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(opts.BaseURL),
			ollama.WithModel(opts.Model),
		)
	case "openai":
		llmOpts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(opts.APIKey, "Bearer ")),
			openai.WithModel(opts.Model),
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
		}
		llm, err = openai.New(llmOpts...)
	default:
		return nil, fmt.Errorf("%w: chat provider %q", models.ErrInvalidInput, opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	return NewAgentWithModel(llm, opts.Model, opts.SystemPrompt, logger), nil
}

// NewAgentWithModel wraps an existing chat model.
func NewAgentWithModel(llm Generator, model, systemPrompt string, logger zerolog.Logger) *Agent {
	if systemPrompt == "" {
		systemPrompt = models.DefaultSystemPrompt
	}
	return &Agent{llm: llm, model: model, systemPrompt: systemPrompt, log: logger}
}

// Ask sends the question together with contextText and returns the answer
// with any <think> blocks removed.
func (a *Agent) Ask(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", models.ErrInvalidInput)
	}
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, a.systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(models.AskPromptTemplate, contextText, question)),
	}

	a.log.Info().Str("model", a.model).Int("context_len", len(contextText)).Msg("Sending chat request")
	resp, err := a.llm.GenerateContent(ctx, messages)
	if err != nil {
		a.log.Error().Err(err).Msg("Error during chat request")
		return "", fmt.Errorf("%w: chat request: %v", models.ErrTransport, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat response has no choices", models.ErrTransport)
	}

	answer := strings.TrimSpace(thinkTag.ReplaceAllString(resp.Choices[0].Content, ""))
	a.log.Debug().Str("answer", answer).Msg("Chat response")
	return answer, nil
}

// JoinContext concatenates passages for Ask.
func JoinContext(passages []string) string {
	return strings.Join(passages, models.ContextSeparator)
}
