package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-embed/internal/models"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Options selects and configures the embedding provider.
type Options struct {
	Provider string
	BaseURL  string
	Model    string
	// APIKey is only used by the openai provider
	APIKey string
}

// NewOllamaEmbedder creates an embedder backed by an Ollama server
func NewOllamaEmbedder(baseURL, model string) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOpenAIEmbedder creates an embedder for any OpenAI compatible endpoint
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// Client sends texts to the embedding model. Every call is one synchronous
// round trip; errors are returned as-is to the caller, without retries.
type Client struct {
	embedder embeddings.Embedder
	model    string
	log      zerolog.Logger
}

// New builds a Client for the provider named in opts.
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	logger.Debug().
		Str("provider", opts.Provider).
		Str("base_url", opts.BaseURL).
		Str("embedding_model", opts.Model).
		Msg("Initializing embedder")

	var (
		e   embeddings.Embedder
		err error
	)
	switch opts.Provider {
	case "", ProviderOllama:
		e, err = NewOllamaEmbedder(opts.BaseURL, opts.Model)
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(opts.APIKey, opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", models.ErrInvalidInput, opts.Provider)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error creating embedder")
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	return NewClient(e, opts.Model, logger), nil
}

// NewClient wraps an existing embedder.
func NewClient(e embeddings.Embedder, model string, logger zerolog.Logger) *Client {
	return &Client{embedder: e, model: model, log: logger}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// EmbedMany returns one vector per text, in input order. It is a single call
// into the embedder; langchaingo batches the texts (512 per batch) and the
// Ollama backend sends one HTTP request per text. All returned vectors must
// share one length.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	c.log.Info().Int("texts", len(texts)).Str("model", c.model).Msg("Connecting to embedding service")

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		c.log.Error().Err(err).Msg("Error during embedding")
		return nil, fmt.Errorf("%w: embedding documents: %v", models.ErrTransport, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrTransport, len(vectors), len(texts))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for text %d", models.ErrTransport, i)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", models.ErrTransport, i, len(v), dim)
		}
	}

	c.log.Info().Int("vectors", len(vectors)).Int("dim", dim).Msg("Embedding completed successfully")
	return vectors, nil
}

// EmbedOne embeds a single query text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	c.log.Debug().Str("query", text).Msg("Embedding the query")
	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		c.log.Error().Err(err).Msg("Error embedding query")
		return nil, fmt.Errorf("%w: embedding query: %v", models.ErrTransport, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", models.ErrTransport)
	}
	return vector, nil
}
