package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-embed/internal/models"
)

type fakeEmbedder struct {
	calls   int
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors[0], nil
	}
	return []float32{float32(len(text)), 0}, nil
}

func TestEmbedMany(t *testing.T) {
	fake := &fakeEmbedder{}
	c := NewClient(fake, "test-model", zerolog.Nop())

	vectors, err := c.EmbedMany(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {3, 1}}, vectors)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "test-model", c.Model())
}

func TestEmbedMany_EmptyInputSkipsService(t *testing.T) {
	fake := &fakeEmbedder{}
	c := NewClient(fake, "m", zerolog.Nop())

	vectors, err := c.EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, fake.calls)
}

func TestEmbedMany_BadResponses(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeEmbedder
	}{
		{"service error", &fakeEmbedder{err: errors.New("connection refused")}},
		{"count mismatch", &fakeEmbedder{vectors: [][]float32{{1, 2}}}},
		{"empty vector", &fakeEmbedder{vectors: [][]float32{{1, 2}, {}}}},
		{"inconsistent dimension", &fakeEmbedder{vectors: [][]float32{{1, 2}, {1, 2, 3}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClient(tc.fake, "m", zerolog.Nop())
			_, err := c.EmbedMany(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, models.ErrTransport)
		})
	}
}

func TestEmbedOne(t *testing.T) {
	c := NewClient(&fakeEmbedder{}, "m", zerolog.Nop())
	v, err := c.EmbedOne(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0}, v)

	c = NewClient(&fakeEmbedder{err: errors.New("timeout")}, "m", zerolog.Nop())
	_, err = c.EmbedOne(context.Background(), "four")
	assert.ErrorIs(t, err, models.ErrTransport)

	c = NewClient(&fakeEmbedder{vectors: [][]float32{{}}}, "m", zerolog.Nop())
	_, err = c.EmbedOne(context.Background(), "four")
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestNew_Providers(t *testing.T) {
	c, err := New(Options{Provider: ProviderOllama, BaseURL: "http://localhost:11434", Model: "nomic-embed-text"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", c.Model())

	_, err = New(Options{Provider: "cohere"}, zerolog.Nop())
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
