package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-embed/internal/db"
	"document-embed/internal/models"
	"document-embed/internal/parser"
)

// letterEmbedder maps a text to the counts of 'a', 'b' and 'c' in it,
// followed by extra zero components.
type letterEmbedder struct {
	manyCalls int
	extra     int
	err       error
}

func (e *letterEmbedder) letters(text string) []float32 {
	v := []float32{
		float32(strings.Count(text, "a")),
		float32(strings.Count(text, "b")),
		float32(strings.Count(text, "c")),
	}
	return append(v, make([]float32, e.extra)...)
}

func (e *letterEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	e.manyCalls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.letters(t)
	}
	return out, nil
}

func (e *letterEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.letters(text), nil
}

func newTestPipeline(t *testing.T, e Embedder) (*Pipeline, *db.DocumentStore) {
	t.Helper()
	store, err := db.Open(context.Background(), db.Options{DataDir: t.TempDir(), Collection: "test"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newPipelineOn(store, e), store
}

func newPipelineOn(store *db.DocumentStore, e Embedder) *Pipeline {
	return NewPipeline(store, e, parser.FixedSplitter{ChunkSize: 8}, zerolog.Nop())
}

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "books")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestIngestAndQuery(t *testing.T) {
	ctx := context.Background()
	emb := &letterEmbedder{}
	p, store := newTestPipeline(t, emb)

	dir := writeDocs(t, map[string]string{
		"one.txt": "aaaaaaaabbbbbbbb",
		"two.txt": "cccccccc",
	})

	res, err := p.Ingest(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 2, res.Files)
	assert.Len(t, res.IDs, 3)
	assert.Equal(t, 1, emb.manyCalls)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	q, err := p.Query(ctx, "bbb", 1)
	require.NoError(t, err)
	best, ok := q.Best()
	require.True(t, ok)
	assert.Equal(t, res.IDs[1], best.ID)
	require.Len(t, q.Records, 1)
	assert.Equal(t, "bbbbbbbb", q.Records[0].Text)
	assert.Equal(t, "books_1", q.Records[0].ChunkID)
	assert.Equal(t, "one.txt", q.Records[0].DocumentName)

	q, err = p.Query(ctx, "c", 5)
	require.NoError(t, err)
	require.Len(t, q.Matches, 3)
	assert.Equal(t, res.IDs[2], q.Matches[0].ID)
}

func TestQuery_EmptyCollection(t *testing.T) {
	p, _ := newTestPipeline(t, &letterEmbedder{})

	q, err := p.Query(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, q.Matches)
	assert.Empty(t, q.Records)
	_, ok := q.Best()
	assert.False(t, ok)
}

func TestIngest_EmptyDirectorySkipsEmbedding(t *testing.T) {
	emb := &letterEmbedder{}
	p, _ := newTestPipeline(t, emb)

	res, err := p.Ingest(context.Background(), writeDocs(t, nil))
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
	assert.Empty(t, res.IDs)
	assert.Zero(t, emb.manyCalls)
}

func TestIngest_MissingDirectory(t *testing.T) {
	p, _ := newTestPipeline(t, &letterEmbedder{})
	_, err := p.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	p, store := newTestPipeline(t, &letterEmbedder{err: models.ErrTransport})

	_, err := p.Ingest(ctx, writeDocs(t, map[string]string{"one.txt": "abc"}))
	assert.True(t, errors.Is(err, models.ErrTransport))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_DimensionChangeWritesNothing(t *testing.T) {
	ctx := context.Background()
	p, store := newTestPipeline(t, &letterEmbedder{})

	_, err := p.Ingest(ctx, writeDocs(t, map[string]string{"one.txt": "aaaaaaaabbbbbbbb"}))
	require.NoError(t, err)

	// same collection, a model with one more dimension
	wider := newPipelineOn(store, &letterEmbedder{extra: 1})
	_, err = wider.Ingest(ctx, writeDocs(t, map[string]string{"two.txt": "cccc"}))
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	embedded, err := store.GetAllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, embedded, 2)
}

func TestQuery_SingleAndTopK(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t, &letterEmbedder{})

	// equal distance to both chunks from "ab"
	res, err := p.Ingest(ctx, writeDocs(t, map[string]string{"one.txt": "aaaaaaaabbbbbbbb"}))
	require.NoError(t, err)

	for _, k := range []int{-1, 0, 1} {
		q, err := p.Query(ctx, "ab", k)
		require.NoError(t, err)
		require.Len(t, q.Matches, 1, "k=%d", k)
		assert.Equal(t, res.IDs[0], q.Matches[0].ID, "first stored wins ties")
	}

	q, err := p.Query(ctx, "ab", 2)
	require.NoError(t, err)
	require.Len(t, q.Matches, 2)
	assert.Equal(t, res.IDs[0], q.Matches[0].ID)
	assert.Equal(t, res.IDs[1], q.Matches[1].ID)
}
