package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"document-embed/internal/models"
	"document-embed/internal/parser"
	"document-embed/internal/search"
)

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Store persists chunks and their vectors.
type Store interface {
	search.VectorSource
	AddChunk(ctx context.Context, documentName, chunkID, text string) (string, error)
	AttachEmbedding(ctx context.Context, id string, vector []float32) error
	Dimension(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*models.EmbeddingRecord, error)
}

// IngestResult summarises one directory ingestion.
type IngestResult struct {
	IDs     []string             `json:"ids"`
	Chunks  int                  `json:"chunks"`
	Files   int                  `json:"files"`
	Skipped []parser.SkippedFile `json:"skipped,omitempty"`
}

// QueryResult holds the closest stored records, nearest first. Matches is
// empty when the collection holds no vectors.
type QueryResult struct {
	Query   string                   `json:"query"`
	Matches []models.Match           `json:"matches"`
	Records []models.EmbeddingRecord `json:"records"`
}

// Best returns the closest match, if any.
func (r *QueryResult) Best() (models.Match, bool) {
	if len(r.Matches) == 0 {
		return models.Match{}, false
	}
	return r.Matches[0], true
}

// Pipeline wires the splitter, embedder and store together.
type Pipeline struct {
	store    Store
	embedder Embedder
	splitter parser.Splitter
	searcher *search.Searcher
	log      zerolog.Logger
}

func NewPipeline(store Store, embedder Embedder, splitter parser.Splitter, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		searcher: search.NewSearcher(store, logger),
		log:      logger,
	}
}

// Ingest loads every document in dir, embeds all chunks in one EmbedMany
// call and stores each chunk followed by its vector. Vectors that do not
// match the collection's dimensionality are rejected before any row is
// written.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (*IngestResult, error) {
	loaded, err := parser.LoadDirectory(ctx, dir, p.splitter, p.log)
	if err != nil {
		return nil, err
	}
	result := &IngestResult{
		Chunks:  len(loaded.Chunks),
		Files:   loaded.Files,
		Skipped: loaded.Skipped,
		IDs:     []string{},
	}
	if len(loaded.Chunks) == 0 {
		p.log.Warn().Str("dir", dir).Msg("No chunks to embed")
		return result, nil
	}

	texts := make([]string, len(loaded.Chunks))
	for i, c := range loaded.Chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := p.checkDimension(ctx, vectors); err != nil {
		return nil, err
	}

	p.log.Info().Int("chunks", len(loaded.Chunks)).Msg("Loading embeddings to database")
	for i, c := range loaded.Chunks {
		id, err := p.store.AddChunk(ctx, c.Source, c.ID, c.Text)
		if err != nil {
			return nil, fmt.Errorf("storing chunk %s: %w", c.ID, err)
		}
		if err := p.store.AttachEmbedding(ctx, id, vectors[i]); err != nil {
			return nil, fmt.Errorf("storing vector for chunk %s: %w", c.ID, err)
		}
		result.IDs = append(result.IDs, id)
	}
	p.log.Info().Int("records", len(result.IDs)).Msg("Embeddings successfully loaded into database")
	return result, nil
}

func (p *Pipeline) checkDimension(ctx context.Context, vectors [][]float32) error {
	dim, err := p.store.Dimension(ctx)
	if err != nil {
		return err
	}
	for i, v := range vectors {
		if (dim != 0 && len(v) != dim) || len(v) != len(vectors[0]) {
			p.log.Error().Int("vector", i).Int("dim", len(v)).Int("collection_dim", dim).Msg("Embedding dimension does not match collection")
			return fmt.Errorf("%w: vector %d has %d dimensions, collection has %d", models.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// Query embeds text and returns the k stored records closest to it. k below
// two runs the single nearest neighbour scan.
func (p *Pipeline) Query(ctx context.Context, text string, k int) (*QueryResult, error) {
	p.log.Info().Str("query", text).Msg("Finding the closest match in the database")

	probe, err := p.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	matches, err := p.match(ctx, probe, k)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Query: text, Matches: matches, Records: []models.EmbeddingRecord{}}
	for _, m := range matches {
		rec, err := p.store.Get(ctx, m.ID)
		if errors.Is(err, models.ErrNotFound) {
			// cleared between scan and lookup
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, *rec)
	}

	if best, ok := result.Best(); ok {
		p.log.Info().Str("id", best.ID).Float64("distance", best.Distance).Msg("Closest match found")
	} else {
		p.log.Info().Msg("No stored vectors to match")
	}
	return result, nil
}

func (p *Pipeline) match(ctx context.Context, probe []float32, k int) ([]models.Match, error) {
	if k > 1 {
		return p.searcher.QueryK(ctx, probe, k)
	}
	m, ok, err := p.searcher.Query(ctx, probe)
	if err != nil || !ok {
		return []models.Match{}, err
	}
	return []models.Match{m}, nil
}
