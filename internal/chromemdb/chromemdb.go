package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"document-embed/internal/helper"
	"document-embed/internal/models"
)

// ExportOptions describes the chromem file written by Export.
type ExportOptions struct {
	Path       string
	Collection string
	// EncryptionKey must be empty or exactly 32 bytes
	EncryptionKey string
	Compress      bool
}

// VectorDBManager holds an in-memory chromem database with one collection.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
	log        zerolog.Logger
}

// NewVectorDBManager creates an in-memory database and the named collection.
func NewVectorDBManager(collectionName string, logger zerolog.Logger) (*VectorDBManager, error) {
	db := chromem.NewDB()
	// vectors are always supplied, so the collection never needs an embedding func
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return &VectorDBManager{db: db, collection: c, log: logger}, nil
}

// AddRecords adds every record that carries a vector and returns how many
// were added.
func (m *VectorDBManager) AddRecords(ctx context.Context, records []models.EmbeddingRecord) (int, error) {
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if len(r.Vector) == 0 {
			m.log.Debug().Str("id", r.ID).Msg("Skipping record without vector")
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      r.ID,
			Content: r.Text,
			Metadata: map[string]string{
				"document_name": r.DocumentName,
				"chunk_id":      r.ChunkID,
			},
			Embedding: r.Vector,
		})
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}
	return len(docs), nil
}

// Export writes the collection to path.
func (m *VectorDBManager) Export(path, encryptionKey string, compress bool) error {
	if err := validateKey(encryptionKey); err != nil {
		return err
	}
	if err := helper.CreateFolder(filepath.Dir(path)); err != nil {
		return err
	}
	m.log.Debug().
		Str("collection", m.collection.Name).
		Str("file", path).
		Bool("compress", compress).
		Bool("encrypted", encryptionKey != "").
		Msg("Exporting collection")
	if err := m.db.ExportToFile(path, compress, encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Query returns up to n documents closest to vector, by cosine similarity.
func (m *VectorDBManager) Query(ctx context.Context, vector []float32, n int) ([]chromem.Result, error) {
	if n > m.Count() {
		n = m.Count()
	}
	if n <= 0 {
		return nil, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Import loads the named collection from a file written by Export.
func Import(path, encryptionKey, collectionName string, logger zerolog.Logger) (*VectorDBManager, error) {
	if err := validateKey(encryptionKey); err != nil {
		return nil, err
	}
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, encryptionKey, collectionName); err != nil {
		return nil, fmt.Errorf("failed to import database: %w", err)
	}
	c := db.GetCollection(collectionName, nil)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %s in %s", models.ErrNotFound, collectionName, path)
	}
	return &VectorDBManager{db: db, collection: c, log: logger}, nil
}

// Export writes every embedded record into a chromem database file and
// returns the number of documents written.
func Export(ctx context.Context, records []models.EmbeddingRecord, opts ExportOptions, logger zerolog.Logger) (int, error) {
	if opts.Path == "" || opts.Collection == "" {
		return 0, fmt.Errorf("%w: export path and collection are required", models.ErrInvalidInput)
	}
	m, err := NewVectorDBManager(opts.Collection, logger)
	if err != nil {
		return 0, err
	}
	n, err := m.AddRecords(ctx, records)
	if err != nil {
		return 0, err
	}
	if err := m.Export(opts.Path, opts.EncryptionKey, opts.Compress); err != nil {
		return 0, err
	}
	logger.Info().Str("file", opts.Path).Int("documents", n).Msg("Collection exported")
	return n, nil
}

// Count re-imports an exported file and reports its document count.
func Count(path, encryptionKey, collectionName string, logger zerolog.Logger) (int, error) {
	m, err := Import(path, encryptionKey, collectionName, logger)
	if err != nil {
		return 0, err
	}
	return m.Count(), nil
}

func validateKey(key string) error {
	if key != "" && len(key) != 32 {
		return fmt.Errorf("%w: encryption key must be 32 bytes, got %d", models.ErrInvalidInput, len(key))
	}
	return nil
}

// Verify re-imports an exported file and checks that querying with probe's
// vector returns probe as the closest document. It returns the imported
// document count.
func Verify(ctx context.Context, opts ExportOptions, probe models.EmbeddingRecord, logger zerolog.Logger) (int, error) {
	m, err := Import(opts.Path, opts.EncryptionKey, opts.Collection, logger)
	if err != nil {
		return 0, err
	}
	n := m.Count()
	if len(probe.Vector) == 0 {
		return n, nil
	}
	results, err := m.Query(ctx, probe.Vector, 1)
	if err != nil {
		return n, err
	}
	if len(results) == 0 || results[0].ID != probe.ID {
		return n, fmt.Errorf("%w: %s does not return record %s for its own vector", models.ErrMalformed, opts.Path, probe.ID)
	}
	logger.Debug().Str("id", probe.ID).Float32("similarity", results[0].Similarity).Msg("Export verified")
	return n, nil
}
