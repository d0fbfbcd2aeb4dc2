package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"document-embed/internal/helper"
	"document-embed/internal/models"
)

// Document is one chunk row of a collection. Embeddings holds the JSON
// encoded vector and stays NULL until AttachEmbedding is called. Several
// collections may share the table when they share a database.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	Seq           int64     `bun:"seq,pk,autoincrement"`
	UUID          string    `bun:"uuid,unique,notnull"`
	Collection    string    `bun:"collection,notnull"`
	DocumentName  string    `bun:"document_name"`
	ChunkID       string    `bun:"chunk_id"`
	Timestamp     time.Time `bun:"timestamp,notnull"`
	Data          string    `bun:"data"`
	Embeddings    string    `bun:"embeddings,nullzero"`
	EmbTimestamp  time.Time `bun:"emb_timestamp,nullzero"`
}

// DocumentStore persists chunks and their vectors for one collection.
// Every mutating call is a single statement committed on return.
type DocumentStore struct {
	db         *bun.DB
	collection string
	log        zerolog.Logger
	// dim is the vector length fixed by the first stored embedding, 0 until known
	dim int
	now func() time.Time
}

// NewDocumentStore wraps db and creates the documents table if needed. Every
// read and write is scoped to collection.
func NewDocumentStore(ctx context.Context, db *bun.DB, collection string, logger zerolog.Logger) (*DocumentStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", models.ErrInvalidInput)
	}
	s := &DocumentStore{db: db, collection: collection, log: logger, now: time.Now}
	if err := s.initTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Open connects to the collection described by opts and returns its store.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*DocumentStore, error) {
	db, err := Connect(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Str("collection", opts.Collection).Msg("Error connecting to database")
		return nil, err
	}
	s, err := NewDocumentStore(ctx, db, opts.Collection, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info().Str("collection", opts.Collection).Msg("Connected to document store")
	return s, nil
}

func (s *DocumentStore) initTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Error creating table")
		return fmt.Errorf("%w: creating documents table: %v", models.ErrPersistence, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// AddChunk stores text under a freshly generated identifier. No vector yet.
func (s *DocumentStore) AddChunk(ctx context.Context, documentName, chunkID, text string) (string, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	doc := &Document{
		UUID:         id,
		Collection:   s.collection,
		DocumentName: documentName,
		ChunkID:      chunkID,
		Timestamp:    s.now(),
		Data:         text,
	}
	if _, err := s.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		s.log.Error().Err(err).Msg("Error adding data")
		return "", fmt.Errorf("%w: adding chunk: %v", models.ErrPersistence, err)
	}
	s.log.Debug().Str("uuid", id).Str("chunk_id", chunkID).Msg("Data added")
	return id, nil
}

// AttachEmbedding writes vector against an existing record. The vector can
// be written only once and must match the collection's dimensionality.
func (s *DocumentStore) AttachEmbedding(ctx context.Context, id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", models.ErrInvalidInput, id)
	}
	dim, err := s.Dimension(ctx)
	if err != nil {
		return err
	}
	if dim != 0 && dim != len(vector) {
		return fmt.Errorf("%w: vector has %d dimensions, collection has %d", models.ErrDimensionMismatch, len(vector), dim)
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("%w: encoding vector: %v", models.ErrMalformed, err)
	}

	res, err := s.db.NewUpdate().
		Model((*Document)(nil)).
		Set("embeddings = ?", string(encoded)).
		Set("emb_timestamp = ?", s.now()).
		Where("uuid = ?", id).
		Where("collection = ?", s.collection).
		Where("embeddings IS NULL").
		Exec(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("uuid", id).Msg("Error adding embedding")
		return fmt.Errorf("%w: attaching embedding: %v", models.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			s.log.Warn().Str("uuid", id).Msg("Embedding for unknown record")
			return err
		}
		return fmt.Errorf("%w: %s", models.ErrAlreadyEmbedded, id)
	}

	s.dim = len(vector)
	s.log.Debug().Str("uuid", id).Int("dim", len(vector)).Msg("Embedding added")
	return nil
}

// Dimension returns the vector length fixed by the collection's first stored
// vector, or 0 while it holds none. It is read from storage once.
func (s *DocumentStore) Dimension(ctx context.Context) (int, error) {
	if s.dim != 0 {
		return s.dim, nil
	}
	var doc Document
	err := s.db.NewSelect().
		Model(&doc).
		Column("uuid", "embeddings").
		Where("collection = ?", s.collection).
		Where("embeddings IS NOT NULL").
		Order("seq ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading dimension: %v", models.ErrPersistence, err)
	}
	vec, err := decodeVector(doc.Embeddings)
	if err != nil {
		// a broken row does not define the collection
		return 0, nil
	}
	s.dim = len(vec)
	return s.dim, nil
}

// GetAllEmbeddings returns every record that has a vector, in creation order.
// Records without a vector are skipped with a warning and records whose
// vector cannot be decoded are skipped with an error log.
func (s *DocumentStore) GetAllEmbeddings(ctx context.Context) ([]models.StoredVector, error) {
	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Column("uuid", "embeddings").
		Where("collection = ?", s.collection).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Error fetching embeddings from database")
		return nil, fmt.Errorf("%w: fetching embeddings: %v", models.ErrPersistence, err)
	}

	out := make([]models.StoredVector, 0, len(docs))
	for _, doc := range docs {
		if doc.Embeddings == "" {
			s.log.Warn().Str("uuid", doc.UUID).Msg("Embeddings are empty and will be skipped")
			continue
		}
		vec, err := decodeVector(doc.Embeddings)
		if err != nil {
			s.log.Error().Err(err).Str("uuid", doc.UUID).Msg("Error decoding embeddings")
			continue
		}
		out = append(out, models.StoredVector{ID: doc.UUID, Vector: vec})
	}
	return out, nil
}

// Get returns the record with the given identifier.
func (s *DocumentStore) Get(ctx context.Context, id string) (*models.EmbeddingRecord, error) {
	var doc Document
	err := s.db.NewSelect().
		Model(&doc).
		Where("uuid = ?", id).
		Where("collection = ?", s.collection).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading record: %v", models.ErrPersistence, err)
	}
	return toRecord(doc)
}

// Records returns every record of the collection in creation order.
func (s *DocumentStore) Records(ctx context.Context) ([]models.EmbeddingRecord, error) {
	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Where("collection = ?", s.collection).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading records: %v", models.ErrPersistence, err)
	}
	return s.toRecords(docs), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchByName returns the records whose source document name contains
// substr, ignoring case. Wildcard characters in substr match literally.
func (s *DocumentStore) SearchByName(ctx context.Context, substr string) ([]models.EmbeddingRecord, error) {
	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Where("collection = ?", s.collection).
		Where("lower(document_name) LIKE lower(?) ESCAPE '!'", "%"+likeEscaper.Replace(substr)+"%").
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("query", substr).Msg("Error retrieving data")
		return nil, fmt.Errorf("%w: searching by name: %v", models.ErrPersistence, err)
	}
	s.log.Debug().Str("query", substr).Int("count", len(docs)).Msg("Data retrieved")
	return s.toRecords(docs), nil
}

// Count returns the number of stored records, embedded or not.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().
		Model((*Document)(nil)).
		Where("collection = ?", s.collection).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", models.ErrPersistence, err)
	}
	return n, nil
}

// Clear deletes every record of the collection.
func (s *DocumentStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*Document)(nil)).
		Where("collection = ?", s.collection).
		Exec(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Error dropping all data")
		return fmt.Errorf("%w: clearing documents: %v", models.ErrPersistence, err)
	}
	s.dim = 0
	s.log.Info().Str("collection", s.collection).Msg("All data dropped from collection")
	return nil
}

func (s *DocumentStore) toRecords(docs []Document) []models.EmbeddingRecord {
	out := make([]models.EmbeddingRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := toRecord(doc)
		if err != nil {
			s.log.Error().Err(err).Str("uuid", doc.UUID).Msg("Error decoding embeddings")
			rec = &models.EmbeddingRecord{
				ID:           doc.UUID,
				DocumentName: doc.DocumentName,
				ChunkID:      doc.ChunkID,
				Text:         doc.Data,
				CreatedAt:    doc.Timestamp,
			}
		}
		out = append(out, *rec)
	}
	return out
}

func toRecord(doc Document) (*models.EmbeddingRecord, error) {
	rec := &models.EmbeddingRecord{
		ID:           doc.UUID,
		DocumentName: doc.DocumentName,
		ChunkID:      doc.ChunkID,
		Text:         doc.Data,
		CreatedAt:    doc.Timestamp,
		EmbeddedAt:   doc.EmbTimestamp,
	}
	if doc.Embeddings == "" {
		return rec, nil
	}
	vec, err := decodeVector(doc.Embeddings)
	if err != nil {
		return nil, err
	}
	rec.Vector = vec
	return rec, nil
}

func decodeVector(raw string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}
	return vec, nil
}
