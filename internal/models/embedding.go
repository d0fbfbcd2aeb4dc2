package models

import "time"

// Chunk represents a parsed chunk of a source document
type Chunk struct {
	ID     string
	Text   string
	Source string
}

// EmbeddingRecord is a persisted chunk together with its vector
type EmbeddingRecord struct {
	ID           string    `json:"id"`
	DocumentName string    `json:"document_name"`
	ChunkID      string    `json:"chunk_id"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"vector,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	EmbeddedAt   time.Time `json:"embedded_at,omitempty"`
}

// StoredVector is the (identifier, vector) pair returned by a store scan
type StoredVector struct {
	ID     string
	Vector []float32
}

// Match is a stored vector together with its distance to a probe
type Match struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Distance float64   `json:"distance"`
}
