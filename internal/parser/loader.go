package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"document-embed/internal/models"
)

// SkippedFile is a document that could not be read.
type SkippedFile struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// LoadResult holds the chunks of one directory load.
type LoadResult struct {
	Chunks  []models.Chunk
	Skipped []SkippedFile
	Files   int
}

// LoadDirectory extracts and splits every supported document directly inside
// dir, in file name order. Chunk IDs are the directory name followed by a
// zero-based index counted across the whole load. A file that fails
// extraction is logged and skipped.
func LoadDirectory(ctx context.Context, dir string, splitter Splitter, logger zerolog.Logger) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		logger.Error().Str("dir", dir).Msg("Directory does not exist")
		return nil, fmt.Errorf("%w: directory %s", models.ErrNotFound, dir)
	}
	if err != nil {
		return nil, err
	}

	// sorted by file name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	documentID := filepath.Base(filepath.Clean(dir))
	result := &LoadResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		result.Files++

		path := filepath.Join(dir, entry.Name())
		parts, err := loadFile(path, splitter)
		if err != nil {
			logger.Error().Err(err).Str("file", entry.Name()).Msg("Error loading document, skipping")
			result.Skipped = append(result.Skipped, SkippedFile{Name: entry.Name(), Err: err.Error()})
			continue
		}
		for _, part := range parts {
			result.Chunks = append(result.Chunks, models.Chunk{
				ID:     fmt.Sprintf("%s_%d", documentID, len(result.Chunks)),
				Text:   part,
				Source: entry.Name(),
			})
		}
	}

	logger.Info().
		Str("dir", dir).
		Int("files", result.Files).
		Int("chunks", len(result.Chunks)).
		Int("skipped", len(result.Skipped)).
		Msg("Document loaded and split into chunks")
	return result, nil
}

func loadFile(path string, splitter Splitter) ([]string, error) {
	content, err := Extract(path)
	if err != nil {
		return nil, err
	}
	return splitter.Split(content)
}
