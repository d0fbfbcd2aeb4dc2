package parser

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"document-embed/internal/models"
)

const (
	defaultChunkSize = 500 // characters

	StrategyFixed     = "fixed"
	StrategyRecursive = "recursive"
)

// Splitter cuts extracted text into chunks of bounded size.
type Splitter interface {
	Split(text string) ([]string, error)
}

// NewSplitter returns the splitter for strategy. Sizes below one fall back
// to the default chunk size.
func NewSplitter(strategy string, chunkSize int) (Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	switch strategy {
	case "", StrategyFixed:
		return FixedSplitter{ChunkSize: chunkSize}, nil
	case StrategyRecursive:
		return RecursiveSplitter{ChunkSize: chunkSize}, nil
	default:
		return nil, fmt.Errorf("%w: chunk strategy %q", models.ErrInvalidInput, strategy)
	}
}

// FixedSplitter cuts text into consecutive, non-overlapping windows of at
// most ChunkSize characters. It prefers to end a window just after a space,
// newline or period found in the window's last tenth. Nothing is trimmed, so
// joining the chunks gives back the input.
type FixedSplitter struct {
	ChunkSize int
}

func (s FixedSplitter) Split(text string) ([]string, error) {
	return chunkContent(text, s.ChunkSize), nil
}

// RecursiveSplitter splits on paragraphs, then lines, then words, then
// characters, with no overlap between chunks.
type RecursiveSplitter struct {
	ChunkSize int
}

func (s RecursiveSplitter) Split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.ChunkSize),
		textsplitter.WithChunkOverlap(0),
	)
	return splitter.SplitText(text)
}

// chunk content into windows of at most maxChars runes
func chunkContent(content string, maxChars int) []string {
	if maxChars <= 0 || content == "" {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		// Find a clean break point within the last 10% of the window
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}
