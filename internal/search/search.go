// Package search finds the stored vectors closest to a probe by scanning
// every candidate. There is no index; cost is linear in the collection size.
package search

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"document-embed/internal/models"
)

// VectorSource returns every (identifier, vector) pair of a collection.
type VectorSource interface {
	GetAllEmbeddings(ctx context.Context) ([]models.StoredVector, error)
}

// Nearest returns the candidate with the smallest Euclidean distance to
// probe. On ties the first candidate in scan order wins. Candidates whose
// distance cannot be computed are logged and skipped. The second result is
// false when no candidate qualifies.
func Nearest(candidates []models.StoredVector, probe []float32, logger zerolog.Logger) (models.Match, bool) {
	var (
		best  models.Match
		found bool
	)
	for _, c := range candidates {
		d, ok := distance(c, probe, logger)
		if !ok {
			continue
		}
		if !found || d < best.Distance {
			best = models.Match{ID: c.ID, Vector: c.Vector, Distance: d}
			found = true
		}
	}
	return best, found
}

// TopK returns up to k candidates ordered by ascending distance, keeping scan
// order among equal distances. k <= 0 returns every scorable candidate.
func TopK(candidates []models.StoredVector, probe []float32, k int, logger zerolog.Logger) []models.Match {
	matches := make([]models.Match, 0, len(candidates))
	for _, c := range candidates {
		d, ok := distance(c, probe, logger)
		if !ok {
			continue
		}
		matches = append(matches, models.Match{ID: c.ID, Vector: c.Vector, Distance: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

func distance(c models.StoredVector, probe []float32, logger zerolog.Logger) (float64, bool) {
	d, err := L2Distance(c.Vector, probe)
	if err != nil {
		logger.Warn().Err(err).Str("id", c.ID).Msg("Skipping vector")
		return 0, false
	}
	if math.IsNaN(d) {
		logger.Warn().Str("id", c.ID).Msg("Skipping vector with NaN distance")
		return 0, false
	}
	return d, true
}

// Searcher runs nearest neighbour queries against a VectorSource.
type Searcher struct {
	source VectorSource
	log    zerolog.Logger
}

func NewSearcher(source VectorSource, logger zerolog.Logger) *Searcher {
	return &Searcher{source: source, log: logger}
}

// Query returns the stored vector closest to probe, or false when the
// collection holds none.
func (s *Searcher) Query(ctx context.Context, probe []float32) (models.Match, bool, error) {
	candidates, err := s.source.GetAllEmbeddings(ctx)
	if err != nil {
		return models.Match{}, false, err
	}
	match, ok := Nearest(candidates, probe, s.log)
	s.log.Debug().Int("candidates", len(candidates)).Bool("found", ok).Str("id", match.ID).Msg("Nearest neighbour scan")
	return match, ok, nil
}

// QueryK returns the k closest stored vectors.
func (s *Searcher) QueryK(ctx context.Context, probe []float32, k int) ([]models.Match, error) {
	candidates, err := s.source.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	return TopK(candidates, probe, k, s.log), nil
}
