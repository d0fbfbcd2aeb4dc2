package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-embed/internal/models"
)

func TestL2Distance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := L2Distance(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}

	_, err := L2Distance([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestNearest(t *testing.T) {
	candidates := []models.StoredVector{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "c", Vector: []float32{0, 0}},
	}
	m, ok := Nearest(candidates, []float32{0.9, 0.1}, zerolog.Nop())
	require.True(t, ok)
	assert.Equal(t, "a", m.ID)
	assert.Equal(t, []float32{1, 0}, m.Vector)
	assert.InDelta(t, math.Sqrt(0.02), m.Distance, 1e-6)
}

func TestNearest_TieKeepsFirst(t *testing.T) {
	candidates := []models.StoredVector{
		{ID: "first", Vector: []float32{1, 0}},
		{ID: "second", Vector: []float32{-1, 0}},
	}
	m, ok := Nearest(candidates, []float32{0, 0}, zerolog.Nop())
	require.True(t, ok)
	assert.Equal(t, "first", m.ID)
}

func TestNearest_Empty(t *testing.T) {
	_, ok := Nearest(nil, []float32{1, 2}, zerolog.Nop())
	assert.False(t, ok)
}

func TestNearest_SkipsUnscorable(t *testing.T) {
	nan := float32(math.NaN())
	candidates := []models.StoredVector{
		{ID: "short", Vector: []float32{1}},
		{ID: "nan", Vector: []float32{nan, 0}},
		{ID: "far", Vector: []float32{10, 10}},
	}
	m, ok := Nearest(candidates, []float32{0, 0}, zerolog.Nop())
	require.True(t, ok)
	assert.Equal(t, "far", m.ID)

	_, ok = Nearest(candidates[:2], []float32{0, 0}, zerolog.Nop())
	assert.False(t, ok)
}

func TestTopK(t *testing.T) {
	candidates := []models.StoredVector{
		{ID: "far", Vector: []float32{5, 0}},
		{ID: "tie1", Vector: []float32{1, 0}},
		{ID: "near", Vector: []float32{0, 0}},
		{ID: "tie2", Vector: []float32{0, 1}},
		{ID: "bad", Vector: []float32{1, 2, 3}},
	}
	probe := []float32{0, 0}

	ids := func(ms []models.Match) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"near", "tie1"}, ids(TopK(candidates, probe, 2, zerolog.Nop())))
	assert.Equal(t, []string{"near", "tie1", "tie2", "far"}, ids(TopK(candidates, probe, 0, zerolog.Nop())))
	assert.Equal(t, []string{"near", "tie1", "tie2", "far"}, ids(TopK(candidates, probe, 10, zerolog.Nop())))
	assert.Empty(t, TopK(nil, probe, 3, zerolog.Nop()))
}

type staticSource struct {
	vectors []models.StoredVector
	err     error
}

func (s staticSource) GetAllEmbeddings(context.Context) ([]models.StoredVector, error) {
	return s.vectors, s.err
}

func TestSearcher(t *testing.T) {
	ctx := context.Background()
	src := staticSource{vectors: []models.StoredVector{
		{ID: "x", Vector: []float32{1, 1}},
		{ID: "y", Vector: []float32{2, 2}},
	}}
	s := NewSearcher(src, zerolog.Nop())

	m, ok, err := s.Query(ctx, []float32{2.1, 2})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "y", m.ID)

	ms, err := s.QueryK(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "x", ms[0].ID)

	_, ok, err = NewSearcher(staticSource{}, zerolog.Nop()).Query(ctx, []float32{1, 1})
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("db down")
	_, _, err = NewSearcher(staticSource{err: boom}, zerolog.Nop()).Query(ctx, []float32{1})
	assert.ErrorIs(t, err, boom)
}
