package vsmlib

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGloVe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glove.txt")
	content := "cat 1 0\n" +
		"dog 0.9 0.1\n" +
		"bad 1 x\n" +
		"short 1\n" +
		"\xff\xfe 1 1\n" +
		"\n" +
		"cat 5 5\n" +
		"café 0 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, skipped, err := LoadGloVe(path)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, []string{"cat", "dog", "café"}, m.Words())
	assert.Equal(t, 2, m.Dim())

	vec, err := m.Vector("cat")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)

	_, err = m.Vector("bird")
	assert.ErrorIs(t, err, ErrNotInVSM)

	_, _, err = LoadGloVe(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("walk", []float64{0.125, -3}))
	require.NoError(t, m.Add("run", []float64{1e-7, 2}))
	assert.ErrorIs(t, m.Add("jog", []float64{1}), ErrDimMismatch)
	assert.Error(t, m.Add("walk", []float64{1, 1}))

	path := filepath.Join(t.TempDir(), "out", "vsm.txt")
	require.NoError(t, m.Save(path))
	back, skipped, err := LoadGloVe(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, m.Words(), back.Words())
	vec, _ := back.Vector("run")
	assert.Equal(t, []float64{1e-7, 2}, vec)
}

func TestDistances(t *testing.T) {
	u := []float64{1, 0}
	v := []float64{0, 1}
	w := []float64{2, 0}
	zero := []float64{0, 0}

	tests := []struct {
		name string
		dist Distance
		a, b []float64
		want float64
	}{
		{"cosine orthogonal", Cosine, u, v, 1},
		{"cosine parallel", Cosine, u, w, 0},
		{"cosine zero norm", Cosine, u, zero, 1},
		{"euclidean", Euclidean, v, w, math.Sqrt(5)},
		{"matching", Matching, []float64{1, 3}, []float64{2, 1}, 2},
		{"jaccard", Jaccard, []float64{1, 3}, []float64{2, 1}, 1 - 2.0/5},
		{"jaccard zero", Jaccard, zero, zero, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.dist(tt.a, tt.b), 1e-12)
		})
	}

	d, err := DistanceByName("Euclidean")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d(u, w), 1e-12)
	_, err = DistanceByName("manhattan")
	assert.Error(t, err)
}

func TestRankAndNeighbors(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("a", []float64{1, 0}))
	require.NoError(t, m.Add("b", []float64{0, 1}))
	require.NoError(t, m.Add("c", []float64{2, 0}))
	require.NoError(t, m.Add("d", []float64{1, 1}))

	n, err := m.Neighbors("a", Cosine)
	require.NoError(t, err)
	words := make([]string, len(n))
	for i, s := range n {
		words[i] = s.Word
	}
	// a and c tie at distance 0 and keep vocabulary order
	assert.Equal(t, []string{"a", "c", "d", "b"}, words)

	r, err := m.Rank([]float64{1, 0}, Euclidean, "a", "c")
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.Equal(t, "d", r[0].Word)

	_, err = m.Rank([]float64{1}, Cosine)
	assert.ErrorIs(t, err, ErrDimMismatch)
	_, err = m.Neighbors("z", Cosine)
	assert.ErrorIs(t, err, ErrNotInVSM)
}
