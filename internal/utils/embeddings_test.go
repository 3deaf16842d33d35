package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score 1", func(t *testing.T) {
		vec := []float32{0.3, 0.5, 0.2}
		score, err := CosineSimilarity(vec, vec)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, score, 1e-9)
	})

	t.Run("opposite vectors score -1", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{1, 2}, []float32{-1, -2})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, score, 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.2, 0.7, 0.1}
		b := []float32{0.5, 0.1, 0.9}
		ab, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		ba, err := CosineSimilarity(b, a)
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-12)
	})

	t.Run("zero magnitude vector scores 0", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})

	t.Run("dimension mismatch errors", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("empty vectors error", func(t *testing.T) {
		_, err := CosineSimilarity(nil, nil)
		assert.Error(t, err)
	})
}
