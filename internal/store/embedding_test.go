package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	original := []float32{0.123, -0.456, 0.789, 0}

	encoded, err := EncodeEmbedding(original)
	require.NoError(t, err)
	assert.Contains(t, encoded, "[")

	decoded, err := DecodeEmbedding(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeEmbedding_Empty(t *testing.T) {
	_, err := EncodeEmbedding(nil)
	assert.Error(t, err)

	_, err = EncodeEmbedding([]float32{})
	assert.Error(t, err)
}

func TestDecodeEmbedding_Invalid(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := DecodeEmbedding("")
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeEmbedding("not-a-vector")
		assert.Error(t, err)
	})

	t.Run("empty array", func(t *testing.T) {
		_, err := DecodeEmbedding("[]")
		assert.Error(t, err)
	})
}
