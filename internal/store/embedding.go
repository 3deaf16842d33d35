package store

import (
	"encoding/json"
	"fmt"
)

// EncodeEmbedding serializes a vector as a JSON array of decimals for a TEXT
// column. Count and numeric order are preserved exactly.
func EncodeEmbedding(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("cannot encode empty embedding")
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return string(data), nil
}

// DecodeEmbedding reconstructs a vector from its JSON representation.
func DecodeEmbedding(encoded string) ([]float32, error) {
	if encoded == "" {
		return nil, fmt.Errorf("cannot decode empty embedding")
	}
	var vec []float32
	if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("decoded embedding has no values")
	}
	return vec, nil
}
