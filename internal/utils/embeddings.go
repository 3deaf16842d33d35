package utils

import (
	"fmt"
	"math"
)

// dotProduct calculates the dot product of two vectors.
func dotProduct(vec1, vec2 []float32) (float64, error) {
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension: %d vs %d", len(vec1), len(vec2))
	}
	var product float64
	for i := range vec1 {
		product += float64(vec1[i]) * float64(vec2[i])
	}
	return product, nil
}

// magnitude calculates the L2 norm (magnitude) of a vector.
func magnitude(vec []float32) float64 {
	var sumOfSquares float64
	for _, val := range vec {
		sumOfSquares += float64(val) * float64(val)
	}
	return math.Sqrt(sumOfSquares)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// A zero-magnitude vector on either side yields 0 rather than an error;
// mismatched dimensions are a corruption condition and do error.
func CosineSimilarity(vec1, vec2 []float32) (float64, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	dot, err := dotProduct(vec1, vec2)
	if err != nil {
		return 0, err
	}

	mag1 := magnitude(vec1)
	mag2 := magnitude(vec2)

	if mag1 == 0 || mag2 == 0 {
		return 0, nil
	}

	return dot / (mag1 * mag2), nil
}
