package llm

import "errors"

var (
	// ErrUnknownBackend is returned when a backend identifier is not one of
	// the registered providers.
	ErrUnknownBackend = errors.New("unknown generative backend")

	// ErrBackendUnavailable covers unreachable, unauthorized, and rate-limited
	// generative calls. Callers substitute a deterministic fallback value.
	ErrBackendUnavailable = errors.New("generative backend unavailable")

	// ErrEmbeddingUnavailable means the embedding call failed; the article is
	// persisted without a vector and excluded from retrieval.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
)
