package news

import "errors"

var (
	// ErrSourceUnavailable means the upstream news index was unreachable,
	// rejected our credentials, or rate-limited the request. The topic gets
	// zero candidates for this run; other topics proceed.
	ErrSourceUnavailable = errors.New("news source unavailable")

	// ErrExtractionFailed means the article body could not be fetched, could
	// not be parsed, or was below the minimum length. The candidate is
	// dropped from the batch without retry.
	ErrExtractionFailed = errors.New("article extraction failed")
)
