package domain

import "errors"

// Input errors.
var (
	// ErrEmptyQuestion is returned for an empty or whitespace-only question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrQuestionTooLong is returned when the question alone leaves no room
	// for context within the prompt bound.
	ErrQuestionTooLong = errors.New("question is too long")

	// ErrEmptyCorpus indicates no extractable text was found to ingest.
	ErrEmptyCorpus = errors.New("no documents with extractable text")

	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedFormat indicates a file type with no loader.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Dependency errors.
var (
	ErrEmbedding         = errors.New("embedding failed")
	ErrRerankUnavailable = errors.New("reranker unavailable")
	ErrGeneration        = errors.New("generation failed")
)

// ErrIdentityCollision means two different sources produced the same chunk
// identifier. It is a logic error and must never be silently overwritten.
var ErrIdentityCollision = errors.New("chunk identifier collision")

// ErrQueryFailed is the only error the query boundary exposes for internal
// failures.
var ErrQueryFailed = errors.New("failed to process query")
