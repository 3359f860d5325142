package domain

import "errors"

var (
	// ErrExtraction means a document could not be converted to text.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingProvider means the embedding provider call failed.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrIndexNotFound means no readable index exists at the persistence path.
	ErrIndexNotFound = errors.New("index not found")

	// ErrAnswerGeneration means the answer generator call failed.
	ErrAnswerGeneration = errors.New("answer generation failed")

	ErrInvalidChunking   = errors.New("invalid chunking parameters")
	ErrEmbeddingMismatch = errors.New("embedding dimension mismatch")
)
