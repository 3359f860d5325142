package port

import "docqa/internal/domain"

type Chunker interface {
	Chunk(text string) ([]domain.Chunk, error)
}
