package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Index is a loaded, read-only vector index. It is safe for concurrent
// searches.
type Index struct {
	manifest domain.Manifest
	chunks   []domain.Chunk
	engine   port.VectorIndex
	embedder port.Embedder
	logger   *slog.Logger
}

func newIndex(m domain.Manifest, chunks []domain.Chunk, engine port.VectorIndex, embedder port.Embedder, logger *slog.Logger) *Index {
	return &Index{
		manifest: m,
		chunks:   chunks,
		engine:   engine,
		embedder: embedder,
		logger:   logger,
	}
}

// Search embeds query and returns up to k chunks by ascending distance,
// ties broken by lower sequence index.
func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(i.chunks) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	vecs, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, providerError(err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: requested 1 embedding, received %d", domain.ErrEmbeddingProvider, len(vecs))
	}
	if dim := i.engine.Dimension(); len(vecs[0]) != dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrEmbeddingMismatch, len(vecs[0]), dim)
	}

	neighbors, err := i.engine.Query(vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}

	hits := make([]domain.ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID < 0 || n.ID >= len(i.chunks) {
			return nil, fmt.Errorf("index returned unknown chunk %d", n.ID)
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk:    i.chunks[n.ID],
			Distance: n.Distance,
		})
	}

	i.logger.Debug("search", "k", k, "hits", len(hits))
	return hits, nil
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	return len(i.chunks)
}

func (i *Index) Manifest() domain.Manifest {
	return i.manifest
}

// Chunks returns the indexed chunks in sequence order.
func (i *Index) Chunks() []domain.Chunk {
	return i.chunks
}
