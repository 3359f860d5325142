package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docqa/internal/adapter/store"
	"docqa/internal/adapter/vectorindex"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// IndexOptions configures an IndexStore.
type IndexOptions struct {
	Engine    string
	Metric    vectorindex.Metric
	BatchSize int

	// ChunkSize and ChunkOverlap are recorded in the manifest only.
	ChunkSize    int
	ChunkOverlap int

	Logger *slog.Logger

	// Progress is called after every embedding batch.
	Progress func(done, total int)
}

// IndexStore builds, persists and loads vector indexes over chunks.
type IndexStore struct {
	embedder port.Embedder
	opts     IndexOptions
	logger   *slog.Logger
}

func NewIndexStore(embedder port.Embedder, opts IndexOptions) *IndexStore {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Metric == "" {
		opts.Metric = vectorindex.Cosine
	}
	if opts.Engine == "" {
		opts.Engine = "flat"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IndexStore{
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// BuildInMemory embeds chunks and loads them into a fresh engine.
// Chunks must carry sequence indexes 0..n-1 in order.
func (s *IndexStore) BuildInMemory(ctx context.Context, chunks []domain.Chunk) (*Index, error) {
	start := time.Now()

	ids := make([]int, len(chunks))
	for i, c := range chunks {
		if c.SequenceIndex != i {
			return nil, fmt.Errorf("chunk %d has sequence index %d", i, c.SequenceIndex)
		}
		if c.Text == "" {
			return nil, fmt.Errorf("chunk %d is empty", i)
		}
		ids[i] = c.SequenceIndex
	}

	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	engine, err := vectorindex.New(s.opts.Engine, s.opts.Metric)
	if err != nil {
		return nil, err
	}
	if err := engine.Build(ids, vectors); err != nil {
		return nil, fmt.Errorf("failed to build %s index: %w", engine.Name(), err)
	}

	dim := engine.Dimension()
	if dim == 0 {
		dim = s.embedder.Dimension()
	}

	manifest := domain.Manifest{
		BuildID:        uuid.NewString(),
		Engine:         engine.Name(),
		Metric:         string(s.opts.Metric),
		EmbeddingModel: s.embedder.ModelName(),
		Dimension:      dim,
		ChunkCount:     len(chunks),
		ChunkSize:      s.opts.ChunkSize,
		ChunkOverlap:   s.opts.ChunkOverlap,
		CreatedAt:      time.Now().UTC(),
	}

	s.logger.Info("index built",
		"build_id", manifest.BuildID,
		"chunks", len(chunks),
		"dimension", dim,
		"engine", manifest.Engine,
		"metric", manifest.Metric,
		"duration", time.Since(start),
	)

	return newIndex(manifest, append([]domain.Chunk(nil), chunks...), engine, s.embedder, s.logger), nil
}

// Build embeds chunks and persists the index to persistPath, replacing any
// index already there. On failure the previous index is left in place.
func (s *IndexStore) Build(ctx context.Context, chunks []domain.Chunk, persistPath string) (*Index, error) {
	idx, err := s.BuildInMemory(ctx, chunks)
	if err != nil {
		return nil, err
	}

	data, err := idx.engine.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize index: %w", err)
	}

	snap := &store.Snapshot{
		Manifest: idx.manifest,
		Chunks:   idx.chunks,
		Vectors:  data,
	}
	if err := store.Write(persistPath, snap); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}
	idx.manifest = snap.Manifest

	s.logger.Info("index persisted",
		"path", persistPath,
		"build_id", idx.manifest.BuildID,
		"bytes", len(data),
	)
	return idx, nil
}

// Load reads the index persisted at path. Missing or damaged indexes fail
// with domain.ErrIndexNotFound.
func (s *IndexStore) Load(path string) (*Index, error) {
	snap, err := store.Read(path)
	if err != nil {
		return nil, err
	}
	m := snap.Manifest

	engine, err := vectorindex.New(m.Engine, vectorindex.Metric(m.Metric))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, path, err)
	}
	if err := engine.UnmarshalBinary(snap.Vectors); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, path, err)
	}
	if engine.Len() != len(snap.Chunks) {
		return nil, fmt.Errorf("%w: %s: engine holds %d vectors for %d chunks",
			domain.ErrIndexNotFound, path, engine.Len(), len(snap.Chunks))
	}

	mismatch := store.CompareEmbedder(m, s.embedder.ModelName(), s.embedder.Dimension())
	if mismatch.DimensionDiffers {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbeddingMismatch, mismatch.Reason)
	}
	if mismatch.ModelDiffers {
		s.logger.Warn("embedding model differs from index", "reason", mismatch.Reason)
	}

	s.logger.Debug("index loaded",
		"path", path,
		"build_id", m.BuildID,
		"chunks", len(snap.Chunks),
	)
	return newIndex(m, snap.Chunks, engine, s.embedder, s.logger), nil
}

// Search loads the index at persistPath and returns the k chunks closest
// to query.
func (s *IndexStore) Search(ctx context.Context, query, persistPath string, k int) ([]domain.ScoredChunk, error) {
	idx, err := s.Load(persistPath)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query, k)
}

func (s *IndexStore) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	total := len(chunks)

	for start := 0; start < total; start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, total)

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, providerError(err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: requested %d embeddings, received %d",
				domain.ErrEmbeddingProvider, len(texts), len(batch))
		}
		vectors = append(vectors, batch...)

		s.logger.Debug("embedded batch", "done", end, "total", total)
		if s.opts.Progress != nil {
			s.opts.Progress(end, total)
		}
	}

	return vectors, nil
}

func providerError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
}
