package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// IndexUseCase turns a document into a persisted index.
type IndexUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	store     *IndexStore
	logger    *slog.Logger
}

func NewIndexUseCase(
	extractor port.Extractor,
	chunker port.Chunker,
	store *IndexStore,
	logger *slog.Logger,
) *IndexUseCase {
	if logger == nil {
		logger = store.logger
	}
	return &IndexUseCase{
		extractor: extractor,
		chunker:   chunker,
		store:     store,
		logger:    logger,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Document   string
	Characters int
	Chunks     int
	Manifest   domain.Manifest
	Duration   time.Duration
}

// Index extracts documentPath, splits it into chunks and builds the index
// at persistPath. Any index already at persistPath is replaced.
func (u *IndexUseCase) Index(ctx context.Context, documentPath, persistPath string) (*IndexResult, error) {
	start := time.Now()

	data, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	text, err := u.extractor.Extract(documentPath, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s: no text found", domain.ErrExtraction, filepath.Base(documentPath))
	}

	chunks, err := u.chunker.Chunk(text)
	if err != nil {
		return nil, err
	}
	u.logger.Info("document split",
		"document", documentPath,
		"characters", len([]rune(text)),
		"chunks", len(chunks),
	)

	idx, err := u.store.Build(ctx, chunks, persistPath)
	if err != nil {
		return nil, err
	}

	return &IndexResult{
		Document:   documentPath,
		Characters: len([]rune(text)),
		Chunks:     len(chunks),
		Manifest:   idx.Manifest(),
		Duration:   time.Since(start),
	}, nil
}
