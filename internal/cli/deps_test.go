package cli

import (
	"context"
	"log/slog"
	"testing"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/domain"
)

func TestBuildStoreRecordsChunkerParameters(t *testing.T) {
	logger = slog.Default()
	cfg := config.DefaultConfig()

	chk, err := chunker.NewTextChunker(cfg.Chunk.Size+100, cfg.Chunk.Overlap+10)
	if err != nil {
		t.Fatal(err)
	}
	st, err := newBuildStore(cfg, embedding.NewHashEmbedder(16), chk, nil)
	if err != nil {
		t.Fatal(err)
	}

	idx, err := st.BuildInMemory(context.Background(), []domain.Chunk{{Text: "Rent is due on the first.", SequenceIndex: 0}})
	if err != nil {
		t.Fatal(err)
	}
	m := idx.Manifest()
	if m.ChunkSize != chk.ChunkSize() || m.ChunkOverlap != chk.Overlap() {
		t.Errorf("expected chunking %d/%d in manifest, got %d/%d", chk.ChunkSize(), chk.Overlap(), m.ChunkSize, m.ChunkOverlap)
	}
	if m.Metric != cfg.Index.Metric {
		t.Errorf("expected metric %q from config, got %q", cfg.Index.Metric, m.Metric)
	}
}

func TestIndexOptionsRejectsUnknownMetric(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Metric = "manhattan"
	if _, err := indexOptions(cfg, nil); err == nil {
		t.Error("expected error for unknown metric")
	}
}
