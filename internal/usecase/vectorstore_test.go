package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/vectorindex"
	"docqa/internal/domain"
)

// mapEmbedder returns fixed vectors per text.
type mapEmbedder struct {
	name    string
	vectors map[string][]float32
	dim     int
}

func (e *mapEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *mapEmbedder) Dimension() int    { return e.dim }
func (e *mapEmbedder) ModelName() string { return e.name }

// flakyEmbedder fails every batch after the first ok ones.
type flakyEmbedder struct {
	*embedding.HashEmbedder
	ok    int
	calls int
}

func (e *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.calls > e.ok {
		return nil, errors.New("rate limited")
	}
	return e.HashEmbedder.Embed(ctx, texts)
}

func splitChunks(t *testing.T, text string, size, overlap int) []domain.Chunk {
	t.Helper()
	chunks, err := chunker.Split(text, size, overlap)
	if err != nil {
		t.Fatal(err)
	}
	return chunks
}

const leaseText = `The tenant shall pay rent on the first day of each month.
Late payments incur a fee of five percent of the monthly rent.

Pets are allowed only with written consent from the landlord and an additional deposit.

The lease term is twelve months and renews automatically unless either party gives sixty days notice.

The landlord is responsible for structural repairs; the tenant handles minor maintenance.`

func TestSearchOrdersByDistance(t *testing.T) {
	e := &mapEmbedder{
		name: "fixed",
		dim:  2,
		vectors: map[string][]float32{
			"first":  {0.9, 0},
			"second": {0, 0.5},
			"third":  {0.7, 0},
			"query":  {0, 0},
		},
	}
	s := NewIndexStore(e, IndexOptions{Metric: vectorindex.L2})

	idx, err := s.BuildInMemory(context.Background(), []domain.Chunk{
		{Text: "first", SequenceIndex: 0},
		{Text: "second", SequenceIndex: 1},
		{Text: "third", SequenceIndex: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.SequenceIndex != 1 || hits[1].Chunk.SequenceIndex != 2 {
		t.Errorf("expected chunks [1 2], got [%d %d]", hits[0].Chunk.SequenceIndex, hits[1].Chunk.SequenceIndex)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Errorf("hits not ordered by distance: %v", hits)
	}
}

func TestBuildLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "docqa_store")
	e := embedding.NewHashEmbedder(64)
	s := NewIndexStore(e, IndexOptions{BatchSize: 3, ChunkSize: 120, ChunkOverlap: 20})

	chunks := splitChunks(t, leaseText, 120, 20)
	built, err := s.Build(ctx, chunks, dir)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Len() != len(chunks) || built.Len() != len(chunks) {
		t.Fatalf("expected %d chunks, got built=%d loaded=%d", len(chunks), built.Len(), loaded.Len())
	}
	if !reflect.DeepEqual(loaded.Chunks(), chunks) {
		t.Errorf("loaded chunks differ from built chunks")
	}

	m := loaded.Manifest()
	if m.BuildID == "" || m.BuildID != built.Manifest().BuildID {
		t.Errorf("build id not preserved: %q vs %q", m.BuildID, built.Manifest().BuildID)
	}
	if m.EmbeddingModel != "hash-64" || m.Dimension != 64 || m.Engine != "flat" || m.Metric != "cosine" {
		t.Errorf("unexpected manifest %+v", m)
	}
	if m.ChunkSize != 120 || m.ChunkOverlap != 20 {
		t.Errorf("chunking parameters not recorded: %+v", m)
	}

	for _, q := range []string{"can I have pets", "when is rent due", "who repairs the roof", "notice period"} {
		want, err := built.Search(ctx, q, 3)
		if err != nil {
			t.Fatal(err)
		}
		got, err := loaded.Search(ctx, q, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("%q: results differ after reload\nwant %v\ngot  %v", q, want, got)
		}
	}
}

func TestSearchRelevantChunk(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	s := NewIndexStore(embedding.NewHashEmbedder(256), IndexOptions{})

	var chunks []domain.Chunk
	for i, para := range strings.Split(leaseText, "\n\n") {
		chunks = append(chunks, domain.Chunk{Text: para, SequenceIndex: i})
	}
	if _, err := s.Build(ctx, chunks, dir); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "pets written consent deposit", dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || !strings.Contains(hits[0].Chunk.Text, "Pets") {
		t.Errorf("expected the pets chunk, got %v", hits)
	}
}

func TestSearchKExceedsCount(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	s := NewIndexStore(embedding.NewHashEmbedder(32), IndexOptions{})

	if _, err := s.Build(ctx, []domain.Chunk{{Text: "only chunk", SequenceIndex: 0}}, dir); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "anything", dir, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}

	hits, err = s.Search(ctx, "anything", dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for k=0, got %d", len(hits))
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	s := NewIndexStore(embedding.NewHashEmbedder(64), IndexOptions{})
	chunks := splitChunks(t, leaseText, 100, 15)

	if _, err := s.Build(ctx, chunks, dir); err != nil {
		t.Fatal(err)
	}
	first, err := s.Search(ctx, "monthly rent", dir, 4)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Build(ctx, chunks, dir); err != nil {
		t.Fatal(err)
	}
	second, err := s.Search(ctx, "monthly rent", dir, 4)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rebuild changed results\nfirst  %v\nsecond %v", first, second)
	}
}

func TestRebuildReplacesPreviousIndex(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	s := NewIndexStore(embedding.NewHashEmbedder(64), IndexOptions{})

	if _, err := s.Build(ctx, splitChunks(t, leaseText, 100, 15), dir); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Build(ctx, []domain.Chunk{{Text: "replacement", SequenceIndex: 0}}, dir); err != nil {
		t.Fatal(err)
	}

	idx, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected the replacement index with 1 chunk, got %d", idx.Len())
	}
}

func TestSearchMissingIndex(t *testing.T) {
	s := NewIndexStore(embedding.NewHashEmbedder(16), IndexOptions{})

	_, err := s.Search(context.Background(), "q", filepath.Join(t.TempDir(), "missing"), 3)
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBuildProviderFailureKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	dir := filepath.Join(parent, "store")
	chunks := splitChunks(t, leaseText, 60, 10)

	good := NewIndexStore(embedding.NewHashEmbedder(32), IndexOptions{BatchSize: 2})
	if _, err := good.Build(ctx, chunks, dir); err != nil {
		t.Fatal(err)
	}

	flaky := &flakyEmbedder{HashEmbedder: embedding.NewHashEmbedder(32), ok: 1}
	bad := NewIndexStore(flaky, IndexOptions{BatchSize: 2})
	_, err := bad.Build(ctx, []domain.Chunk{
		{Text: "one", SequenceIndex: 0},
		{Text: "two", SequenceIndex: 1},
		{Text: "three", SequenceIndex: 2},
	}, dir)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if flaky.calls != 2 {
		t.Errorf("expected the build to stop after the failing batch, got %d calls", flaky.calls)
	}

	idx, err := good.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != len(chunks) {
		t.Errorf("previous index damaged: expected %d chunks, got %d", len(chunks), idx.Len())
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover staging directories, found %d entries", len(entries))
	}
}

func TestLoadEmbedderMismatch(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")

	s := NewIndexStore(embedding.NewHashEmbedder(64), IndexOptions{})
	if _, err := s.Build(ctx, []domain.Chunk{{Text: "some text", SequenceIndex: 0}}, dir); err != nil {
		t.Fatal(err)
	}

	other := NewIndexStore(embedding.NewHashEmbedder(32), IndexOptions{})
	if _, err := other.Load(dir); !errors.Is(err, domain.ErrEmbeddingMismatch) {
		t.Errorf("expected ErrEmbeddingMismatch, got %v", err)
	}

	renamed := &mapEmbedder{name: "other-model", dim: 64, vectors: map[string][]float32{}}
	if _, err := NewIndexStore(renamed, IndexOptions{}).Load(dir); err != nil {
		t.Errorf("model name mismatch should only warn, got %v", err)
	}
}

func TestBuildReportsProgress(t *testing.T) {
	var calls [][2]int
	s := NewIndexStore(embedding.NewHashEmbedder(16), IndexOptions{
		BatchSize: 2,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})

	chunks := []domain.Chunk{
		{Text: "a1", SequenceIndex: 0},
		{Text: "b2", SequenceIndex: 1},
		{Text: "c3", SequenceIndex: 2},
	}
	if _, err := s.BuildInMemory(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{2, 3}, {3, 3}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("expected progress %v, got %v", want, calls)
	}
}

func TestBuildRejectsOutOfOrderChunks(t *testing.T) {
	s := NewIndexStore(embedding.NewHashEmbedder(16), IndexOptions{})

	_, err := s.BuildInMemory(context.Background(), []domain.Chunk{
		{Text: "a", SequenceIndex: 1},
		{Text: "b", SequenceIndex: 0},
	})
	if err == nil {
		t.Error("expected error for out-of-order sequence indexes")
	}
}

// Run with -race: a model without a known dimension learns it on every
// query while other searches are reading it.
func TestConcurrentSearchLearnsDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"custom","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8,0]}]}`)
	}))
	defer srv.Close()

	newEmbedder := func() *embedding.OpenAIEmbedder {
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{APIKey: "test", BaseURL: srv.URL, Model: "custom"})
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "docqa_store")
	chunks := []domain.Chunk{{Text: "the only chunk", SequenceIndex: 0}}
	if _, err := NewIndexStore(newEmbedder(), IndexOptions{}).Build(ctx, chunks, dir); err != nil {
		t.Fatal(err)
	}

	e := newEmbedder()
	if e.Dimension() != 0 {
		t.Fatalf("expected unknown dimension before the first query, got %d", e.Dimension())
	}
	idx, err := NewIndexStore(e, IndexOptions{}).Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := idx.Search(ctx, "which chunk", 1)
			if err != nil {
				errs <- err
				return
			}
			if len(hits) != 1 {
				errs <- fmt.Errorf("expected 1 hit, got %d", len(hits))
			}
			_ = e.Dimension()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if e.Dimension() != 3 {
		t.Errorf("expected dimension 3 after searching, got %d", e.Dimension())
	}
}
