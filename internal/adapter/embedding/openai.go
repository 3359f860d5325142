package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// OpenAIOptions configures an OpenAI-compatible embeddings client.
type OpenAIOptions struct {
	APIKey    string
	BaseURL   string // empty means the public OpenAI endpoint
	Model     string
	Dimension int // 0 means infer from the model name or the first response
	BatchSize int
	Timeout   time.Duration
}

type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	// dimension is learned from the first response when unknown, while
	// concurrent searches may be embedding.
	dimension atomic.Int64
	batchSize int
}

// NewOpenAIEmbedder creates an embedder for OpenAI or any endpoint speaking
// the same API (Ollama, DeepSeek, Jina, vLLM).
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", domain.ErrEmbeddingProvider)
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-3-small"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	dimension := opts.Dimension
	if dimension == 0 {
		dimension = knownDimension(opts.Model)
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		batchSize: opts.BatchSize,
	}
	e.dimension.Store(int64(dimension))
	return e, nil
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large", "jina-embeddings-v3":
		return 1024
	case "all-minilm":
		return 384
	}
	return 0
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, received %d", domain.ErrEmbeddingProvider, len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbeddingProvider, data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		e.dimension.CompareAndSwap(0, int64(len(vec)))
		if dim := int(e.dimension.Load()); len(vec) != dim {
			return nil, fmt.Errorf("%w: expected dimension %d, got %d", domain.ErrEmbeddingProvider, dim, len(vec))
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return int(e.dimension.Load())
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
