package cli

import (
	"fmt"
	"time"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extract"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/vectorindex"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "hash":
		return embedding.NewHashEmbedder(ec.Dimension), nil
	case "openai":
		key := ec.APIKey()
		if key == "" {
			return nil, fmt.Errorf("embedding provider openai needs %s to be set", ec.APIKeyEnv)
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKey:    key,
			BaseURL:   ec.BaseURL(),
			Model:     ec.Model,
			Dimension: ec.Dimension,
			BatchSize: ec.BatchSize,
			Timeout:   time.Duration(ec.TimeoutSeconds) * time.Second,
		})
	}
	return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
}

func indexOptions(cfg *config.Config, progress func(done, total int)) (usecase.IndexOptions, error) {
	metric, err := vectorindex.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return usecase.IndexOptions{}, err
	}
	return usecase.IndexOptions{
		Engine:       cfg.Index.Engine,
		Metric:       metric,
		BatchSize:    cfg.Embedding.BatchSize,
		ChunkSize:    cfg.Chunk.Size,
		ChunkOverlap: cfg.Chunk.Overlap,
		Logger:       logger,
		Progress:     progress,
	}, nil
}

func newIndexStore(cfg *config.Config, embedder port.Embedder, progress func(done, total int)) (*usecase.IndexStore, error) {
	opts, err := indexOptions(cfg, progress)
	if err != nil {
		return nil, err
	}
	return usecase.NewIndexStore(embedder, opts), nil
}

// newBuildStore records the parameters of the chunker that produced the
// chunks in every manifest it writes.
func newBuildStore(cfg *config.Config, embedder port.Embedder, chk *chunker.TextChunker, progress func(done, total int)) (*usecase.IndexStore, error) {
	opts, err := indexOptions(cfg, progress)
	if err != nil {
		return nil, err
	}
	opts.ChunkSize = chk.ChunkSize()
	opts.ChunkOverlap = chk.Overlap()
	return usecase.NewIndexStore(embedder, opts), nil
}

func newExtractor(cfg *config.Config) *extract.Registry {
	rules := make([]extract.Rule, 0, len(cfg.Extract.Rules))
	for _, r := range cfg.Extract.Rules {
		rules = append(rules, extract.Rule{Pattern: r.Pattern, Extractor: r.Extractor})
	}
	return extract.NewRegistry(rules)
}

// newGenerator shares credentials with the embedding provider.
func newGenerator(cfg *config.Config) (port.AnswerGenerator, error) {
	return llm.NewChatGenerator(llm.ChatOptions{
		APIKey:      cfg.Embedding.APIKey(),
		BaseURL:     cfg.Embedding.BaseURL(),
		Model:       cfg.Answer.Model,
		Temperature: cfg.Answer.Temperature,
		MaxTokens:   cfg.Answer.MaxTokens,
		Timeout:     time.Duration(cfg.Answer.TimeoutSeconds) * time.Second,
	})
}

func newPacker(cfg *config.Config, overlap int) *usecase.PackUseCase {
	return usecase.NewPackUseCase(analyzer.NewTokenizer(false), overlap, cfg.Answer.ContextBudget)
}
