package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding docqa.yaml and the index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	runs := flag.Int("n", 20, "Timed search repetitions")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./docs -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index and embedding setup (model, dimension, chunk count)")
		fmt.Println("  2. Top-k matches with similarity ratings")
		fmt.Println("  3. Search latency over repeated queries (query embedding cached)")
		os.Exit(1)
	}

	if *runs < 0 {
		*runs = 0
	}

	godotenv.Load()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := setupEmbedding(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}
	cached := embedding.NewCachedEmbedder(embedder, embedding.NewEmbeddingCache(16, time.Hour))

	store := usecase.NewIndexStore(cached, usecase.IndexOptions{})
	idx, err := store.Load(cfg.IndexDir(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	m := idx.Manifest()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", idx.Len())
	fmt.Printf("Model: %s (%s)\n", m.EmbeddingModel, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d, metric: %s\n", m.Dimension, m.Metric)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	results, err := idx.Search(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Chunk.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		fmt.Printf("%d. [%s %.3f] chunk %d\n", i+1, rating(m.Metric, r.Distance), r.Distance, r.Chunk.SequenceIndex)
		fmt.Printf("   %s\n\n", string(preview))
	}

	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		if _, err := idx.Search(ctx, *query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(start))
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Top-1 distance: %.3f\n", results[0].Distance)
	if len(latencies) > 0 {
		var total time.Duration
		for _, l := range latencies {
			total += l
		}
		fmt.Printf("LATENCY (%d runs):\n", len(latencies))
		fmt.Printf("  min %s  avg %s  p95 %s\n",
			latencies[0],
			total/time.Duration(len(latencies)),
			latencies[len(latencies)*95/100])
	}
}

// rating grades cosine distances; l2 distances depend on vector scale.
func rating(metric string, distance float64) string {
	if metric != "cosine" {
		return "--"
	}
	switch sim := 1 - distance; {
	case sim > 0.7:
		return "HIGH"
	case sim > 0.5:
		return "GOOD"
	case sim > 0.3:
		return "OK"
	}
	return "LOW"
}

func setupEmbedding(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "hash":
		return embedding.NewHashEmbedder(ec.Dimension), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKey:    ec.APIKey(),
			BaseURL:   ec.BaseURL(),
			Model:     ec.Model,
			Dimension: ec.Dimension,
			Timeout:   time.Duration(ec.TimeoutSeconds) * time.Second,
		})
	}
	return nil, fmt.Errorf("unsupported provider: %s", ec.Provider)
}
