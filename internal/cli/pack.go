package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/llm"
)

var (
	packQuery  string
	packBudget int
	packOutput string
	packTopK   int
	packPrompt bool
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack retrieved context for a question",
	Long: `Retrieve the closest chunks for a question and pack them into the
context that would be sent to the answer model. Neighbouring chunks are merged
so their shared overlap appears once.

Examples:
  docqa pack -q "notice period"
  docqa pack -q "late fees" -b 500 -o context.json
  docqa pack -q "late fees" --prompt`,
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVarP(&packQuery, "query", "q", "", "question (required)")
	packCmd.Flags().IntVarP(&packBudget, "budget", "b", 0, "token budget (default from config)")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output file (default: stdout)")
	packCmd.Flags().IntVarP(&packTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
	packCmd.Flags().BoolVar(&packPrompt, "prompt", false, "print the rendered user prompt instead of JSON")
	packCmd.MarkFlagRequired("query")
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := newIndexStore(cfg, embedder, nil)
	if err != nil {
		return err
	}
	idx, err := store.Load(cfg.IndexDir(GetRootDir()))
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if packTopK > 0 {
		topK = packTopK
	}
	hits, err := idx.Search(cmd.Context(), packQuery, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if packBudget > 0 {
		cfg.Answer.ContextBudget = packBudget
	}
	packed := newPacker(cfg, idx.Manifest().ChunkOverlap).Pack(hits)

	var output []byte
	if packPrompt {
		prompt, err := llm.RenderUserPrompt(packed.Text(), packQuery)
		if err != nil {
			return err
		}
		output = []byte(prompt)
	} else {
		output, err = json.MarshalIndent(packed, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
	}

	if packOutput != "" {
		if err := os.WriteFile(packOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Context written to %s (%d tokens, %d blocks)\n", packOutput, packed.UsedTokens, len(packed.Blocks))
		return nil
	}

	fmt.Println(string(output))
	return nil
}
