package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/chunker"
	"docqa/internal/usecase"
)

var indexQuiet bool

var indexCmd = &cobra.Command{
	Use:   "index <document>",
	Short: "Build the vector index for a document",
	Long: `Extract text from a document, split it into overlapping chunks, embed
the chunks and persist the index. An existing index is replaced only once the
new one is complete.

Examples:
  docqa index contract.pdf
  docqa index notes.md --config docqa.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexQuiet, "quiet", false, "disable the progress bar")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	document, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(document)
	if err != nil {
		return fmt.Errorf("document does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected a document: %s", document)
	}

	chk, err := chunker.NewTextChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	var progress func(done, total int)
	var bar *progressbar.ProgressBar
	if !indexQuiet {
		var once sync.Once
		progress = func(done, total int) {
			once.Do(func() {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(os.Stderr)
					}),
				)
			})
			bar.Set(done)
		}
	}

	store, err := newBuildStore(cfg, embedder, chk, progress)
	if err != nil {
		return err
	}

	indexUC := usecase.NewIndexUseCase(newExtractor(cfg), chk, store, logger)

	persistDir := cfg.IndexDir(GetRootDir())
	fmt.Printf("Indexing %s...\n", document)

	result, err := indexUC.Index(cmd.Context(), document, persistDir)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Index complete"))
	fmt.Printf("  Document:   %s\n", result.Document)
	fmt.Printf("  Characters: %d\n", result.Characters)
	fmt.Printf("  Chunks:     %d\n", result.Chunks)
	fmt.Printf("  Model:      %s (%d dims)\n", result.Manifest.EmbeddingModel, result.Manifest.Dimension)
	fmt.Printf("  Build:      %s\n", result.Manifest.BuildID)
	fmt.Printf("  Stored in:  %s\n", persistDir)
	fmt.Printf("  Time:       %s\n", result.Duration.Round(time.Millisecond))

	return nil
}
