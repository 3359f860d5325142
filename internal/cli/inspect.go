package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/store"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show what the persisted index contains",
	Long: `Print the manifest of the persisted index and chunk size statistics.

Examples:
  docqa inspect
  docqa inspect --json`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
}

type chunkStats struct {
	Count   int     `json:"count"`
	MinLen  int     `json:"min_len"`
	MaxLen  int     `json:"max_len"`
	AvgLen  float64 `json:"avg_len"`
	Total   int     `json:"total_chars"`
	Vectors int     `json:"vector_bytes"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir := GetConfig().IndexDir(GetRootDir())

	snap, err := store.Read(dir)
	if err != nil {
		return err
	}

	stats := chunkStats{Count: len(snap.Chunks), Vectors: len(snap.Vectors)}
	for i, c := range snap.Chunks {
		n := len([]rune(c.Text))
		stats.Total += n
		if i == 0 || n < stats.MinLen {
			stats.MinLen = n
		}
		if n > stats.MaxLen {
			stats.MaxLen = n
		}
	}
	if stats.Count > 0 {
		stats.AvgLen = float64(stats.Total) / float64(stats.Count)
	}

	if inspectJSON {
		output, err := json.MarshalIndent(map[string]any{
			"manifest": snap.Manifest,
			"chunks":   stats,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	m := snap.Manifest
	fmt.Println(titleStyle.Render("Index " + dir))
	fmt.Printf("  Build:        %s\n", m.BuildID)
	fmt.Printf("  Created:      %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Schema:       v%d\n", m.SchemaVersion)
	fmt.Printf("  Engine:       %s (%s)\n", m.Engine, m.Metric)
	fmt.Printf("  Model:        %s (%d dims)\n", m.EmbeddingModel, m.Dimension)
	fmt.Printf("  Chunking:     size %d, overlap %d\n", m.ChunkSize, m.ChunkOverlap)
	fmt.Printf("  Chunks:       %d (%d chars, min %d, max %d, avg %.1f)\n",
		stats.Count, stats.Total, stats.MinLen, stats.MaxLen, stats.AvgLen)
	fmt.Printf("  Vector data:  %d bytes\n", stats.Vectors)
	return nil
}
