package domain

import (
	"strings"
	"time"
)

// Chunk is a contiguous span of document text prepared for embedding.
type Chunk struct {
	Text          string `json:"text"`
	SequenceIndex int    `json:"sequence_index"`
}

// ScoredChunk is a search hit. Lower distance is a closer match.
type ScoredChunk struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// Manifest describes a persisted index.
type Manifest struct {
	SchemaVersion  int       `json:"schema_version"`
	BuildID        string    `json:"build_id"`
	Engine         string    `json:"engine"`
	Metric         string    `json:"metric"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkCount     int       `json:"chunk_count"`
	ChunkSize      int       `json:"chunk_size,omitempty"`
	ChunkOverlap   int       `json:"chunk_overlap,omitempty"`
	VectorChecksum string    `json:"vector_checksum"`
	CreatedAt      time.Time `json:"created_at"`
}

// PackedContext is retrieved text fitted to a prompt budget. Blocks are
// ordered by their position in the document.
type PackedContext struct {
	Blocks       []string `json:"blocks"`
	UsedTokens   int      `json:"used_tokens"`
	BudgetTokens int      `json:"budget_tokens"`
	Dropped      int      `json:"dropped"`
}

// Text joins the blocks with a blank line.
func (p PackedContext) Text() string {
	return strings.Join(p.Blocks, "\n\n")
}

// Answer is the result of a grounded question.
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"text"`
	Context  string        `json:"context"`
	Sources  []ScoredChunk `json:"sources"`
	Err      error         `json:"-"`
}
