package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docqa/internal/domain"
)

// CurrentSchemaVersion is the persisted layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// Checksum fingerprints serialized vector data.
func Checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// CheckManifest verifies that a persisted index can be read by this build
// and that its parts agree with each other.
func CheckManifest(m domain.Manifest, chunks []domain.Chunk, vectors []byte) error {
	switch {
	case m.SchemaVersion == 0:
		return fmt.Errorf("manifest has no schema version")
	case m.SchemaVersion > CurrentSchemaVersion:
		return fmt.Errorf("index created by newer version (v%d > v%d)", m.SchemaVersion, CurrentSchemaVersion)
	case m.SchemaVersion < CurrentSchemaVersion:
		return fmt.Errorf("index schema v%d is no longer supported, rebuild it", m.SchemaVersion)
	}

	if len(chunks) != m.ChunkCount {
		return fmt.Errorf("manifest lists %d chunks, store holds %d", m.ChunkCount, len(chunks))
	}
	for i, c := range chunks {
		if c.SequenceIndex != i {
			return fmt.Errorf("chunk sequence gap at %d", i)
		}
	}

	if sum := Checksum(vectors); sum != m.VectorChecksum {
		return fmt.Errorf("vector checksum mismatch")
	}
	return nil
}

// ModelMismatch reports whether a query embedder differs from the one the
// index was built with. Only the dimension is enforced; the model name is
// advisory.
type ModelMismatch struct {
	ModelDiffers     bool
	DimensionDiffers bool
	Reason           string
}

func CompareEmbedder(m domain.Manifest, model string, dimension int) ModelMismatch {
	var res ModelMismatch
	if dimension != 0 && m.Dimension != 0 && dimension != m.Dimension {
		res.DimensionDiffers = true
		res.Reason = fmt.Sprintf("index dimension %d, embedder dimension %d", m.Dimension, dimension)
	}
	if model != m.EmbeddingModel {
		res.ModelDiffers = true
		if res.Reason == "" {
			res.Reason = fmt.Sprintf("index built with %q, querying with %q", m.EmbeddingModel, model)
		}
	}
	return res
}
