package port

// VectorIndex is a nearest-neighbour engine over fixed-dimension vectors.
// It is built once from (id, vector) pairs and serialized for persistence.
type VectorIndex interface {
	// Build replaces the index contents. ids and vectors are parallel slices.
	Build(ids []int, vectors [][]float32) error

	// Query returns up to k neighbours ordered by ascending distance,
	// ties broken by lower id.
	Query(query []float32, k int) ([]Neighbor, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector dimension, 0 when empty.
	Dimension() int

	// Name identifies the engine in the index manifest.
	Name() string

	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Neighbor is a single query hit.
type Neighbor struct {
	ID       int
	Distance float64
}
