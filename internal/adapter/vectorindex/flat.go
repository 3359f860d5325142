package vectorindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"docqa/internal/port"
)

// Metric names a distance function. Smaller distance means more similar.
type Metric string

const (
	// Cosine distance is 1 - cosine similarity; zero vectors sit at distance 1.
	Cosine Metric = "cosine"
	// L2 is Euclidean distance.
	L2 Metric = "l2"
)

// ParseMetric validates a configured metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case Cosine, L2:
		return Metric(name), nil
	case "":
		return Cosine, nil
	}
	return "", fmt.Errorf("unknown distance metric %q (want cosine or l2)", name)
}

var flatMagic = [8]byte{'D', 'Q', 'F', 'L', 'A', 'T', '0', '1'}

// FlatIndex is an exact brute-force index. Every query scans every vector,
// which keeps results exact and reproducible for single-document corpora.
type FlatIndex struct {
	metric Metric
	ids    []int
	vecs   [][]float32
	mags   []float64
	dim    int
}

func NewFlatIndex(metric Metric) *FlatIndex {
	if metric == "" {
		metric = Cosine
	}
	return &FlatIndex{metric: metric}
}

func (i *FlatIndex) Name() string { return "flat" }

func (i *FlatIndex) Metric() Metric { return i.metric }

func (i *FlatIndex) Len() int { return len(i.ids) }

func (i *FlatIndex) Dimension() int { return i.dim }

// Build loads ids and vectors and precomputes magnitudes.
func (i *FlatIndex) Build(ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.mags, i.dim = nil, nil, nil, 0
		return nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("flat: zero-dimension vector")
	}
	mags := make([]float64, len(vectors))
	for j, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("flat: inconsistent vector dims %d vs %d", len(v), dim)
		}
		mags[j] = magnitude(v)
	}

	i.ids = append([]int(nil), ids...)
	i.vecs = make([][]float32, len(vectors))
	for j, v := range vectors {
		i.vecs[j] = append([]float32(nil), v...)
	}
	i.mags = mags
	i.dim = dim
	return nil
}

// Query returns the k nearest vectors, ties broken by lower id.
func (i *FlatIndex) Query(query []float32, k int) ([]port.Neighbor, error) {
	if k <= 0 || len(i.vecs) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("flat: query dim %d != index dim %d", len(query), i.dim)
	}

	qm := magnitude(query)
	neighbors := make([]port.Neighbor, len(i.vecs))
	for j := range i.vecs {
		neighbors[j] = port.Neighbor{
			ID:       i.ids[j],
			Distance: i.distance(query, qm, j),
		}
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Distance != neighbors[b].Distance {
			return neighbors[a].Distance < neighbors[b].Distance
		}
		return neighbors[a].ID < neighbors[b].ID
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

func (i *FlatIndex) distance(query []float32, qm float64, j int) float64 {
	switch i.metric {
	case L2:
		var sum float64
		for n := range query {
			d := float64(query[n]) - float64(i.vecs[j][n])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		if qm == 0 || i.mags[j] == 0 {
			return 1
		}
		sim := dot(query, i.vecs[j]) / (qm * i.mags[j])
		if math.IsNaN(sim) {
			return 1
		}
		return 1 - sim
	}
}

// MarshalBinary layout, little endian:
// magic[8], metricLen(u32), metric, dim(u32), n(u32), then n × (id(u32), vec(f32[dim])).
func (i *FlatIndex) MarshalBinary() ([]byte, error) {
	size := 8 + 4 + len(i.metric) + 8 + len(i.ids)*(4+4*i.dim)
	out := make([]byte, 0, size)

	putU32 := func(v uint32) { out = binary.LittleEndian.AppendUint32(out, v) }

	out = append(out, flatMagic[:]...)
	putU32(uint32(len(i.metric)))
	out = append(out, string(i.metric)...)
	putU32(uint32(i.dim))
	putU32(uint32(len(i.ids)))
	for idx, id := range i.ids {
		putU32(uint32(id))
		for _, v := range i.vecs[idx] {
			putU32(math.Float32bits(v))
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index, including its metric.
func (i *FlatIndex) UnmarshalBinary(data []byte) error {
	off := 0
	need := func(n int) error {
		if off+n > len(data) {
			return errors.New("flat: truncated index data")
		}
		return nil
	}
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v
	}

	if err := need(12); err != nil {
		return err
	}
	var magic [8]byte
	copy(magic[:], data[:8])
	if magic != flatMagic {
		return errors.New("flat: bad magic")
	}
	off = 8

	metricLen := int(getU32())
	if err := need(metricLen + 8); err != nil {
		return err
	}
	metric, err := ParseMetric(string(data[off : off+metricLen]))
	if err != nil {
		return fmt.Errorf("flat: %w", err)
	}
	off += metricLen

	dim := int(getU32())
	n := int(getU32())
	if dim > len(data) || n > len(data) {
		return errors.New("flat: corrupt header")
	}
	if err := need(n * (4 + 4*dim)); err != nil {
		return err
	}

	ids := make([]int, n)
	vecs := make([][]float32, n)
	for idx := 0; idx < n; idx++ {
		ids[idx] = int(getU32())
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(getU32())
		}
		vecs[idx] = vec
	}
	if off != len(data) {
		return fmt.Errorf("flat: %d trailing bytes", len(data)-off)
	}

	i.metric = metric
	return i.Build(ids, vecs)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }
