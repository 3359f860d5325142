package vectorindex

import (
	"fmt"

	"docqa/internal/port"
)

// New returns an empty engine by name.
func New(engine string, metric Metric) (port.VectorIndex, error) {
	switch engine {
	case "", "flat":
		return NewFlatIndex(metric), nil
	}
	return nil, fmt.Errorf("unknown index engine %q", engine)
}
