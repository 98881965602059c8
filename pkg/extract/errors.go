package extract

import "errors"

// ErrInvalidWeightType is returned when EdgeFinalizer reaches an edge
// whose WeightSpec was never resolved to a concrete type by the upstream
// profile layer. It aborts the current pass; the caller is expected to
// discard the output directory.
var ErrInvalidWeightType = errors.New("compute_weights: invalid weight type")
