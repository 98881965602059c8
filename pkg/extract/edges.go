package extract

import (
	"math"

	"mapconsolidate/pkg/containers"
	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/extsort"
	"mapconsolidate/pkg/geo"
	"mapconsolidate/pkg/mergejoin"
)

const edgeRecordSize = 8 + 8 + 4 + 1 + 1 + 1 + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 4

// microdegreesPerDegree is the fixed-point scale coordinates are stored
// at: degrees * 1e6, rounded to the nearest integer.
const microdegreesPerDegree = 1e6

func fixedToDegrees(v int32) float64 {
	return float64(v) / microdegreesPerDegree
}

// computeWeight derives one edge's integer weight from its already
// attached source coordinate and the target node's coordinate.
// distMeters uses a flat-earth approximation, appropriate at the short
// (single road segment) scale these edges span.
func computeWeight(edge containers.Edge, targetLat, targetLon int32) (int32, error) {
	distMeters := geo.EquirectangularDist(
		fixedToDegrees(edge.SourceCoord.Lat), fixedToDegrees(edge.SourceCoord.Lon),
		fixedToDegrees(targetLat), fixedToDegrees(targetLon),
	)

	var weight float64
	switch edge.WeightData.Type {
	case containers.WeightEdgeDuration, containers.WeightWayDuration:
		weight = edge.WeightData.Duration * 10
	case containers.WeightSpeed:
		weight = (distMeters * 10) / (edge.WeightData.Speed / 3.6)
	default:
		return 0, ErrInvalidWeightType
	}

	integerWeight := int32(math.Floor(weight + 0.5))
	if integerWeight < 1 {
		integerWeight = 1
	}
	return integerWeight, nil
}

// FinalizeEdges attaches source and target coordinates to each edge and
// computes its integer weight: sort edges by source and join against
// the already-sorted nodes to stamp SourceCoord, then sort by target
// and join again to compute ResultWeight. Edges that never matched a
// node on either end keep ResultWeight == 0 and are dropped at write
// time by the caller.
func FinalizeEdges(
	edges *extseq.Seq[containers.Edge],
	sortedNodes *extseq.Seq[containers.Node],
	sortCfg extsort.Config,
) (*extseq.Seq[containers.Edge], Diagnostics, error) {
	var diag Diagnostics

	edgeSorter := extsort.New[containers.Edge](withRecordSize(sortCfg, edgeRecordSize))

	bySource, err := edgeSorter.Sort(edges, func(a, b containers.Edge) bool {
		return a.Source < b.Source
	})
	if err != nil {
		return nil, diag, err
	}

	withSourceCoord, sourceStats, err := mergejoin.LeftSemiJoinMutate(
		bySource, sortedNodes,
		func(e *containers.Edge) uint64 { return e.Source },
		func(n containers.Node) uint64 { return n.NodeID },
		func(e *containers.Edge, n containers.Node) {
			e.SourceCoord = containers.Coord{Lat: n.Lat, Lon: n.Lon}
		},
		sortCfg.TempDir, sortCfg.Compress,
	)
	bySource.Remove()
	if err != nil {
		return nil, diag, err
	}
	diag.EdgesWithoutSource = sourceStats.UnmatchedA

	byTarget, err := edgeSorter.Sort(withSourceCoord, func(a, b containers.Edge) bool {
		return a.Target < b.Target
	})
	withSourceCoord.Remove()
	if err != nil {
		return nil, diag, err
	}

	var weightErr error
	finalized, targetStats, err := mergejoin.LeftSemiJoinMutate(
		byTarget, sortedNodes,
		func(e *containers.Edge) uint64 { return e.Target },
		func(n containers.Node) uint64 { return n.NodeID },
		func(e *containers.Edge, n containers.Node) {
			if weightErr != nil || !e.SourceCoord.IsSet() {
				return
			}
			w, err := computeWeight(*e, n.Lat, n.Lon)
			if err != nil {
				weightErr = err
				return
			}
			e.ResultWeight = w
		},
		sortCfg.TempDir, sortCfg.Compress,
	)
	byTarget.Remove()
	if err != nil {
		finalized.Remove()
		return nil, diag, err
	}
	if weightErr != nil {
		finalized.Remove()
		return nil, diag, weightErr
	}
	diag.EdgesWithoutTarget = targetStats.UnmatchedA

	return finalized, diag, nil
}
