package extract

import (
	"mapconsolidate/pkg/containers"
	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/extsort"
	"mapconsolidate/pkg/mergejoin"
)

// resolveNeighbour implements the shared from/to resolution rule: the
// neighbour of viaNode along the way described by ep, or
// containers.SpecialNodeID if viaNode sits at neither end of the way (an
// interior via-node, presumably a via-way restriction this core doesn't
// model).
func resolveNeighbour(ep containers.WayEndpoint, viaNode uint64) uint64 {
	switch {
	case ep.FirstSourceNode == viaNode:
		return ep.FirstTargetNode
	case ep.LastTargetNode == viaNode:
		return ep.LastSourceNode
	default:
		return containers.SpecialNodeID
	}
}

// ResolveRestrictions turns way-level restriction references into
// node-level ones: sort way_endpoints by way id, sort restrictions by
// from.way, merge-join to fill from.node; re-sort
// restrictions by to.way, merge-join again to fill to.node. Restrictions
// whose via-node is interior to the referenced way, or whose way never
// appears in way_endpoints, are left with their node field still at
// SpecialNodeID and dropped later at write time.
func ResolveRestrictions(
	restrictions *extseq.Seq[containers.TurnRestriction],
	wayEndpoints *extseq.Seq[containers.WayEndpoint],
	sortCfg extsort.Config,
) (*extseq.Seq[containers.TurnRestriction], Diagnostics, error) {
	var diag Diagnostics

	epSorter := extsort.New[containers.WayEndpoint](withRecordSize(sortCfg, wayEndpointRecordSize))
	sortedEndpoints, err := epSorter.Sort(wayEndpoints, func(a, b containers.WayEndpoint) bool {
		return a.WayID < b.WayID
	})
	if err != nil {
		return nil, diag, err
	}
	defer sortedEndpoints.Remove()

	restrSorter := extsort.New[containers.TurnRestriction](withRecordSize(sortCfg, restrictionRecordSize))

	// referenced holds the way ids matched by either join, so a way used
	// only as a from-way (or only as a to-way) is not counted as unmatched.
	referenced := make(map[uint64]struct{})

	byFrom, err := restrSorter.Sort(restrictions, func(a, b containers.TurnRestriction) bool {
		return a.From.Way < b.From.Way
	})
	if err != nil {
		return nil, diag, err
	}

	afterFrom, _, err := mergejoin.LeftSemiJoinMutate(
		byFrom, sortedEndpoints,
		func(r *containers.TurnRestriction) uint64 { return r.From.Way },
		func(ep containers.WayEndpoint) uint64 { return ep.WayID },
		func(r *containers.TurnRestriction, ep containers.WayEndpoint) {
			referenced[ep.WayID] = struct{}{}
			r.From.Node = resolveNeighbour(ep, r.Via.Node)
		},
		sortCfg.TempDir, sortCfg.Compress,
	)
	byFrom.Remove()
	if err != nil {
		return nil, diag, err
	}

	byTo, err := restrSorter.Sort(afterFrom, func(a, b containers.TurnRestriction) bool {
		return a.To.Way < b.To.Way
	})
	afterFrom.Remove()
	if err != nil {
		return nil, diag, err
	}

	resolved, _, err := mergejoin.LeftSemiJoinMutate(
		byTo, sortedEndpoints,
		func(r *containers.TurnRestriction) uint64 { return r.To.Way },
		func(ep containers.WayEndpoint) uint64 { return ep.WayID },
		func(r *containers.TurnRestriction, ep containers.WayEndpoint) {
			referenced[ep.WayID] = struct{}{}
			r.To.Node = resolveNeighbour(ep, r.Via.Node)
		},
		sortCfg.TempDir, sortCfg.Compress,
	)
	byTo.Remove()
	if err != nil {
		return nil, diag, err
	}
	diag.WayEndpointsUnmatched = sortedEndpoints.Len() - int64(len(referenced))

	return resolved, diag, nil
}

const (
	wayEndpointRecordSize  = 8 * 5
	restrictionRecordSize  = 8*5 + 1
)

func withRecordSize(cfg extsort.Config, recordSize int64) extsort.Config {
	cfg.RecordSize = recordSize
	return cfg
}
