package extract

// Diagnostics accumulates the UpstreamInconsistency counts this core
// never surfaces as errors: edges dropped for missing coordinates,
// restrictions dropped for an unresolved endpoint, and so on. Run
// returns them to its caller (cmd/extract logs them once in its final
// summary); nothing here aborts a run.
type Diagnostics struct {
	UsedNodeIDsDeduped     int64 // duplicate ids removed while preparing nodes
	NodesWritten           int64
	EdgesWithoutSource     int64 // edges whose source never matched a node
	EdgesWithoutTarget     int64 // edges whose target never matched a node
	EdgesWritten           int64
	RestrictionsDropped    int64 // ambiguous via-node, or way missing from way_endpoints
	RestrictionsWritten    int64
	WayEndpointsUnmatched  int64 // way endpoints with no restriction referencing them
}
