// Package containers defines the fixed-layout record types that flow
// through the map-data consolidation pipeline: nodes, edges, turn
// restrictions, and way endpoints, plus the sentinels used to mark an
// unresolved reference in an external-memory setting.
package containers

import "math"

// SpecialNodeID is the all-ones sentinel for an unresolved node reference.
const SpecialNodeID uint64 = math.MaxUint64

// UnsetCoordValue marks a Coord field as not-yet-populated.
const UnsetCoordValue int32 = math.MinInt32

// TravelMode identifies the mode a way is routable for (car, foot, bike, …).
// The profile layer that assigns it is out of scope; this core only carries
// the value through from edge to on-disk record.
type TravelMode uint8

// Node is a geo-referenced OSM node, fixed-point lat/lon in microdegrees.
type Node struct {
	NodeID uint64
	Lat    int32
	Lon    int32
	Flags  uint32
}

// Coord is a fixed-point lat/lon pair. UnsetCoord means "no coordinate yet".
type Coord struct {
	Lat int32
	Lon int32
}

// UnsetCoord is the sentinel used before an edge's source endpoint has been
// matched against the node table.
var UnsetCoord = Coord{Lat: UnsetCoordValue, Lon: UnsetCoordValue}

// IsSet reports whether c holds a real coordinate.
func (c Coord) IsSet() bool {
	return c.Lat != UnsetCoordValue && c.Lon != UnsetCoordValue
}

// WeightType tags the variant held by a WeightSpec.
type WeightType uint8

const (
	WeightInvalid WeightType = iota
	WeightSpeed
	WeightEdgeDuration
	WeightWayDuration
)

// WeightSpec is a tagged variant over the ways a way/edge can specify its
// traversal cost. Exactly one of Speed/Duration is meaningful, selected by
// Type; the profile layer that produces this is out of scope for this core.
type WeightSpec struct {
	Type     WeightType
	Speed    float64 // km/h, meaningful when Type == WeightSpeed
	Duration float64 // seconds, meaningful when Type == WeightEdgeDuration or WeightWayDuration
}

// Edge is the in-memory, mutable representation of a directed road edge.
// SourceCoord and ResultWeight start unset/zero and are filled in by the
// EdgeFinalizer across its two merge-join passes.
type Edge struct {
	Source           uint64
	Target           uint64
	NameID           uint32
	Forward          bool
	Backward         bool
	Roundabout       bool
	InTinyCC         bool
	AccessRestricted bool
	TravelMode       TravelMode
	WeightData       WeightSpec
	SourceCoord      Coord
	ResultWeight     int32
}

// WayNodeRef is a (way, node) reference inside a turn restriction. Node
// starts at SpecialNodeID and is filled in by the RestrictionResolver.
type WayNodeRef struct {
	Way  uint64
	Node uint64
}

// ViaRef is the pivot node of a turn restriction.
type ViaRef struct {
	Node uint64
}

// TurnRestriction constrains or mandates a turn at Via when entering from
// From.Way and leaving toward To.Way. From.Node and To.Node are resolved
// from way-level to node-level references by the RestrictionResolver.
type TurnRestriction struct {
	From   WayNodeRef
	Via    ViaRef
	To     WayNodeRef
	IsOnly bool
}

// Resolved reports whether both ends of the restriction have been mapped
// to concrete node ids.
func (r TurnRestriction) Resolved() bool {
	return r.From.Node != SpecialNodeID && r.To.Node != SpecialNodeID
}

// WayEndpoint records the first and last segment of a way, the only
// information the RestrictionResolver needs to tell which neighbour of a
// via-node lies on that way.
type WayEndpoint struct {
	WayID             uint64
	FirstSourceNode   uint64
	FirstTargetNode   uint64
	LastSourceNode    uint64
	LastTargetNode    uint64
}
