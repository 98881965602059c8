// Package osmsource streams a .osm.pbf file into the six containers
// the consolidation core consumes (used node ids, nodes, edges,
// restrictions, way endpoints, name table).
package osmsource

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"mapconsolidate/pkg/containers"
	"mapconsolidate/pkg/extseq"
)

// Containers bundles the inputs the consolidation core expects.
// NameTable is small enough (one entry per distinct street name) to
// stay in memory; the rest are backed by extseq.Seq so a large extract
// never forces the whole graph into RAM at once.
type Containers struct {
	UsedNodeIDs  *extseq.Seq[uint64]
	Nodes        *extseq.Seq[containers.Node]
	Edges        *extseq.Seq[containers.Edge]
	Restrictions *extseq.Seq[containers.TurnRestriction]
	WayEndpoints *extseq.Seq[containers.WayEndpoint]
	NameTable    []string
}

// Options configures where Load writes its temporary sequences and
// whether they are bzip2-compressed.
type Options struct {
	TempDir  string
	Compress bool
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// defaultSpeedKMH is a small highway->speed table used when a way
// carries no explicit duration or maxspeed tag, reduced to the highway
// types isCarAccessible recognizes.
var defaultSpeedKMH = map[string]float64{
	"motorway":       90,
	"motorway_link":  45,
	"trunk":          85,
	"trunk_link":     40,
	"primary":        65,
	"primary_link":   30,
	"secondary":      55,
	"secondary_link": 25,
	"tertiary":       40,
	"tertiary_link":  20,
	"unclassified":   25,
	"residential":    25,
	"living_street":  10,
	"service":        15,
}

// isCarAccessible reports whether a way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

// directionFlags returns (forward, backward) based on highway type and
// oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false
	}

	return forward, backward
}

// parseMaxSpeed extracts a km/h figure from a maxspeed tag, handling the
// "NN mph" suffix OSM allows. Returns 0, false if the tag is absent or
// unparseable.
func parseMaxSpeed(tags osm.Tags) (float64, bool) {
	raw := strings.TrimSpace(tags.Find("maxspeed"))
	if raw == "" {
		return 0, false
	}
	if strings.HasSuffix(raw, "mph") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "mph")), 64)
		if err != nil {
			return 0, false
		}
		return v * 1.60934, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDurationSeconds parses the small subset of OSM's duration syntax
// this adapter needs: either a bare number of seconds, or "HH:MM:SS".
func parseDurationSeconds(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if !strings.Contains(raw, ":") {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	parts := strings.Split(raw, ":")
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

// weightSpecForWay derives a WeightSpec for one way: an explicit
// duration tag wins (WayDuration), an explicit maxspeed is used
// verbatim, otherwise the highway type picks a default speed.
// segments is the way's number of edges (len(nodes)-1); a way-level
// duration covers the whole way, so it is divided evenly across
// segments to get each edge's share before EdgeFinalizer multiplies it
// by 10 to produce an integer weight.
func weightSpecForWay(tags osm.Tags, segments int) containers.WeightSpec {
	if d, ok := parseDurationSeconds(tags.Find("duration")); ok && d > 0 && segments > 0 {
		return containers.WeightSpec{Type: containers.WeightWayDuration, Duration: d / float64(segments)}
	}
	if v, ok := parseMaxSpeed(tags); ok && v > 0 {
		return containers.WeightSpec{Type: containers.WeightSpeed, Speed: v}
	}
	if v, ok := defaultSpeedKMH[tags.Find("highway")]; ok {
		return containers.WeightSpec{Type: containers.WeightSpeed, Speed: v}
	}
	return containers.WeightSpec{Type: containers.WeightInvalid}
}

func toFixedPoint(deg float64) int32 {
	return int32(math.Round(deg * 1e6))
}

// wayInfo holds what pass 1 needs to remember about a routable way
// until pass 2 has node coordinates and until relations have been read.
type wayInfo struct {
	ID       osm.WayID
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Weight   containers.WeightSpec
	NameID   uint32
}

// Load reads an OSM PBF file and returns the six containers the
// consolidation core consumes. rs is read three times (ways, relations,
// then node coordinates), so it must support seeking back to the start.
func Load(ctx context.Context, rs io.ReadSeeker, opt Options) (*Containers, error) {
	referencedNodes := make(map[osm.NodeID]struct{})
	nameIndex := map[string]uint32{"": 0}
	nameTable := []string{""}
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}
		weight := weightSpecForWay(w.Tags, len(w.Nodes)-1)

		name := w.Tags.Find("name")
		nameID, seen := nameIndex[name]
		if !seen {
			nameID = uint32(len(nameTable))
			nameIndex[name] = nameID
			nameTable = append(nameTable, name)
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{ID: w.ID, NodeIDs: nodeIDs, Forward: fwd, Backward: bwd, Weight: weight, NameID: nameID})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("scan ways: %w", err)
	}
	scanner.Close()
	log.Printf("osmsource: pass 1 ok, %d routable ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for relations: %w", err)
	}
	restrictionsW, err := extseq.NewWriter[containers.TurnRestriction](opt.TempDir, opt.Compress)
	if err != nil {
		return nil, err
	}
	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipWays = true
	var restrictionCount int
	for scanner.Scan() {
		r, ok := scanner.Object().(*osm.Relation)
		if !ok {
			continue
		}
		tr, ok := restrictionFromRelation(r)
		if !ok {
			continue
		}
		if err := restrictionsW.Append(tr); err != nil {
			restrictionsW.Abort()
			return nil, err
		}
		restrictionCount++
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		restrictionsW.Abort()
		return nil, fmt.Errorf("scan relations: %w", err)
	}
	scanner.Close()
	restrictions, err := restrictionsW.Close()
	if err != nil {
		return nil, err
	}
	log.Printf("osmsource: pass 2 ok, %d restriction relations", restrictionCount)

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for nodes: %w", err)
	}
	nodeCoord := make(map[osm.NodeID][2]int32, len(referencedNodes))
	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeCoord[n.ID] = [2]int32{toFixedPoint(n.Lat), toFixedPoint(n.Lon)}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	scanner.Close()
	log.Printf("osmsource: pass 3 ok, %d node coordinates", len(nodeCoord))

	usedIDsW, err := extseq.NewWriter[uint64](opt.TempDir, opt.Compress)
	if err != nil {
		return nil, err
	}
	nodesW, err := extseq.NewWriter[containers.Node](opt.TempDir, opt.Compress)
	if err != nil {
		usedIDsW.Abort()
		return nil, err
	}
	edgesW, err := extseq.NewWriter[containers.Edge](opt.TempDir, opt.Compress)
	if err != nil {
		usedIDsW.Abort()
		nodesW.Abort()
		return nil, err
	}
	endpointsW, err := extseq.NewWriter[containers.WayEndpoint](opt.TempDir, opt.Compress)
	if err != nil {
		usedIDsW.Abort()
		nodesW.Abort()
		edgesW.Abort()
		return nil, err
	}

	abortAll := func() {
		usedIDsW.Abort()
		nodesW.Abort()
		edgesW.Abort()
		endpointsW.Abort()
	}

	emittedNode := make(map[osm.NodeID]struct{}, len(nodeCoord))
	for _, w := range ways {
		// Way endpoints are collected for every routable way
		// unconditionally, independent of whether coordinates for its
		// nodes were found — RestrictionResolver's merge-join is what
		// filters out the ones no restriction ever references.
		first, last := w.NodeIDs[0], w.NodeIDs[len(w.NodeIDs)-1]
		firstTarget, lastSource := w.NodeIDs[1], w.NodeIDs[len(w.NodeIDs)-2]
		if err := endpointsW.Append(containers.WayEndpoint{
			WayID:           uint64(w.ID),
			FirstSourceNode: uint64(first),
			FirstTargetNode: uint64(firstTarget),
			LastSourceNode:  uint64(lastSource),
			LastTargetNode:  uint64(last),
		}); err != nil {
			abortAll()
			return nil, err
		}

		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID, toID := w.NodeIDs[i], w.NodeIDs[i+1]
			if !w.Forward && !w.Backward {
				continue
			}
			if w.Forward {
				if err := appendEdge(edgesW, usedIDsW, emittedNode, nodesW, nodeCoord, fromID, toID, w); err != nil {
					abortAll()
					return nil, err
				}
			}
			if w.Backward {
				if err := appendEdge(edgesW, usedIDsW, emittedNode, nodesW, nodeCoord, toID, fromID, w); err != nil {
					abortAll()
					return nil, err
				}
			}
		}
	}

	usedIDs, err := usedIDsW.Close()
	if err != nil {
		return nil, err
	}
	nodes, err := nodesW.Close()
	if err != nil {
		return nil, err
	}
	edges, err := edgesW.Close()
	if err != nil {
		return nil, err
	}
	wayEndpoints, err := endpointsW.Close()
	if err != nil {
		return nil, err
	}

	return &Containers{
		UsedNodeIDs:  usedIDs,
		Nodes:        nodes,
		Edges:        edges,
		Restrictions: restrictions,
		WayEndpoints: wayEndpoints,
		NameTable:    nameTable,
	}, nil
}

// appendEdge emits one directed edge from->to, plus the node and
// used-node-id records for any endpoint not emitted yet. Node records
// are emitted on first sight rather than deduplicated downstream
// because coordinates are already known here; DedupUsedNodeIDs still
// handles used_node_ids, which this adapter intentionally does not try
// to pre-deduplicate per-edge.
func appendEdge(
	edgesW *extseq.Writer[containers.Edge],
	usedIDsW *extseq.Writer[uint64],
	emittedNode map[osm.NodeID]struct{},
	nodesW *extseq.Writer[containers.Node],
	nodeCoord map[osm.NodeID][2]int32,
	fromID, toID osm.NodeID,
	w wayInfo,
) error {
	for _, id := range [2]osm.NodeID{fromID, toID} {
		if err := usedIDsW.Append(uint64(id)); err != nil {
			return err
		}
		if _, ok := emittedNode[id]; ok {
			continue
		}
		coord, ok := nodeCoord[id]
		if !ok {
			continue
		}
		emittedNode[id] = struct{}{}
		if err := nodesW.Append(containers.Node{NodeID: uint64(id), Lat: coord[0], Lon: coord[1]}); err != nil {
			return err
		}
	}
	return edgesW.Append(containers.Edge{
		Source:      uint64(fromID),
		Target:      uint64(toID),
		NameID:      w.NameID,
		Forward:     true,
		Backward:    false,
		WeightData:  w.Weight,
		SourceCoord: containers.UnsetCoord,
	})
}

// restrictionFromRelation converts an OSM type=restriction relation into
// a TurnRestriction with unresolved node ids: restriction=no_* maps to
// is_only=false, restriction=only_* maps to is_only=true. Via-way
// (multi-member via) restrictions, and any relation missing one of
// from/via/to, are skipped — this core only models single via-node
// restrictions.
func restrictionFromRelation(r *osm.Relation) (containers.TurnRestriction, bool) {
	if r.Tags.Find("type") != "restriction" {
		return containers.TurnRestriction{}, false
	}
	restriction := r.Tags.Find("restriction")
	if restriction == "" {
		return containers.TurnRestriction{}, false
	}

	var fromWay, toWay osm.WayID
	var viaNode osm.NodeID
	var haveFrom, haveTo, haveVia bool
	for _, m := range r.Members {
		switch {
		case m.Role == "from" && m.Type == osm.TypeWay:
			fromWay, haveFrom = osm.WayID(m.Ref), true
		case m.Role == "to" && m.Type == osm.TypeWay:
			toWay, haveTo = osm.WayID(m.Ref), true
		case m.Role == "via" && m.Type == osm.TypeNode:
			viaNode, haveVia = osm.NodeID(m.Ref), true
		case m.Role == "via" && m.Type == osm.TypeWay:
			// via-way restriction: not modeled by this core.
			return containers.TurnRestriction{}, false
		}
	}
	if !haveFrom || !haveTo || !haveVia {
		return containers.TurnRestriction{}, false
	}

	if !strings.HasPrefix(restriction, "only_") && !strings.HasPrefix(restriction, "no_") {
		return containers.TurnRestriction{}, false
	}

	return containers.TurnRestriction{
		From:   containers.WayNodeRef{Way: uint64(fromWay), Node: containers.SpecialNodeID},
		Via:    containers.ViaRef{Node: uint64(viaNode)},
		To:     containers.WayNodeRef{Way: uint64(toWay), Node: containers.SpecialNodeID},
		IsOnly: strings.HasPrefix(restriction, "only_"),
	}, true
}
