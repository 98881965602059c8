package extract

import (
	"fmt"
	"log"
	"os"
	"time"

	"mapconsolidate/pkg/containers"
	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/extsort"
)

const nodeRecordSize = 8 + 4 + 4 + 4

// Config is the orchestrator's external surface: where to write each
// output file, how much memory the external sorts may use, whether
// sort runs are compressed on disk, and how often progress is logged.
type Config struct {
	SortMemory            int64
	OutputFileName        string
	RestrictionsFileName  string
	NameFileName          string
	RunCompression        bool
	LogEvery              int64
}

// Inputs bundles the containers an upstream parser is expected to have
// already populated before handing them to Run.
type Inputs struct {
	UsedNodeIDs  *extseq.Seq[uint64]
	Nodes        *extseq.Seq[containers.Node]
	Edges        *extseq.Seq[containers.Edge]
	Restrictions *extseq.Seq[containers.TurnRestriction]
	WayEndpoints *extseq.Seq[containers.WayEndpoint]
	NameTable    []string
}

// Run executes the fixed restrictions -> nodes -> edges -> names
// sequence, writing each output as it is finalized: the restrictions
// file is written before the combined node+edge stream is created, and
// that stream is closed before the name file is opened.
func Run(cfg Config, in Inputs) (Diagnostics, error) {
	var diag Diagnostics

	sortCfg := extsort.Config{
		MemoryBudget: cfg.SortMemory,
		Compress:     cfg.RunCompression,
	}

	start := time.Now()
	resolvedRestrictions, restrDiag, err := ResolveRestrictions(in.Restrictions, in.WayEndpoints, sortCfg)
	if err != nil {
		return diag, fmt.Errorf("resolve restrictions: %w", err)
	}
	defer resolvedRestrictions.Remove()
	diag.WayEndpointsUnmatched = restrDiag.WayEndpointsUnmatched
	log.Printf("[extract] restrictions ... ok, after %s", time.Since(start))

	start = time.Now()
	written, dropped, err := WriteRestrictions(cfg.RestrictionsFileName, resolvedRestrictions)
	if err != nil {
		return diag, fmt.Errorf("write restrictions: %w", err)
	}
	diag.RestrictionsWritten = written
	diag.RestrictionsDropped = dropped
	log.Printf("[extract] write restrictions ... ok, after %s (usable restrictions: %d, dropped: %d)",
		time.Since(start), written, dropped)

	start = time.Now()
	nodeSorter := extsort.New[containers.Node](withRecordSize(sortCfg, nodeRecordSize))
	sortedNodes, err := nodeSorter.Sort(in.Nodes, func(a, b containers.Node) bool { return a.NodeID < b.NodeID })
	if err != nil {
		return diag, fmt.Errorf("sort nodes: %w", err)
	}
	defer sortedNodes.Remove()

	dedupedIDs, deduped, err := DedupUsedNodeIDs(in.UsedNodeIDs, sortCfg)
	if err != nil {
		return diag, fmt.Errorf("dedup used node ids: %w", err)
	}
	defer dedupedIDs.Remove()
	diag.UsedNodeIDsDeduped = deduped
	log.Printf("[extract] prepare nodes ... ok, after %s", time.Since(start))

	finalizedEdges, edgeDiag, err := FinalizeEdges(in.Edges, sortedNodes, sortCfg)
	if err != nil {
		return diag, fmt.Errorf("finalize edges: %w", err)
	}
	defer finalizedEdges.Remove()
	diag.EdgesWithoutSource = edgeDiag.EdgesWithoutSource
	diag.EdgesWithoutTarget = edgeDiag.EdgesWithoutTarget

	out, err := os.Create(cfg.OutputFileName)
	if err != nil {
		return diag, fmt.Errorf("create %s: %w", cfg.OutputFileName, err)
	}
	defer out.Close()

	if _, err := containers.NewFingerPrint().WriteTo(out); err != nil {
		return diag, fmt.Errorf("write fingerprint: %w", err)
	}

	start = time.Now()
	nodeCountOffset, err := containers.WriteCountPlaceholder(out)
	if err != nil {
		return diag, err
	}
	nodesWritten, err := WriteNodes(out, dedupedIDs, sortedNodes)
	if err != nil {
		return diag, fmt.Errorf("write nodes: %w", err)
	}
	if err := containers.PatchCount(out, nodeCountOffset, uint32(nodesWritten)); err != nil {
		return diag, err
	}
	diag.NodesWritten = nodesWritten
	log.Printf("[extract] write nodes ... ok, after %s (processed %d nodes)", time.Since(start), nodesWritten)

	start = time.Now()
	edgeCountOffset, err := containers.WriteCountPlaceholder(out)
	if err != nil {
		return diag, err
	}
	edgesWritten, writeEdgeDiag, err := WriteEdges(out, finalizedEdges, cfg.LogEvery)
	if err != nil {
		return diag, fmt.Errorf("write edges: %w", err)
	}
	if err := containers.PatchCount(out, edgeCountOffset, uint32(edgesWritten)); err != nil {
		return diag, err
	}
	diag.EdgesWritten = writeEdgeDiag.EdgesWritten
	log.Printf("[extract] write edges ... ok, after %s (processed %d edges)", time.Since(start), edgesWritten)

	if err := out.Close(); err != nil {
		return diag, fmt.Errorf("close %s: %w", cfg.OutputFileName, err)
	}

	start = time.Now()
	if err := WriteNames(cfg.NameFileName, in.NameTable); err != nil {
		return diag, fmt.Errorf("write names: %w", err)
	}
	log.Printf("[extract] write names ... ok, after %s (%d entries)", time.Since(start), len(in.NameTable))

	return diag, nil
}
