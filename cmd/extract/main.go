package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mapconsolidate/pkg/extract"
	"mapconsolidate/pkg/osmsource"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "consolidated.bin", "Combined node+edge output file path")
	restrictions := flag.String("restrictions", "consolidated.restrictions", "Restrictions output file path")
	names := flag.String("names", "consolidated.names", "Name index output file path")
	sortMemory := flag.Int64("sort-memory", 256<<20, "Byte budget for any one external sort pass")
	compress := flag.Bool("run-compression", true, "bzip2-compress external sort run files in flight")
	logEvery := flag.Int64("log-every", 100_000, "Progress logging cadence in records, 0 disables")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: extract --input <file.osm.pbf> [--output consolidated.bin] [--restrictions ...] [--names ...]")
		os.Exit(1)
	}

	start := time.Now()

	log.Printf("Opening %s...", *input)
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Reading OSM primitives...")
	containers, err := osmsource.Load(context.Background(), f, osmsource.Options{Compress: *compress})
	if err != nil {
		log.Fatalf("Failed to load OSM data: %v", err)
	}
	defer containers.UsedNodeIDs.Remove()
	defer containers.Nodes.Remove()
	defer containers.Edges.Remove()
	defer containers.Restrictions.Remove()
	defer containers.WayEndpoints.Remove()
	log.Printf("Loaded %d edges, %d nodes, %d restriction candidates, %d way endpoints",
		containers.Edges.Len(), containers.Nodes.Len(), containers.Restrictions.Len(), containers.WayEndpoints.Len())

	diag, err := extract.Run(extract.Config{
		SortMemory:           *sortMemory,
		OutputFileName:       *output,
		RestrictionsFileName: *restrictions,
		NameFileName:         *names,
		RunCompression:       *compress,
		LogEvery:             *logEvery,
	}, extract.Inputs{
		UsedNodeIDs:  containers.UsedNodeIDs,
		Nodes:        containers.Nodes,
		Edges:        containers.Edges,
		Restrictions: containers.Restrictions,
		WayEndpoints: containers.WayEndpoints,
		NameTable:    containers.NameTable,
	})
	if err != nil {
		log.Fatalf("Failed to consolidate: %v", err)
	}

	log.Printf("nodes written: %d, edges written: %d (dropped %d without source, %d without target)",
		diag.NodesWritten, diag.EdgesWritten, diag.EdgesWithoutSource, diag.EdgesWithoutTarget)
	log.Printf("restrictions written: %d, dropped: %d, way endpoints unmatched: %d",
		diag.RestrictionsWritten, diag.RestrictionsDropped, diag.WayEndpointsUnmatched)
	log.Printf("Done in %s.", time.Since(start).Round(time.Millisecond))
}
