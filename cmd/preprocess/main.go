// Command preprocess turns a raw OSM extract into a frozen MapModel
// binary file (spec §6's ToRouteSnapper export),
// adapted from the teacher's OSM → graph → CH-contracted binary pipeline
// with the contraction step removed (ltn-engine routes the plain graph,
// not a contraction hierarchy — see DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/azybler/ltn-engine/pkg/graph"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

func main() {
	input := flag.String("input", "", "Path to an OSM extract (.osm.pbf or .osm.xml)")
	format := flag.String("format", "pbf", "OSM wire format: pbf or xml")
	output := flag.String("output", "model.bin", "Output binary model file path")
	classConfig := flag.String("config", "", "Optional YAML classification-override config (highway classes, default speeds)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--format pbf|xml] [--output model.bin] [--config classify.yaml]")
		os.Exit(1)
	}

	if *classConfig != "" {
		data, err := os.ReadFile(*classConfig)
		if err != nil {
			log.Fatalf("Failed to read classification config: %v", err)
		}
		cfg, err := mapmodel.LoadClassificationConfig(data)
		if err != nil {
			log.Fatalf("Failed to parse classification config: %v", err)
		}
		mapmodel.ApplyClassificationConfig(cfg)
		log.Printf("Applied classification overrides from %s", *classConfig)
	}

	wireFormat := osmloader.FormatPBF
	if *format == "xml" {
		wireFormat = osmloader.FormatXML
	}

	start := time.Now()

	log.Println("Opening OSM extract...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Parsing OSM data...")
	lr, err := osmloader.Parse(context.Background(), f, wireFormat)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}
	log.Printf("Parsed %d nodes, %d ways, %d relations", len(lr.Nodes), len(lr.Ways), len(lr.Relations))

	log.Println("Building map model...")
	model, err := mapmodel.Build(lr)
	if err != nil {
		log.Fatalf("Failed to build map model: %v", err)
	}
	log.Printf("Model: %d intersections, %d roads, %d edges", len(model.Intersections), len(model.Roads), len(model.Edges))

	logLargestComponent(model)

	log.Printf("Writing binary to %s...", *output)
	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()
	if err := mapmodel.WriteBinary(out, model); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}

// logLargestComponent reports how much of the model's intersection graph is
// reachable from its largest connected component. ltn-engine does not filter
// disconnected fragments out the way the teacher's preprocess step does
// (cmd/server's router reports a road unreachable from a given origin via
// the ordinary Unroutable sentinel, rather than requiring every road to be
// globally reachable at preprocess time) — this is diagnostic only.
func logLargestComponent(model *mapmodel.MapModel) {
	n := uint32(model.NumNodes())
	uf := graph.Components(n, func(u uint32, yield func(v uint32)) {
		for _, edgeIdx := range model.EdgesFromIndex(int(u)) {
			if v, ok := model.NodeIndex(model.Edges[edgeIdx].To); ok {
				yield(uint32(v))
			}
		}
	})
	largest := graph.LargestComponent(uf, n)
	log.Printf("Largest connected component: %d/%d intersections (%.1f%%)",
		len(largest), n, float64(len(largest))/float64(n)*100)
}
