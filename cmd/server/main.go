// Command server loads one LTN project (either a fresh OSM extract or a
// previously saved project) and serves it over HTTP/JSON, the same role
// the teacher's cmd/server plays for its preprocessed routing graph.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/azybler/ltn-engine/pkg/api"
	"github.com/azybler/ltn-engine/pkg/project"
)

func main() {
	osmPath := flag.String("osm", "", "Path to an OSM extract (.osm.pbf or .osm.xml); ignored if -savefile is set")
	demandPath := flag.String("demand", "", "Path to a demand model GeoJSON (optional)")
	boundaryPath := flag.String("boundary", "", "Path to a neighbourhood boundary GeoJSON Feature (optional)")
	studyArea := flag.String("study-area", "", "Study area name, used when building a fresh project")
	savefilePath := flag.String("savefile", "", "Path to a previously saved project; overrides -osm/-demand/-boundary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()
	proj := loadProject(*savefilePath, *osmPath, *demandPath, *boundaryPath, *studyArea)

	// Reclaim memory from the OSM-parse/model-build temporaries, the way
	// cmd/server's teacher counterpart does after building its CH graph and
	// spatial index.
	runtime.GC()
	debug.FreeOSMemory()

	log.Printf("Ready in %s (%d roads, %d intersections)",
		time.Since(start).Round(time.Millisecond), len(proj.Model.Roads), len(proj.Model.Intersections))

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(proj)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func loadProject(savefilePath, osmPath, demandPath, boundaryPath, studyArea string) *project.Project {
	if savefilePath != "" {
		log.Printf("Loading save file from %s...", savefilePath)
		data, err := os.ReadFile(savefilePath)
		if err != nil {
			log.Fatalf("Failed to read save file: %v", err)
		}
		proj, err := project.LoadSavefile(data)
		if err != nil {
			log.Fatalf("Failed to load save file: %v", err)
		}
		return proj
	}

	if osmPath == "" {
		log.Fatal("one of -savefile or -osm is required")
	}

	log.Printf("Loading OSM extract from %s...", osmPath)
	osmBytes, err := os.ReadFile(osmPath)
	if err != nil {
		log.Fatalf("Failed to read OSM extract: %v", err)
	}

	var demandBytes, boundaryBytes []byte
	if demandPath != "" {
		demandBytes, err = os.ReadFile(demandPath)
		if err != nil {
			log.Fatalf("Failed to read demand model: %v", err)
		}
	}
	if boundaryPath != "" {
		boundaryBytes, err = os.ReadFile(boundaryPath)
		if err != nil {
			log.Fatalf("Failed to read boundary: %v", err)
		}
	}

	log.Println("Building map model...")
	proj, err := project.New(osmBytes, demandBytes, boundaryBytes, studyArea)
	if err != nil {
		log.Fatalf("Failed to build project: %v", err)
	}
	return proj
}
