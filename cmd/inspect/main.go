// Command inspect loads a saved project and serves its rendered
// neighbourhood/modal-filter FeatureCollections as JSON for manual
// inspection, replacing the teacher's cmd/visualize (which compared
// map_router against ORS and Google Directions over HTTP). Those
// comparisons called external routing services, out of this module's
// scope — ltn-engine has exactly one router to inspect, so this command
// just serves what it already computed.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/goccy/go-json"

	"github.com/azybler/ltn-engine/pkg/project"
)

func main() {
	savefilePath := flag.String("savefile", "", "Path to a saved project (required)")
	port := flag.Int("port", 3000, "HTTP port to serve on")
	flag.Parse()

	if *savefilePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect --savefile project.ltnsave [--port 3000]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*savefilePath)
	if err != nil {
		log.Fatalf("Failed to read save file: %v", err)
	}
	proj, err := project.LoadSavefile(data)
	if err != nil {
		log.Fatalf("Failed to load save file: %v", err)
	}
	log.Printf("Loaded %q: %d roads, %d intersections", proj.StudyAreaName, len(proj.Model.Roads), len(proj.Model.Intersections))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /neighbourhood", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, proj.RenderNeighbourhood())
	})
	mux.HandleFunc("GET /modal-filters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, proj.RenderModalFilters())
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Inspect server listening on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
