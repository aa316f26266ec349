package mapmodel

import (
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/osmloader"
)

func straightRoad() *osmloader.LoadResult {
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0, Lon: 1},
	}
	tags := osm.Tags{{Key: "highway", Value: "residential"}}
	return &osmloader.LoadResult{
		Nodes: nodes,
		Ways:  []osmloader.WayRecord{{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: tags}},
	}
}

func TestSnapFindsNearbyRoad(t *testing.T) {
	m, err := Build(straightRoad())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	result, err := m.Snap(0.5, 0.001)
	if err != nil {
		t.Fatalf("Snap() error = %v", err)
	}
	if result.Road != m.Roads[0].ID {
		t.Errorf("Snap matched road %v, want %v", result.Road, m.Roads[0].ID)
	}
	if result.Fraction < 0.4 || result.Fraction > 0.6 {
		t.Errorf("Fraction = %v, want close to 0.5", result.Fraction)
	}
}

func TestSnapTooFarAway(t *testing.T) {
	m, err := Build(straightRoad())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := m.Snap(50, 50); err == nil {
		t.Error("expected an error snapping to a point far from the network")
	}
}
