package neighbourhood

import (
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

// grid builds one square loop of four minor roads (residential and service,
// alternating), entirely inside the test boundary, plus one primary road
// running south from corner 4 that exits the boundary (the "main road" perimeter).
//
//	1---2
//	|   |
//	4---3
//	|
//	5 (primary, exits south)
func grid(t *testing.T) *mapmodel.MapModel {
	t.Helper()
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 1, Lon: 0},
		2: {ID: 2, Lat: 1, Lon: 1},
		3: {ID: 3, Lat: 0, Lon: 1},
		4: {ID: 4, Lat: 0, Lon: 0},
		5: {ID: 5, Lat: -1, Lon: 0},
	}
	// Alternating classes around the loop so no two adjacent sides are
	// mergeable() — without this, Build's degree-2 chain merge fuses all
	// four loop sides into one segment whose src and dst both land back
	// on node 4, which Build then discards as a degenerate self-loop.
	res := osm.Tags{{Key: "highway", Value: "residential"}}
	service := osm.Tags{{Key: "highway", Value: "service"}}
	primary := osm.Tags{{Key: "highway", Value: "primary"}}
	lr := &osmloader.LoadResult{
		Nodes: nodes,
		Ways: []osmloader.WayRecord{
			{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: res},
			{ID: 2, Nodes: []osm.NodeID{2, 3}, Tags: service},
			{ID: 3, Nodes: []osm.NodeID{3, 4}, Tags: res},
			{ID: 4, Nodes: []osm.NodeID{4, 1}, Tags: service},
			{ID: 5, Nodes: []osm.NodeID{4, 5}, Tags: primary},
		},
	}
	m, err := mapmodel.Build(lr)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestComputeInteriorAndBorder(t *testing.T) {
	m := grid(t)
	layer := editlayer.New()
	layer.Boundary = &editlayer.Boundary{
		Name:    "block",
		Polygon: [][2]float64{{-0.5, -0.5}, {1.5, -0.5}, {1.5, 1.5}, {-0.5, 1.5}, {-0.5, -0.5}},
	}

	snap := Compute(m, layer, Options{})
	if len(snap.InteriorRoads) != 4 {
		t.Fatalf("len(InteriorRoads) = %d, want 4 (the residential square, primary excluded)", len(snap.InteriorRoads))
	}
	for rid := range snap.InteriorRoads {
		road, _ := m.RoadByID(rid)
		if road.Class == mapmodel.ClassMain {
			t.Errorf("road %d is ClassMain and should not be interior without includePerimeter", rid)
		}
	}

	if len(snap.Cells) != 1 {
		t.Fatalf("len(Cells) = %d, want 1 connected cell", len(snap.Cells))
	}
	if snap.Cells[0].Disconnected {
		t.Error("expected the square's single cell to reach the border (node 4 touches the primary road)")
	}
	if snap.AreaKM2 <= 0 {
		t.Error("expected a positive boundary area")
	}
}

func TestComputeNilBoundary(t *testing.T) {
	m := grid(t)
	layer := editlayer.New()
	snap := Compute(m, layer, Options{})
	if len(snap.InteriorRoads) != 0 {
		t.Errorf("len(InteriorRoads) = %d, want 0 with no boundary drawn", len(snap.InteriorRoads))
	}
}

func TestModalFilterSplitsCell(t *testing.T) {
	m := grid(t)
	layer := editlayer.New()
	layer.Boundary = &editlayer.Boundary{
		Polygon: [][2]float64{{-0.5, -0.5}, {1.5, -0.5}, {1.5, 1.5}, {-0.5, 1.5}, {-0.5, -0.5}},
	}

	// Filter the west road alone, splitting it off from the rest of the loop.
	snapBefore := Compute(m, layer, Options{})
	if len(snapBefore.Cells) != 1 {
		t.Fatalf("expected 1 cell before filtering, got %d", len(snapBefore.Cells))
	}

	for rid := range snapBefore.InteriorRoads {
		road, _ := m.RoadByID(rid)
		mid := road.Midpoint()
		if mid[0] < 0.5 { // filter the west-side road (4-1), splitting the loop
			layer.ModalFilters[rid] = editlayer.ModalFilter{Road: rid, Fraction: 0.5, Kind: editlayer.FilterBollard}
			break
		}
	}

	snapAfter := Compute(m, layer, Options{})
	if len(snapAfter.Cells) != 2 {
		t.Fatalf("len(Cells) = %d after filtering the west road, want 2 (the filtered road splits off as its own isolated cell)", len(snapAfter.Cells))
	}
	var sawDisconnected bool
	for _, c := range snapAfter.Cells {
		if c.Disconnected {
			sawDisconnected = true
			if len(c.Roads) != 1 {
				t.Errorf("disconnected cell has %d roads, want 1 (the filtered road itself)", len(c.Roads))
			}
		}
	}
	if !sawDisconnected {
		t.Error("expected the filtered road's own cell to be marked disconnected")
	}
}
