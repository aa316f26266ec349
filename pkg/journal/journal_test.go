package journal

import (
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

func straightRoad(t *testing.T) *mapmodel.MapModel {
	t.Helper()
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0, Lon: 1},
	}
	tags := osm.Tags{{Key: "highway", Value: "residential"}}
	lr := &osmloader.LoadResult{
		Nodes: nodes,
		Ways:  []osmloader.WayRecord{{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: tags}},
	}
	m, err := mapmodel.Build(lr)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestAddDeleteModalFilterUndoRedo(t *testing.T) {
	m := straightRoad(t)
	layer := editlayer.New()
	j := New()

	cmd, err := NewAddModalFilter(m, layer, AllInterior, 0.5, 0, editlayer.FilterBollard)
	if err != nil {
		t.Fatalf("NewAddModalFilter() error = %v", err)
	}
	j.Do(layer, cmd)
	if len(layer.ModalFilters) != 1 {
		t.Fatalf("len(ModalFilters) = %d, want 1", len(layer.ModalFilters))
	}

	if err := j.UndoLast(layer); err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if len(layer.ModalFilters) != 0 {
		t.Fatalf("len(ModalFilters) = %d after undo, want 0", len(layer.ModalFilters))
	}

	if err := j.RedoLast(layer); err != nil {
		t.Fatalf("RedoLast() error = %v", err)
	}
	if len(layer.ModalFilters) != 1 {
		t.Fatalf("len(ModalFilters) = %d after redo, want 1", len(layer.ModalFilters))
	}
}

func TestAddModalFilterAlreadyFiltered(t *testing.T) {
	m := straightRoad(t)
	layer := editlayer.New()
	j := New()

	cmd, err := NewAddModalFilter(m, layer, AllInterior, 0.5, 0, editlayer.FilterBollard)
	if err != nil {
		t.Fatalf("NewAddModalFilter() error = %v", err)
	}
	j.Do(layer, cmd)

	if _, err := NewAddModalFilter(m, layer, AllInterior, 0.5, 0, editlayer.FilterPlanter); err == nil {
		t.Fatal("expected AlreadyFiltered error on second filter for the same road")
	} else if kindErr, ok := err.(*ltnerr.Error); !ok || kindErr.Kind != ltnerr.AlreadyFiltered {
		t.Errorf("error = %v, want AlreadyFiltered", err)
	}
}

func TestUndoEmptyJournal(t *testing.T) {
	j := New()
	layer := editlayer.New()
	if err := j.UndoLast(layer); err == nil {
		t.Fatal("expected JournalEmpty on an empty journal")
	}
}

func TestToggleTravelFlowCycle(t *testing.T) {
	m := straightRoad(t)
	layer := editlayer.New()
	j := New()
	road := m.Roads[0].ID

	want := []mapmodel.TravelFlow{mapmodel.FlowForwards, mapmodel.FlowBackwards, mapmodel.FlowBoth}
	for _, w := range want {
		cmd, err := NewToggleTravelFlow(m, layer, road)
		if err != nil {
			t.Fatalf("NewToggleTravelFlow() error = %v", err)
		}
		j.Do(layer, cmd)
		if got := layer.EffectiveFlow(&m.Roads[0]); got != w {
			t.Errorf("EffectiveFlow() = %v, want %v", got, w)
		}
	}
}

func TestToggleTravelFlowUndoClearsOverride(t *testing.T) {
	m := straightRoad(t)
	layer := editlayer.New()
	j := New()
	road := m.Roads[0].ID

	cmd, err := NewToggleTravelFlow(m, layer, road)
	if err != nil {
		t.Fatalf("NewToggleTravelFlow() error = %v", err)
	}
	j.Do(layer, cmd)
	if _, ok := layer.RoadOverrides[road]; !ok {
		t.Fatal("expected a RoadOverride entry after the first toggle")
	}

	if err := j.UndoLast(layer); err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if _, ok := layer.RoadOverrides[road]; ok {
		t.Errorf("RoadOverrides[road] still present after undoing the road's first toggle; want entry removed")
	}
	if got, want := layer.EffectiveFlow(&m.Roads[0]), m.Roads[0].OrigFlow; got != want {
		t.Errorf("EffectiveFlow() after undo = %v, want %v (OrigFlow)", got, want)
	}
}

func TestDiagonalFilterRoundTrip(t *testing.T) {
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: -1},
		2: {ID: 2, Lat: 1, Lon: 0},
		3: {ID: 3, Lat: 0, Lon: 0}, // 4-way junction
		4: {ID: 4, Lat: -1, Lon: 0},
		5: {ID: 5, Lat: 0, Lon: 1},
	}
	tags := osm.Tags{{Key: "highway", Value: "residential"}}
	lr := &osmloader.LoadResult{
		Nodes: nodes,
		Ways: []osmloader.WayRecord{
			{ID: 100, Nodes: []osm.NodeID{1, 3}, Tags: tags},
			{ID: 101, Nodes: []osm.NodeID{2, 3}, Tags: tags},
			{ID: 102, Nodes: []osm.NodeID{4, 3}, Tags: tags},
			{ID: 103, Nodes: []osm.NodeID{5, 3}, Tags: tags},
		},
	}
	m, err := mapmodel.Build(lr)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var junction mapmodel.IntersectionID
	for i := range m.Intersections {
		if len(m.Intersections[i].Incident) == 4 {
			junction = m.Intersections[i].ID
		}
	}

	layer := editlayer.New()
	j := New()

	cmd, err := NewAddDiagonalFilter(m, junction)
	if err != nil {
		t.Fatalf("NewAddDiagonalFilter() error = %v", err)
	}
	j.Do(layer, cmd)
	if len(layer.DiagonalFilters[junction].Blocks) == 0 {
		t.Fatal("expected at least one blocked movement")
	}

	rotate, err := NewRotateDiagonalFilter(m, layer, junction)
	if err != nil {
		t.Fatalf("NewRotateDiagonalFilter() error = %v", err)
	}
	j.Do(layer, rotate)

	del, err := NewDeleteDiagonalFilter(layer, junction)
	if err != nil {
		t.Fatalf("NewDeleteDiagonalFilter() error = %v", err)
	}
	j.Do(layer, del)
	if _, ok := layer.DiagonalFilters[junction]; ok {
		t.Error("expected diagonal filter to be gone")
	}

	if err := j.UndoLast(layer); err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if _, ok := layer.DiagonalFilters[junction]; !ok {
		t.Error("expected undo of delete to restore the diagonal filter")
	}
}

func TestBoundaryUndoRedo(t *testing.T) {
	layer := editlayer.New()
	j := New()

	cmd := NewSetNeighbourhoodBoundary(layer, "town centre", [][2]float64{{0, 0}, {1, 0}, {1, 1}}, nil, false)
	j.Do(layer, cmd)
	if layer.Boundary == nil || layer.Boundary.Name != "town centre" {
		t.Fatal("expected boundary to be set")
	}

	rename, err := NewRenameNeighbourhoodBoundary(layer, "old town")
	if err != nil {
		t.Fatalf("NewRenameNeighbourhoodBoundary() error = %v", err)
	}
	j.Do(layer, rename)
	if layer.Boundary.Name != "old town" {
		t.Errorf("Name = %q, want %q", layer.Boundary.Name, "old town")
	}

	if err := j.UndoLast(layer); err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if layer.Boundary.Name != "town centre" {
		t.Errorf("Name = %q after undo, want %q", layer.Boundary.Name, "town centre")
	}

	del, err := NewDeleteNeighbourhoodBoundary(layer)
	if err != nil {
		t.Fatalf("NewDeleteNeighbourhoodBoundary() error = %v", err)
	}
	j.Do(layer, del)
	if layer.Boundary != nil {
		t.Error("expected boundary to be deleted")
	}
	if j.UndoLength() != 2 {
		t.Errorf("UndoLength() = %d, want 2", j.UndoLength())
	}
}
