package impact

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

// straightChain is a 4-node line 1-2-3-4, one road per leg so each leg can
// be independently filtered, matching pkg/routing's fixture of the same
// name.
func straightChain(t *testing.T) *mapmodel.MapModel {
	t.Helper()
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0, Lon: 1},
		3: {ID: 3, Lat: 0, Lon: 2},
		4: {ID: 4, Lat: 0, Lon: 3},
	}
	lr := &osmloader.LoadResult{
		Nodes: nodes,
		Ways: []osmloader.WayRecord{
			{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: osm.Tags{{Key: "highway", Value: "primary"}}},
			{ID: 2, Nodes: []osm.NodeID{2, 3}, Tags: osm.Tags{{Key: "highway", Value: "residential"}}},
			{ID: 3, Nodes: []osm.NodeID{3, 4}, Tags: osm.Tags{{Key: "highway", Value: "service"}}},
		},
	}
	m, err := mapmodel.Build(lr)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func squareZone(t *testing.T, name string, cx, cy float64) Zone {
	t.Helper()
	ring := orb.Ring{
		{cx - 0.1, cy - 0.1}, {cx + 0.1, cy - 0.1}, {cx + 0.1, cy + 0.1}, {cx - 0.1, cy + 0.1}, {cx - 0.1, cy - 0.1},
	}
	return Zone{Name: name, Geometry: orb.MultiPolygon{orb.Polygon{ring}}}
}

func TestZoneCentroid(t *testing.T) {
	z := squareZone(t, "z", 1, 2)
	c := z.Centroid()
	if c[0] != 1 || c[1] != 2 {
		t.Errorf("Centroid() = %v, want (1, 2)", c)
	}
}

func TestAggregateFlowBeforeAndAfter(t *testing.T) {
	m := straightChain(t)
	analyzer := NewAnalyzer(m)

	origin := squareZone(t, "origin", 0, 0)
	dest := squareZone(t, "dest", 3, 0)
	origin.CountsTo = []float64{0, 5}
	origin.CountsFrom = []float64{0, 0}
	dest.CountsTo = []float64{0, 0}
	dest.CountsFrom = []float64{0, 5}
	demand := &DemandModel{Zones: []Zone{origin, dest}}

	before := editlayer.New()
	after := editlayer.New()

	var middle mapmodel.RoadID
	for i := range m.Roads {
		mid := m.Roads[i].Midpoint()
		if mid[0] > 1 && mid[0] < 2 {
			middle = m.Roads[i].ID
		}
	}
	after.ModalFilters[middle] = editlayer.ModalFilter{Road: middle, Fraction: 0.5, Kind: editlayer.FilterBollard}

	flows := analyzer.AggregateFlow(demand, before, after)

	if len(flows) == 0 {
		t.Fatal("expected at least one road to carry flow")
	}
	beforeFlow, ok := flows[middle]
	if !ok || beforeFlow.Before != 5 {
		t.Errorf("middle road before-flow = %+v, want Before = 5", beforeFlow)
	}
	if beforeFlow.After != 0 {
		t.Errorf("middle road after-flow = %v, want 0 once it's filtered and unroutable", beforeFlow.After)
	}
}

func TestImpactToDestinationUnroutableSentinel(t *testing.T) {
	m := straightChain(t)
	analyzer := NewAnalyzer(m)

	boundary := &editlayer.Boundary{
		Polygon: [][2]float64{{0, -0.002}, {3, -0.002}, {3, 0.002}, {0, 0.002}, {0, -0.002}},
	}

	before := editlayer.New()
	after := editlayer.New()
	var middle mapmodel.RoadID
	for i := range m.Roads {
		mid := m.Roads[i].Midpoint()
		if mid[0] > 1 && mid[0] < 2 {
			middle = m.Roads[i].ID
		}
	}
	after.ModalFilters[middle] = editlayer.ModalFilter{Road: middle, Fraction: 0.5, Kind: editlayer.FilterBollard}

	result := analyzer.ImpactToDestination(boundary, orb.Point{3, 0}, before, after, 4)
	if len(result.Origins) == 0 {
		t.Fatal("expected at least one sampled origin")
	}

	var sawInf bool
	for _, oi := range result.Origins {
		if oi.TimeBeforeS > 0 && oi.TimeAfterS > oi.TimeBeforeS*1e9 {
			sawInf = true
		}
	}
	if !sawInf {
		t.Error("expected at least one sampled origin to become unroutable (time_after sentinel) once the only path is filtered")
	}
}
