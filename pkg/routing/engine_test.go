package routing

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

// straightChain is a 4-node line: 1-2-3-4, all two-way.
func straightChain(t *testing.T) *mapmodel.MapModel {
	t.Helper()
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0, Lon: 1},
		3: {ID: 3, Lat: 0, Lon: 2},
		4: {ID: 4, Lat: 0, Lon: 3},
	}
	// Each leg gets a different class so degree-2 merging (tested
	// separately in pkg/mapmodel) doesn't fuse them back into one Road —
	// these tests want three independently filterable roads.
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

func TestRouteAlongChain(t *testing.T) {
	m := straightChain(t)
	eng := NewEngine(m)
	layer := editlayer.New()

	res, err := eng.Route(orb.Point{0, 0}, orb.Point{3, 0}, layer, Options{})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(res.Roads) != 3 {
		t.Errorf("len(Roads) = %d, want 3", len(res.Roads))
	}
	if res.DistanceM <= 0 {
		t.Error("expected a positive route distance")
	}
}

func TestRouteBlockedByModalFilter(t *testing.T) {
	m := straightChain(t)
	eng := NewEngine(m)
	layer := editlayer.New()

	// Find the middle road (2-3) and filter it.
	var middle mapmodel.RoadID
	for i := range m.Roads {
		mid := m.Roads[i].Midpoint()
		if mid[0] > 1 && mid[0] < 2 {
			middle = m.Roads[i].ID
		}
	}
	layer.ModalFilters[middle] = editlayer.ModalFilter{Road: middle, Fraction: 0.5, Kind: editlayer.FilterBollard}

	_, err := eng.Route(orb.Point{0, 0}, orb.Point{3, 0}, layer, Options{})
	if err == nil {
		t.Fatal("expected routing to fail once the only path is filtered")
	}
	if kindErr, ok := err.(*ltnerr.Error); !ok || kindErr.Kind != ltnerr.Unroutable {
		t.Errorf("error = %v, want an Unroutable ltnerr.Error", err)
	}
}

// diamond is two parallel paths from node 1 to node 4: a short main road
// via node 2, and a longer residential detour via node 3.
func diamond(t *testing.T) *mapmodel.MapModel {
	t.Helper()
	nodes := map[osm.NodeID]osmloader.NodeRecord{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0.001, Lon: 1},
		3: {ID: 3, Lat: -0.05, Lon: 1},
		4: {ID: 4, Lat: 0, Lon: 2},
	}
	mainTags := osm.Tags{{Key: "highway", Value: "primary"}}
	resTags := osm.Tags{{Key: "highway", Value: "residential"}}
	lr := &osmloader.LoadResult{
		Nodes: nodes,
		Ways: []osmloader.WayRecord{
			{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: mainTags},
			{ID: 2, Nodes: []osm.NodeID{2, 4}, Tags: mainTags},
			{ID: 3, Nodes: []osm.NodeID{1, 3}, Tags: resTags},
			{ID: 4, Nodes: []osm.NodeID{3, 4}, Tags: resTags},
		},
	}
	m, err := mapmodel.Build(lr)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestRoutePrefersMainRoadByDefault(t *testing.T) {
	m := diamond(t)
	eng := NewEngine(m)
	layer := editlayer.New()

	res, err := eng.Route(orb.Point{0, 0}, orb.Point{2, 0}, layer, Options{})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	for _, rid := range res.Roads {
		road, _ := m.RoadByID(rid)
		if road.Class != mapmodel.ClassMain {
			t.Errorf("road %d has class %v, want the shorter ClassMain path to win with no penalty", rid, road.Class)
		}
	}
}

func TestRouteMainRoadPenaltyPrefersDetour(t *testing.T) {
	m := diamond(t)
	eng := NewEngine(m)
	layer := editlayer.New()

	res, err := eng.Route(orb.Point{0, 0}, orb.Point{2, 0}, layer, Options{MainRoadPenalty: 10})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	for _, rid := range res.Roads {
		road, _ := m.RoadByID(rid)
		if road.Class == mapmodel.ClassMain {
			t.Errorf("road %d is ClassMain, want a heavy main-road penalty to push the route onto the residential detour", rid)
		}
	}
}

func TestRouteTooFarToSnap(t *testing.T) {
	m := straightChain(t)
	eng := NewEngine(m)
	layer := editlayer.New()

	_, err := eng.Route(orb.Point{0, 0}, orb.Point{50, 50}, layer, Options{})
	if err == nil {
		t.Fatal("expected an error snapping a destination far from the network")
	}
}
