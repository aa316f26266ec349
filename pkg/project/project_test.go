package project

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

// gridOSMXML is a small residential fixture: two ways from (0,0) to (2,0)
// meeting at (1,0), where nothing else joins them, so Build merges them
// into one Road. It lies entirely inside the test boundary below, tagged
// so it classifies as interior.
const gridOSMXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0.0" lon="0.0"/>
  <node id="2" lat="0.0" lon="1.0"/>
  <node id="3" lat="0.0" lon="2.0"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
</osm>
`

const testBoundaryGeoJSON = `{
  "type": "Feature",
  "properties": {"name": "test neighbourhood"},
  "geometry": {
    "type": "Polygon",
    "coordinates": [[[-1, -1], [3, -1], [3, 1], [-1, 1], [-1, -1]]]
  }
}`

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := New([]byte(gridOSMXML), nil, []byte(testBoundaryGeoJSON), "test area")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNewParsesBoundaryAndGrid(t *testing.T) {
	p := newTestProject(t)
	if len(p.Model.Roads) != 1 {
		t.Fatalf("len(Roads) = %d, want 1", len(p.Model.Roads))
	}
	if p.Layer.Boundary == nil || p.Layer.Boundary.Name != "test neighbourhood" {
		t.Fatal("expected boundary to be parsed with its name")
	}
	if !p.Layer.Boundary.WaypointsBackfilled {
		t.Error("expected waypoints to be back-filled when the Feature supplies none")
	}
	snap := p.Neighbourhood()
	if len(snap.InteriorRoads) != 1 {
		t.Fatalf("len(InteriorRoads) = %d, want 1", len(snap.InteriorRoads))
	}
}

func TestAddModalFilterUndoRedo(t *testing.T) {
	p := newTestProject(t)
	road := p.Model.Roads[0].ID
	mid := p.Model.Roads[0].Midpoint()

	if err := p.AddModalFilter(mid[0], mid[1], editlayer.FilterBollard); err != nil {
		t.Fatalf("AddModalFilter() error = %v", err)
	}
	if _, ok := p.Layer.ModalFilters[road]; !ok {
		t.Fatal("expected a modal filter on the nearest road")
	}

	if err := p.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if len(p.Layer.ModalFilters) != 0 {
		t.Fatal("expected undo to remove the modal filter")
	}

	if err := p.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if len(p.Layer.ModalFilters) != 1 {
		t.Fatal("expected redo to restore the modal filter")
	}
}

func TestReentrantEditRejected(t *testing.T) {
	p := newTestProject(t)
	if err := p.begin(); err != nil {
		t.Fatalf("begin() error = %v", err)
	}
	defer p.end()

	err := p.AddDiagonalFilter(p.Model.Intersections[0].ID)
	if err == nil {
		t.Fatal("expected ReentrantEdit while a mutation is already in progress")
	}
	kindErr, ok := err.(*ltnerr.Error)
	if !ok || kindErr.Kind != ltnerr.ReentrantEdit {
		t.Errorf("error = %v, want ReentrantEdit", err)
	}
}

func TestRoute(t *testing.T) {
	p := newTestProject(t)
	result, err := p.Route(orb.Point{0, 0}, orb.Point{2, 0}, 1.0)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.DistanceM <= 0 {
		t.Error("expected a positive route distance")
	}
}

func TestRenderNeighbourhoodAndModalFilters(t *testing.T) {
	p := newTestProject(t)
	road := p.Model.Roads[0].ID
	mid := p.Model.Roads[0].Midpoint()
	if err := p.AddModalFilter(mid[0], mid[1], editlayer.FilterPlanter); err != nil {
		t.Fatalf("AddModalFilter() error = %v", err)
	}

	render := p.RenderNeighbourhood()
	if render.UndoLength != 1 {
		t.Errorf("UndoLength = %d, want 1", render.UndoLength)
	}
	foundBoundary := false
	foundRoad := false
	for _, f := range render.Features.Features {
		switch f.Properties["kind"] {
		case "boundary":
			foundBoundary = true
		case "interior_road":
			if rid, _ := f.Properties["road"].(uint32); rid == uint32(road) {
				foundRoad = true
				if edited, _ := f.Properties["edited"].(bool); !edited {
					t.Error("expected the filtered road to be marked edited")
				}
			}
		}
	}
	if !foundBoundary {
		t.Error("expected a boundary feature")
	}
	if !foundRoad {
		t.Error("expected an interior_road feature for the filtered road")
	}

	filters := p.RenderModalFilters()
	if len(filters.Features) != 1 {
		t.Fatalf("len(RenderModalFilters) = %d, want 1", len(filters.Features))
	}
	if kind := filters.Features[0].Properties["filter_kind"]; kind != "planter" {
		t.Errorf("filter_kind = %v, want planter", kind)
	}
}

func TestSavefileRoundTrip(t *testing.T) {
	p := newTestProject(t)
	road := p.Model.Roads[0].ID
	mid := p.Model.Roads[0].Midpoint()
	if err := p.AddModalFilter(mid[0], mid[1], editlayer.FilterBollard); err != nil {
		t.Fatalf("AddModalFilter() error = %v", err)
	}

	data, err := p.ToSavefile()
	if err != nil {
		t.Fatalf("ToSavefile() error = %v", err)
	}

	loaded, err := LoadSavefile(data)
	if err != nil {
		t.Fatalf("LoadSavefile() error = %v", err)
	}
	if loaded.StudyAreaName != p.StudyAreaName {
		t.Errorf("StudyAreaName = %q, want %q", loaded.StudyAreaName, p.StudyAreaName)
	}
	if len(loaded.Model.Roads) != len(p.Model.Roads) {
		t.Errorf("len(Roads) = %d, want %d", len(loaded.Model.Roads), len(p.Model.Roads))
	}
	if _, ok := loaded.Layer.ModalFilters[road]; !ok {
		t.Fatal("expected the modal filter to survive the round trip")
	}

	data2, err := loaded.ToSavefile()
	if err != nil {
		t.Fatalf("re-ToSavefile() error = %v", err)
	}
	if !strings.Contains(string(data2), `"study_area_name":"test area"`) {
		t.Error("expected the re-encoded save file to still carry the study area name")
	}
}
