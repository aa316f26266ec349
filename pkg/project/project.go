// Package project is the external-interface handle spec §6 describes: a
// single opaque object composing a frozen pkg/mapmodel.MapModel, a live
// pkg/editlayer.EditLayer, the pkg/journal.Journal that mutates it, and the
// pkg/routing and pkg/impact engines that read it. Every mutating operation
// flows through a Project method so the reentrancy guard (spec §5) and the
// Neighbourhood cache invalidation stay in one place, the way the teacher's
// pkg/api.Handlers centralizes every HTTP-facing operation on one Engine.
package project

import (
	"bytes"
	"context"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/impact"
	"github.com/azybler/ltn-engine/pkg/journal"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/neighbourhood"
	"github.com/azybler/ltn-engine/pkg/osmloader"
	"github.com/azybler/ltn-engine/pkg/routing"
)

// Project is the handle returned by New. Exported fields are read-only by
// convention — mutate the EditLayer only through Project's methods so every
// change is journalled.
type Project struct {
	Model         *mapmodel.MapModel
	Layer         *editlayer.EditLayer
	Journal       *journal.Journal
	StudyAreaName string
	Demand        *impact.DemandModel

	// baseline is the permanently-empty EditLayer compareRoute (spec §4.3)
	// and the Impact Analyzer diff against: "the unedited graph".
	baseline *editlayer.EditLayer

	router   *routing.Engine
	analyzer *impact.Analyzer

	neighbourhoodOpts neighbourhood.Options
	cachedSnapshot    *neighbourhood.Snapshot
	snapshotDirty     bool

	inMutation bool
}

// New implements spec §6's construction contract:
// new(osm_bytes, demand_bytes, boundary_polygon_geojson, study_area_name).
// demandBytes and boundaryGeoJSON may be nil.
func New(osmBytes, demandBytes, boundaryGeoJSON []byte, studyAreaName string) (*Project, error) {
	lr, err := osmloader.Parse(context.Background(), bytes.NewReader(osmBytes), detectFormat(osmBytes))
	if err != nil {
		return nil, err
	}

	model, err := mapmodel.Build(lr)
	if err != nil {
		return nil, err
	}

	layer := editlayer.New()
	if len(boundaryGeoJSON) > 0 {
		boundary, err := parseBoundaryFeature(boundaryGeoJSON)
		if err != nil {
			return nil, err
		}
		layer.Boundary = boundary
	}

	var demand *impact.DemandModel
	if len(demandBytes) > 0 {
		demand, err = impact.ParseDemandModel(demandBytes)
		if err != nil {
			return nil, err
		}
	}

	return &Project{
		Model:         model,
		Layer:         layer,
		Journal:       journal.New(),
		StudyAreaName: studyAreaName,
		Demand:        demand,
		baseline:      editlayer.New(),
		router:        routing.NewEngine(model),
		analyzer:      impact.NewAnalyzer(model),
		snapshotDirty: true,
	}, nil
}

// detectFormat sniffs the OSM byte stream: XML extracts start (after
// optional whitespace/BOM) with '<'; everything else is treated as PBF,
// matching paulmach/osm's own pbf-is-the-default assumption.
func detectFormat(data []byte) osmloader.Format {
	trimmed := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return osmloader.FormatXML
	}
	return osmloader.FormatPBF
}

// parseBoundaryFeature implements spec §6's boundary input format: a
// GeoJSON Feature with Polygon geometry, optional `name` and `waypoints[]`
// properties.
func parseBoundaryFeature(data []byte) (*editlayer.Boundary, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, ltnerr.Wrap(ltnerr.MalformedInput, "boundary is not a valid GeoJSON Feature", err)
	}

	poly, ok := f.Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) == 0 {
		return nil, ltnerr.New(ltnerr.MalformedInput, "boundary geometry must be a non-empty Polygon")
	}

	name, _ := f.Properties["name"].(string)
	ring := poly[0]
	polygon := make([][2]float64, len(ring))
	for i, p := range ring {
		polygon[i] = [2]float64{p[0], p[1]}
	}

	waypoints, backfilled := parseWaypoints(f.Properties["waypoints"], ring)

	return &editlayer.Boundary{
		Name:                name,
		Polygon:             polygon,
		Waypoints:           waypoints,
		WaypointsBackfilled: backfilled,
	}, nil
}

// parseWaypoints implements spec §9's open question #1: when the boundary
// Feature supplies no explicit waypoints[], back-fill one waypoint per ring
// vertex and flag it, preserving the original's behavior (and its editing
// friction) rather than inventing a different contract.
func parseWaypoints(raw interface{}, ring orb.Ring) ([]editlayer.Waypoint, bool) {
	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		wps := make([]editlayer.Waypoint, len(ring))
		for i, p := range ring {
			wps[i] = editlayer.Waypoint{Lon: p[0], Lat: p[1]}
		}
		return wps, true
	}

	wps := make([]editlayer.Waypoint, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		lon, _ := m["lon"].(float64)
		lat, _ := m["lat"].(float64)
		snapped, _ := m["snapped"].(bool)
		wps = append(wps, editlayer.Waypoint{Lon: lon, Lat: lat, Snapped: snapped})
	}
	return wps, false
}

// begin enters a mutating operation, failing ReentrantEdit (spec §5) if one
// is already in progress — the host runtime is expected to be a single
// synchronous caller, so re-entry only happens if a render callback itself
// tries to mutate.
func (p *Project) begin() error {
	if p.inMutation {
		return ltnerr.New(ltnerr.ReentrantEdit, "a mutation is already in progress on this project")
	}
	p.inMutation = true
	return nil
}

func (p *Project) end() {
	p.inMutation = false
}

// do commits a successfully-built Command and invalidates the cached
// Neighbourhood snapshot, the only state derived from the EditLayer.
func (p *Project) do(cmd journal.Command) {
	p.Journal.Do(p.Layer, cmd)
	p.snapshotDirty = true
}

// Neighbourhood returns the current derived Neighbourhood view, recomputing
// it lazily whenever the boundary, EditLayer, or options have changed since
// the last call (spec §3's "Lifecycle" paragraph).
func (p *Project) Neighbourhood() *neighbourhood.Snapshot {
	if p.cachedSnapshot == nil || p.snapshotDirty {
		p.cachedSnapshot = neighbourhood.Compute(p.Model, p.Layer, p.neighbourhoodOpts)
		p.snapshotDirty = false
	}
	return p.cachedSnapshot
}

// SetIncludePerimeter toggles the "include perimeter roads" flag (spec
// §4.4.1). Not journalled — it's a view option, not an edit to the project
// state — but it does invalidate the cached Neighbourhood.
func (p *Project) SetIncludePerimeter(include bool) {
	if p.neighbourhoodOpts.IncludePerimeter == include {
		return
	}
	p.neighbourhoodOpts.IncludePerimeter = include
	p.snapshotDirty = true
}

// AddModalFilter implements spec §4.5's addModalFilter.
func (p *Project) AddModalFilter(lon, lat float64, kind editlayer.FilterKind) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewAddModalFilter(p.Model, p.Layer, p.Neighbourhood(), lon, lat, kind)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// AddManyModalFilters implements spec §4.5's addManyModalFilters.
func (p *Project) AddManyModalFilters(line []orb.Point, kind editlayer.FilterKind) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewAddManyModalFilters(p.Model, p.Layer, p.Neighbourhood(), line, kind)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// DeleteModalFilter implements spec §4.5's deleteModalFilter.
func (p *Project) DeleteModalFilter(road mapmodel.RoadID) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewDeleteModalFilter(p.Layer, road)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// ToggleTravelFlow implements spec §4.5's toggleTravelFlow.
func (p *Project) ToggleTravelFlow(road mapmodel.RoadID) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewToggleTravelFlow(p.Model, p.Layer, road)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// AddDiagonalFilter implements spec §4.5's addDiagonalFilter.
func (p *Project) AddDiagonalFilter(at mapmodel.IntersectionID) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewAddDiagonalFilter(p.Model, at)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// RotateDiagonalFilter implements spec §4.5's rotateDiagonalFilter.
func (p *Project) RotateDiagonalFilter(at mapmodel.IntersectionID) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewRotateDiagonalFilter(p.Model, p.Layer, at)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// DeleteDiagonalFilter implements spec §4.5's deleteDiagonalFilter.
func (p *Project) DeleteDiagonalFilter(at mapmodel.IntersectionID) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewDeleteDiagonalFilter(p.Layer, at)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// SetNeighbourhoodBoundary implements spec §4.5's setNeighbourhoodBoundary.
// The supplied polygon's ring is back-filled into Waypoints (spec §9 open
// question #1) since this entry point takes a bare ring, not a Feature with
// an explicit waypoints[] property.
func (p *Project) SetNeighbourhoodBoundary(name string, polygon [][2]float64) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	ring := make(orb.Ring, len(polygon))
	for i, pt := range polygon {
		ring[i] = orb.Point{pt[0], pt[1]}
	}
	waypoints, backfilled := parseWaypoints(nil, ring)

	p.do(journal.NewSetNeighbourhoodBoundary(p.Layer, name, polygon, waypoints, backfilled))
	return nil
}

// RenameNeighbourhoodBoundary implements spec §4.5's renameNeighbourhoodBoundary.
func (p *Project) RenameNeighbourhoodBoundary(name string) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewRenameNeighbourhoodBoundary(p.Layer, name)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// DeleteNeighbourhoodBoundary implements spec §4.5's deleteNeighbourhoodBoundary.
func (p *Project) DeleteNeighbourhoodBoundary() error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	cmd, err := journal.NewDeleteNeighbourhoodBoundary(p.Layer)
	if err != nil {
		return err
	}
	p.do(cmd)
	return nil
}

// Undo pops and inverts the most recent command (spec §4.5).
func (p *Project) Undo() error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	if err := p.Journal.UndoLast(p.Layer); err != nil {
		return err
	}
	p.snapshotDirty = true
	return nil
}

// Redo re-applies the most recently undone command (spec §4.5).
func (p *Project) Redo() error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	if err := p.Journal.RedoLast(p.Layer); err != nil {
		return err
	}
	p.snapshotDirty = true
	return nil
}

// Route implements spec §4.3's route(o, d, P) against the current edited
// graph.
func (p *Project) Route(origin, destination orb.Point, mainRoadPenalty float64) (*routing.Result, error) {
	return p.router.Route(origin, destination, p.Layer, routing.Options{MainRoadPenalty: mainRoadPenalty})
}

// CompareRoute implements spec §4.3's compareRoute(o, d, P): the same OD
// pair routed on the unedited graph and on the current EditLayer.
func (p *Project) CompareRoute(origin, destination orb.Point, mainRoadPenalty float64) (before, after *routing.Result, err error) {
	return p.router.CompareRoute(origin, destination, p.baseline, p.Layer, routing.Options{MainRoadPenalty: mainRoadPenalty})
}

// AggregateImpact implements spec §4.6's per-edge flow aggregation. Returns
// an empty map if no DemandModel was supplied at construction.
func (p *Project) AggregateImpact() map[mapmodel.RoadID]*impact.EdgeFlow {
	if p.Demand == nil {
		return map[mapmodel.RoadID]*impact.EdgeFlow{}
	}
	return p.analyzer.AggregateFlow(p.Demand, p.baseline, p.Layer)
}

// ImpactToDestination implements spec §4.6's impactToOneDestination.
// Requires a drawn boundary to bound the origin sample's grid.
func (p *Project) ImpactToDestination(dest orb.Point, gridSize int) (*impact.DestinationImpact, error) {
	if p.Layer.Boundary == nil {
		return nil, ltnerr.New(ltnerr.OutOfBounds, "impactToOneDestination needs a drawn neighbourhood boundary to bound the origin sample")
	}
	return p.analyzer.ImpactToDestination(p.Layer.Boundary, dest, p.baseline, p.Layer, gridSize), nil
}

// boundaryName is a small helper shared by render.go/savefile.go; returns
// the empty string if no boundary is drawn.
func (p *Project) boundaryName() string {
	if p.Layer.Boundary == nil {
		return ""
	}
	return strings.TrimSpace(p.Layer.Boundary.Name)
}
