package project

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/geo"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/neighbourhood"
)

// borderArrowLengthMeters is the fixed length of a border_arrow feature's
// line geometry, a cosmetic constant (spec §9's "expose as configuration
// constant" principle applied to the one other literal this renderer needs).
const borderArrowLengthMeters = 20.0

// NeighbourhoodRender is renderNeighbourhood's return value (spec §6): the
// feature collection plus the global properties the spec calls out
// alongside it. GeoJSON's "foreign member" top-level properties have no
// fixed representation in paulmach/orb/geojson, so these travel as sibling
// fields on a small wrapper rather than being smuggled into the
// FeatureCollection itself.
type NeighbourhoodRender struct {
	Features   *geojson.FeatureCollection `json:"feature_collection"`
	UndoLength int                        `json:"undo_length"`
	RedoLength int                        `json:"redo_length"`
	AreaKM2    float64                    `json:"area_km2"`
}

// RenderNeighbourhood implements spec §6's renderNeighbourhood.
func (p *Project) RenderNeighbourhood() *NeighbourhoodRender {
	snap := p.Neighbourhood()
	fc := geojson.NewFeatureCollection()

	if p.Layer.Boundary != nil {
		fc.Append(boundaryFeature(p.Layer.Boundary))
	}

	cellColor := make(map[mapmodel.RoadID]interface{})
	for _, cell := range snap.Cells {
		for _, rid := range cell.Roads {
			if cell.Disconnected {
				cellColor[rid] = "disconnected"
			} else {
				cellColor[rid] = cell.Color
			}
		}
	}

	for rid := range snap.InteriorRoads {
		road, ok := p.Model.RoadByID(rid)
		if !ok {
			continue
		}
		fc.Append(interiorRoadFeature(p.Layer, road, snap.ShortcutCount[rid], cellColor[rid]))
	}

	for _, cell := range snap.Cells {
		fc.Append(cellFeature(p.Model, cell))
	}

	totalShortcuts := 0
	for _, c := range snap.ShortcutCount {
		totalShortcuts += c
	}
	for _, bid := range snap.BorderIntersections {
		inter, ok := p.Model.IntersectionByID(bid)
		if !ok {
			continue
		}
		fc.Append(borderIntersectionFeature(inter))
		if arrow := borderArrowFeature(p.Model, snap, inter); arrow != nil {
			fc.Append(arrow)
		}
		fc.Append(crossesFeature(inter, snap, totalShortcuts))
	}

	return &NeighbourhoodRender{
		Features:   fc,
		UndoLength: p.Journal.UndoLength(),
		RedoLength: p.Journal.RedoLength(),
		AreaKM2:    snap.AreaKM2,
	}
}

// RenderModalFilters implements spec §6's renderModalFilters: one Point
// feature per modal filter (at its fractional position along the road) and
// one Point feature per diagonal filter (at the intersection), so the
// frontend can place filter icons without re-deriving geometry.
func (p *Project) RenderModalFilters() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for rid, mf := range p.Layer.ModalFilters {
		road, ok := p.Model.RoadByID(rid)
		if !ok {
			continue
		}
		pt := road.PointAtFraction(mf.Fraction)
		f := geojson.NewFeature(pt)
		f.Properties["kind"] = "modal_filter"
		f.Properties["road"] = uint32(rid)
		f.Properties["filter_kind"] = filterKindString(mf.Kind)
		fc.Append(f)
	}

	for at, df := range p.Layer.DiagonalFilters {
		inter, ok := p.Model.IntersectionByID(at)
		if !ok {
			continue
		}
		f := geojson.NewFeature(inter.Point)
		f.Properties["kind"] = "diagonal_filter"
		f.Properties["intersection_id"] = uint64(at)
		f.Properties["blocks"] = len(df.Blocks)
		fc.Append(f)
	}

	return fc
}

func filterKindString(k editlayer.FilterKind) string {
	switch k {
	case editlayer.FilterBollard:
		return "bollard"
	case editlayer.FilterPlanter:
		return "planter"
	case editlayer.FilterSchoolStreet:
		return "school_street"
	case editlayer.FilterNoEntry:
		return "no_entry"
	default:
		return "unknown"
	}
}

func boundaryFeature(b *editlayer.Boundary) *geojson.Feature {
	ring := make(orb.Ring, len(b.Polygon))
	for i, p := range b.Polygon {
		ring[i] = orb.Point{p[0], p[1]}
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["kind"] = "boundary"
	f.Properties["name"] = b.Name
	return f
}

func interiorRoadFeature(layer *editlayer.EditLayer, road *mapmodel.Road, shortcuts int, cellColor interface{}) *geojson.Feature {
	f := geojson.NewFeature(orb.LineString(road.Points))
	f.Properties["kind"] = "interior_road"
	f.Properties["road"] = uint32(road.ID)
	f.Properties["shortcuts"] = shortcuts
	f.Properties["travel_flow"] = flowString(layer.EffectiveFlow(road))
	f.Properties["travel_flow_edited"] = layer.EffectiveFlow(road) != road.OrigFlow
	f.Properties["edited"] = layer.EffectiveFlow(road) != road.OrigFlow || layer.IsFiltered(road.ID)
	f.Properties["cell_color"] = cellColor
	f.Properties["speed_mph"] = road.MaxSpeedKPH * 0.621371
	return f
}

func flowString(flow mapmodel.TravelFlow) string {
	switch flow {
	case mapmodel.FlowForwards:
		return "forwards"
	case mapmodel.FlowBackwards:
		return "backwards"
	default:
		return "both"
	}
}

// cellFeature renders a cell as the union (MultiLineString) of its member
// roads' polylines. Spec §4.4's "polygonalized union of each cell's road
// buffers ... via contour extraction" needs a road-buffering/alpha-shape
// routine that exists nowhere in the retrieved pack (orb ships no polygon
// buffer or contour-extraction helper either); rendering the roads
// themselves keeps the feature honest about what's actually known (which
// roads belong to the cell) without fabricating geometry no library here
// can produce — see DESIGN.md.
func cellFeature(model *mapmodel.MapModel, cell neighbourhood.Cell) *geojson.Feature {
	mls := make(orb.MultiLineString, 0, len(cell.Roads))
	for _, rid := range cell.Roads {
		if road, ok := model.RoadByID(rid); ok {
			mls = append(mls, orb.LineString(road.Points))
		}
	}
	f := geojson.NewFeature(mls)
	f.Properties["kind"] = "cell"
	f.Properties["num_roads"] = len(cell.Roads)
	f.Properties["disconnected"] = cell.Disconnected
	if cell.Disconnected {
		f.Properties["color"] = "disconnected"
	} else {
		f.Properties["color"] = cell.Color
	}
	return f
}

func borderIntersectionFeature(inter *mapmodel.Intersection) *geojson.Feature {
	f := geojson.NewFeature(inter.Point)
	f.Properties["kind"] = "border_intersection"
	f.Properties["intersection_id"] = uint64(inter.ID)
	return f
}

// borderArrowFeature draws a short line from the border intersection
// outward along the bearing of one of its motor-legal interior roads,
// indicating the direction shortcut traffic flows out of the boundary.
// Returns nil if the intersection has no motor-legal interior road to
// aim along (e.g. every incident interior road is filtered).
func borderArrowFeature(model *mapmodel.MapModel, snap *neighbourhood.Snapshot, inter *mapmodel.Intersection) *geojson.Feature {
	var outward *mapmodel.Road
	for _, rid := range inter.Incident {
		if !snap.InteriorRoads[rid] {
			continue
		}
		road, ok := model.RoadByID(rid)
		if !ok {
			continue
		}
		outward = road
		break
	}
	if outward == nil {
		return nil
	}

	var aim orb.Point
	if outward.Src == inter.ID {
		aim = outward.Points[min(1, len(outward.Points)-1)]
	} else {
		aim = outward.Points[max(0, len(outward.Points)-2)]
	}
	bearing := geo.Bearing(inter.Point[1], inter.Point[0], aim[1], aim[0])
	destLat, destLon := geo.Destination(inter.Point[1], inter.Point[0], bearing, borderArrowLengthMeters)

	f := geojson.NewFeature(orb.LineString{inter.Point, orb.Point{destLon, destLat}})
	f.Properties["kind"] = "border_arrow"
	f.Properties["intersection_id"] = uint64(inter.ID)
	return f
}

func crossesFeature(inter *mapmodel.Intersection, snap *neighbourhood.Snapshot, totalShortcuts int) *geojson.Feature {
	sum := 0
	for _, rid := range inter.Incident {
		if snap.InteriorRoads[rid] {
			sum += snap.ShortcutCount[rid]
		}
	}
	pct := 0.0
	if totalShortcuts > 0 {
		pct = float64(sum) / float64(totalShortcuts) * 100
	}

	f := geojson.NewFeature(inter.Point)
	f.Properties["kind"] = "crosses"
	f.Properties["intersection_id"] = uint64(inter.ID)
	f.Properties["pct"] = pct
	return f
}
