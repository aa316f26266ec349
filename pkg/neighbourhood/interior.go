// Package neighbourhood computes the derived Neighbourhood view (spec.md
// §4.4): interior-road classification, border intersections, cell
// decomposition and coloring, and shortcut enumeration, given a frozen
// mapmodel.MapModel, a drawn boundary, and the current EditLayer.
package neighbourhood

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

// boundaryPolygon converts an editlayer.Boundary's raw lon/lat rings into
// an orb.Polygon for planar.PolygonContains.
func boundaryPolygon(b *editlayer.Boundary) orb.Polygon {
	ring := make(orb.Ring, len(b.Polygon))
	for i, p := range b.Polygon {
		ring[i] = orb.Point{p[0], p[1]}
	}
	return orb.Polygon{ring}
}

// isInterior implements spec.md §4.4.1: a Road is interior iff its
// midpoint lies inside the boundary (planar.PolygonContains counts a
// midpoint exactly on the ring as inside) and its class isn't main,
// unless includePerimeter is set, in which case main roads count too.
// Perimeter (boundary-crossing) roads are identified separately by
// classifyRoads and always excluded regardless of this predicate.
func isInterior(poly orb.Polygon, road *mapmodel.Road, includePerimeter bool) bool {
	if !planar.PolygonContains(poly, road.Midpoint()) {
		return false
	}
	if road.Class == mapmodel.ClassMain && !includePerimeter {
		return false
	}
	return true
}

// crossesBoundary reports whether either endpoint of the road's polyline lies
// on the opposite side of containment from its midpoint — a cheap proxy
// for "this road crosses the boundary ring" that only needs the endpoints
// and midpoint, not a full ring-intersection test.
func crossesBoundary(poly orb.Polygon, road *mapmodel.Road) bool {
	inside := planar.PolygonContains(poly, road.Midpoint())
	for _, p := range []orb.Point{road.Points[0], road.Points[len(road.Points)-1]} {
		if planar.PolygonContains(poly, p) != inside {
			return true
		}
	}
	return false
}

// classifyRoads partitions every Road in model into the interior set per
// spec.md §4.4.1: perimeter (boundary-crossing) roads are always excluded,
// independent of includePerimeter (which only controls whether wholly-
// interior main roads count).
func classifyRoads(model *mapmodel.MapModel, boundary *editlayer.Boundary, includePerimeter bool) map[mapmodel.RoadID]bool {
	interior := make(map[mapmodel.RoadID]bool)
	if boundary == nil {
		return interior
	}
	poly := boundaryPolygon(boundary)
	for i := range model.Roads {
		road := &model.Roads[i]
		if crossesBoundary(poly, road) {
			continue
		}
		if isInterior(poly, road, includePerimeter) {
			interior[road.ID] = true
		}
	}
	return interior
}

// borderIntersections implements spec.md §4.4.2: intersections where at
// least one incident road is interior and at least one is not.
func borderIntersections(model *mapmodel.MapModel, interior map[mapmodel.RoadID]bool) []mapmodel.IntersectionID {
	var borders []mapmodel.IntersectionID
	for i := range model.Intersections {
		inter := &model.Intersections[i]
		var hasInterior, hasOther bool
		for _, rid := range inter.Incident {
			if interior[rid] {
				hasInterior = true
			} else {
				hasOther = true
			}
		}
		if hasInterior && hasOther {
			borders = append(borders, inter.ID)
		}
	}
	return borders
}
