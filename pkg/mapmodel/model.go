// Package mapmodel builds the frozen, immutable routable road-network model
// from parsed OSM records (spec §4.2). A MapModel is built once per project
// and never mutated afterward — per-project edits live in pkg/editlayer.
package mapmodel

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// IntersectionID stably identifies an Intersection, derived from its
// coordinates (see ids.go) so the same OSM extract always yields the same
// ids across rebuilds.
type IntersectionID uint64

// RoadID stably identifies a Road within one MapModel build. Roads are
// frozen post-build, so a RoadID is valid for the lifetime of the MapModel.
type RoadID uint32

// RoadClass classifies a Road for main-vs-residential routing treatment.
type RoadClass int

const (
	ClassMain RoadClass = iota
	ClassResidential
	ClassService
	ClassTrack
	ClassPath
)

func (c RoadClass) String() string {
	switch c {
	case ClassMain:
		return "main"
	case ClassResidential:
		return "residential"
	case ClassService:
		return "service"
	case ClassTrack:
		return "track"
	case ClassPath:
		return "path"
	default:
		return "unknown"
	}
}

// TravelFlow is a Road's base (un-edited) direction of travel.
type TravelFlow int

const (
	FlowForwards TravelFlow = iota
	FlowBackwards
	FlowBoth
)

// ForbiddenTurn is a (from-road, via-intersection, to-road) triple parsed
// from a `type=restriction` relation.
type ForbiddenTurn struct {
	From RoadID
	Via  IntersectionID
	To   RoadID
}

// Intersection is a stable node in the graph: a point with its incident
// roads in clockwise order, plus any turn restrictions rooted here. Created
// once during Build; never mutated.
type Intersection struct {
	ID       IntersectionID
	Point    orb.Point // (lon, lat)
	Incident []RoadID  // clockwise order, sorted by bearing at this endpoint
	Turns    []ForbiddenTurn
}

// Road is a stable polyline edge in the graph between two Intersections.
// Immutable post-build.
type Road struct {
	ID           RoadID
	Points       []orb.Point // >= 2, WGS84 (lon, lat)
	Src, Dst     IntersectionID
	Class        RoadClass
	MaxSpeedKPH  float64
	OrigFlow     TravelFlow
	OnewaySigned bool // explicit oneway=yes/-1/true tag present (drives the toggle cycle)
	LengthMeters float64
	Tags         osm.Tags
	SourceWays   []osm.WayID // OSM way ids fused into this Road by degree-2 merging
}

// Midpoint returns the point halfway along the Road's polyline by arc
// length, used by the neighbourhood engine's interior classification.
func (r *Road) Midpoint() orb.Point {
	return pointAtFraction(r.Points, 0.5)
}

// PointAtFraction returns the point at the given arc-length fraction (0 =
// Points[0], 1 = the last point) along the Road's polyline, the same
// convention used by mapmodel.SnapResult.Fraction and editlayer.ModalFilter.
func (r *Road) PointAtFraction(frac float64) orb.Point {
	return pointAtFraction(r.Points, frac)
}

// Edge is one directed traversal of a Road in the routable graph. A
// bidirectional Road contributes two Edges; a one-way Road contributes one.
type Edge struct {
	ID          uint32
	Road        RoadID
	From, To    IntersectionID
	Forward     bool // true if traversing Road.Points in index order
	LengthM     float64
	BaseCostSec float64 // length / speed, no main-road penalty applied
	MainRoad    bool
}

// MapModel is the frozen, immutable base graph built from one OSM extract.
type MapModel struct {
	Intersections []Intersection
	Roads         []Road
	Edges         []Edge

	// Routable edge CSR, indexed by intersection slice index (not ID).
	edgeFirstOut []uint32
	edgeHead     []uint32 // edge index into Edges, sorted by From node
	edgeFirstIn  []uint32 // reverse CSR, sorted by To node, for backward search
	edgeHeadIn   []uint32

	// forbidden[packTurnKey(edgeIn, edgeOut)] = true for transitions
	// excluded by a turn-restriction relation.
	forbidden map[uint64]bool

	intersectionIndex map[IntersectionID]int
	roadIndex         map[RoadID]int
	roadEdges         map[RoadID][]uint32

	index *roadSpatialIndex
}

// EdgesOfRoad returns the (up to 2) directed Edge ids riding the given Road.
func (m *MapModel) EdgesOfRoad(id RoadID) []uint32 {
	return m.roadEdges[id]
}

func packTurnKey(edgeIn, edgeOut uint32) uint64 {
	return uint64(edgeIn)<<32 | uint64(edgeOut)
}

// IntersectionByID returns the Intersection with the given id.
func (m *MapModel) IntersectionByID(id IntersectionID) (*Intersection, bool) {
	idx, ok := m.intersectionIndex[id]
	if !ok {
		return nil, false
	}
	return &m.Intersections[idx], true
}

// RoadByID returns the Road with the given id.
func (m *MapModel) RoadByID(id RoadID) (*Road, bool) {
	idx, ok := m.roadIndex[id]
	if !ok {
		return nil, false
	}
	return &m.Roads[idx], true
}

// EdgesFrom returns the range of edge indices for edges originating at the
// given intersection.
func (m *MapModel) EdgesFrom(id IntersectionID) []uint32 {
	idx, ok := m.intersectionIndex[id]
	if !ok {
		return nil
	}
	start, end := m.edgeFirstOut[idx], m.edgeFirstOut[idx+1]
	return m.edgeHead[start:end]
}

// EdgesFromIndex is EdgesFrom keyed by node index rather than IntersectionID,
// for the router's hot path.
func (m *MapModel) EdgesFromIndex(nodeIdx int) []uint32 {
	start, end := m.edgeFirstOut[nodeIdx], m.edgeFirstOut[nodeIdx+1]
	return m.edgeHead[start:end]
}

// EdgesToIndex returns the incoming edges at the given node index, for the
// router's backward search.
func (m *MapModel) EdgesToIndex(nodeIdx int) []uint32 {
	start, end := m.edgeFirstIn[nodeIdx], m.edgeFirstIn[nodeIdx+1]
	return m.edgeHeadIn[start:end]
}

// NodeIndex returns the contiguous slice index backing an IntersectionID,
// i.e. the node id the Router's CSR operates on.
func (m *MapModel) NodeIndex(id IntersectionID) (int, bool) {
	idx, ok := m.intersectionIndex[id]
	return idx, ok
}

// NumNodes returns the number of intersections (routable graph nodes).
func (m *MapModel) NumNodes() int { return len(m.Intersections) }

// IsForbidden reports whether the transition from edgeIn into edgeOut is
// blocked by a turn-restriction relation.
func (m *MapModel) IsForbidden(edgeIn, edgeOut uint32) bool {
	return m.forbidden[packTurnKey(edgeIn, edgeOut)]
}

// Bounds returns the min/max lon/lat of every Road point in the model.
func (m *MapModel) Bounds() orb.Bound {
	bound := orb.Bound{Min: orb.Point{180, 90}, Max: orb.Point{-180, -90}}
	for i := range m.Roads {
		for _, p := range m.Roads[i].Points {
			bound = bound.Extend(p)
		}
	}
	return bound
}
