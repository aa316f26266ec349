package mapmodel

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/osmloader"
)

// segment is a provisional road between two OSM node ids, before
// degree-2 chains are merged and before stable ids are assigned.
type segment struct {
	nodes []osm.NodeID
	class RoadClass
	flow  TravelFlow
	speed float64
	oneSg bool
	tags  osm.Tags
	ways  []osm.WayID
}

func (s *segment) src() osm.NodeID { return s.nodes[0] }
func (s *segment) dst() osm.NodeID { return s.nodes[len(s.nodes)-1] }

// Build constructs an immutable MapModel from parsed OSM records (spec
// §4.2, steps 1-8): it indexes nodes, splits ways at junctions, merges
// degree-2 through-chains, sorts each intersection's incident roads
// clockwise, parses turn restrictions, and builds both the routable edge
// CSR and the road spatial index.
func Build(lr *osmloader.LoadResult) (*MapModel, error) {
	if len(lr.Ways) == 0 {
		return nil, ltnerr.New(ltnerr.MalformedInput, "no highway ways in extract")
	}

	refCount := countNodeRefs(lr.Ways)
	segments := splitWaysIntoSegments(lr.Ways, refCount)
	segments = mergeDegreeTwoChains(segments, viaNodeSet(lr.Relations))

	m := &MapModel{
		forbidden:         make(map[uint64]bool),
		intersectionIndex: make(map[IntersectionID]int),
		roadIndex:         make(map[RoadID]int),
	}

	nodeToIntersection := make(map[osm.NodeID]IntersectionID, len(refCount))
	ensureIntersection := func(nodeID osm.NodeID) (IntersectionID, error) {
		if id, ok := nodeToIntersection[nodeID]; ok {
			return id, nil
		}
		rec, ok := lr.Nodes[nodeID]
		if !ok {
			return 0, ltnerr.New(ltnerr.MalformedInput, "way references unknown node")
		}
		id := intersectionID(rec.Lon, rec.Lat)
		nodeToIntersection[nodeID] = id
		if _, exists := m.intersectionIndex[id]; !exists {
			m.intersectionIndex[id] = len(m.Intersections)
			m.Intersections = append(m.Intersections, Intersection{ID: id, Point: orb.Point{rec.Lon, rec.Lat}})
		}
		return id, nil
	}

	for _, seg := range segments {
		pts := make([]orb.Point, len(seg.nodes))
		for i, n := range seg.nodes {
			rec, ok := lr.Nodes[n]
			if !ok {
				return nil, ltnerr.New(ltnerr.MalformedInput, "segment references unknown node")
			}
			pts[i] = orb.Point{rec.Lon, rec.Lat}
		}
		srcID, err := ensureIntersection(seg.src())
		if err != nil {
			return nil, err
		}
		dstID, err := ensureIntersection(seg.dst())
		if err != nil {
			return nil, err
		}
		if srcID == dstID {
			continue // degenerate loop segment, not routable
		}

		roadID := RoadID(len(m.Roads))
		road := Road{
			ID:           roadID,
			Points:       pts,
			Src:          srcID,
			Dst:          dstID,
			Class:        seg.class,
			MaxSpeedKPH:  seg.speed,
			OrigFlow:     seg.flow,
			OnewaySigned: seg.oneSg,
			LengthMeters: polylineLength(pts),
			Tags:         seg.tags,
			SourceWays:   seg.ways,
		}
		m.roadIndex[roadID] = len(m.Roads)
		m.Roads = append(m.Roads, road)

		srcIdx := m.intersectionIndex[srcID]
		dstIdx := m.intersectionIndex[dstID]
		m.Intersections[srcIdx].Incident = append(m.Intersections[srcIdx].Incident, roadID)
		m.Intersections[dstIdx].Incident = append(m.Intersections[dstIdx].Incident, roadID)
	}

	sortIncidentClockwise(m)

	if err := attachRestrictions(m, lr.Relations, nodeToIntersection); err != nil {
		return nil, err
	}

	buildEdgeCSR(m)
	indexForbiddenTransitions(m)
	m.index = buildSpatialIndex(m)

	return m, nil
}

// countNodeRefs counts how many (way, position) occurrences reference each
// node, across every kept way. A node referenced more than once, or sitting
// at a way's start/end, is a hard junction — ways are always split there.
func countNodeRefs(ways []osmloader.WayRecord) map[osm.NodeID]int {
	refs := make(map[osm.NodeID]int)
	for _, w := range ways {
		for _, n := range w.Nodes {
			refs[n]++
		}
	}
	return refs
}

func splitWaysIntoSegments(ways []osmloader.WayRecord, refCount map[osm.NodeID]int) []*segment {
	var segments []*segment
	for _, w := range ways {
		class, ok := classify(w.Tags)
		if !ok {
			continue
		}
		flow, signed := onewayFlow(w.Tags)
		speed := maxSpeedKPH(w.Tags)

		start := 0
		for i := 1; i < len(w.Nodes); i++ {
			last := i == len(w.Nodes)-1
			if !last && refCount[w.Nodes[i]] <= 1 {
				continue
			}
			segments = append(segments, &segment{
				nodes: append([]osm.NodeID(nil), w.Nodes[start:i+1]...),
				class: class, flow: flow, speed: speed, oneSg: signed, tags: w.Tags,
				ways: []osm.WayID{w.ID},
			})
			start = i
		}
	}
	return segments
}

func viaNodeSet(relations []osmloader.RelationRecord) map[osm.NodeID]bool {
	vias := make(map[osm.NodeID]bool)
	for _, rel := range relations {
		for _, mem := range rel.Members {
			if mem.Role == "via" && mem.Type == osm.TypeNode {
				vias[osm.NodeID(mem.Ref)] = true
			}
		}
	}
	return vias
}

// mergeDegreeTwoChains fuses consecutive segments that meet at a node which
// is not a real junction: the node joins exactly two segment endpoints, both
// sides share the same class and direction handling, and the node is not a
// turn-restriction via-node (merging it would hide the restriction's anchor).
// This undoes OSM's habit of splitting one physical street into many way
// objects (administrative boundaries, tag changes on `name`, etc).
func mergeDegreeTwoChains(segments []*segment, vias map[osm.NodeID]bool) []*segment {
	for {
		endpointCount := make(map[osm.NodeID]int)
		for _, s := range segments {
			endpointCount[s.src()]++
			endpointCount[s.dst()]++
		}

		merged := false
		for i := 0; i < len(segments); i++ {
			a := segments[i]
			joinNode := a.dst()
			if vias[joinNode] || endpointCount[joinNode] != 2 {
				continue
			}
			j := findPartner(segments, i, joinNode)
			if j < 0 {
				continue
			}
			b := segments[j]
			if !mergeable(a, b) {
				continue
			}
			combined := combineSegments(a, b, joinNode)
			segments[i] = combined
			segments = append(segments[:j], segments[j+1:]...)
			merged = true
			break
		}
		if !merged {
			break
		}
	}
	return segments
}

func findPartner(segments []*segment, skip int, joinNode osm.NodeID) int {
	for j, s := range segments {
		if j == skip {
			continue
		}
		if s.src() == joinNode || s.dst() == joinNode {
			return j
		}
	}
	return -1
}

func mergeable(a, b *segment) bool {
	return a.class == b.class && a.flow == b.flow && a.oneSg == b.oneSg
}

// combineSegments concatenates b onto the end of a at their shared node,
// reversing whichever side is needed so the joined polyline runs in order.
func combineSegments(a, b *segment, joinNode osm.NodeID) *segment {
	aNodes := a.nodes
	bNodes := b.nodes
	if b.dst() == joinNode {
		bNodes = reverseNodes(bNodes)
	}
	combined := append(append([]osm.NodeID(nil), aNodes...), bNodes[1:]...)
	ways := append(append([]osm.WayID(nil), a.ways...), b.ways...)
	return &segment{nodes: combined, class: a.class, flow: a.flow, speed: a.speed, oneSg: a.oneSg, tags: a.tags, ways: ways}
}

func reverseNodes(nodes []osm.NodeID) []osm.NodeID {
	out := make([]osm.NodeID, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// sortIncidentClockwise orders each intersection's incident roads by the
// compass bearing leaving the intersection along that road's first hop.
func sortIncidentClockwise(m *MapModel) {
	for i := range m.Intersections {
		inter := &m.Intersections[i]
		bearings := make(map[RoadID]float64, len(inter.Incident))
		for _, rid := range inter.Incident {
			road := &m.Roads[m.roadIndex[rid]]
			if road.Src == inter.ID {
				bearings[rid] = bearingAt(road.Points)
			} else {
				bearings[rid] = bearingAt(reversePoints(road.Points))
			}
		}
		sort.Slice(inter.Incident, func(a, b int) bool {
			return bearings[inter.Incident[a]] < bearings[inter.Incident[b]]
		})
	}
}

func reversePoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// buildEdgeCSR materializes the directed routable edges for every Road
// according to its OrigFlow, then builds the CSR lookup keyed by
// intersection slice index.
func buildEdgeCSR(m *MapModel) {
	n := len(m.Intersections)
	byNode := make([][]uint32, n)
	m.roadEdges = make(map[RoadID][]uint32, len(m.Roads))

	addEdge := func(road *Road, forward bool) {
		from, to := road.Src, road.Dst
		if !forward {
			from, to = road.Dst, road.Src
		}
		id := uint32(len(m.Edges))
		m.Edges = append(m.Edges, Edge{
			ID: id, Road: road.ID, From: from, To: to, Forward: forward,
			LengthM:     road.LengthMeters,
			BaseCostSec: road.LengthMeters / kphToMps(road.MaxSpeedKPH),
			MainRoad:    road.Class == ClassMain,
		})
		byNode[m.intersectionIndex[from]] = append(byNode[m.intersectionIndex[from]], id)
		m.roadEdges[road.ID] = append(m.roadEdges[road.ID], id)
	}

	for i := range m.Roads {
		road := &m.Roads[i]
		switch road.OrigFlow {
		case FlowForwards:
			addEdge(road, true)
		case FlowBackwards:
			addEdge(road, false)
		default:
			addEdge(road, true)
			addEdge(road, false)
		}
	}

	m.edgeFirstOut = make([]uint32, n+1)
	var head []uint32
	for i := 0; i < n; i++ {
		m.edgeFirstOut[i] = uint32(len(head))
		head = append(head, byNode[i]...)
	}
	m.edgeFirstOut[n] = uint32(len(head))
	m.edgeHead = head

	buildReverseCSR(m)
}

// buildReverseCSR indexes the same Edges by their To node, so the router's
// backward search can walk incoming edges without scanning the whole edge
// list.
func buildReverseCSR(m *MapModel) {
	n := len(m.Intersections)
	byNode := make([][]uint32, n)
	for _, e := range m.Edges {
		idx := m.intersectionIndex[e.To]
		byNode[idx] = append(byNode[idx], e.ID)
	}

	m.edgeFirstIn = make([]uint32, n+1)
	var head []uint32
	for i := 0; i < n; i++ {
		m.edgeFirstIn[i] = uint32(len(head))
		head = append(head, byNode[i]...)
	}
	m.edgeFirstIn[n] = uint32(len(head))
	m.edgeHeadIn = head
}

func kphToMps(kph float64) float64 {
	if kph <= 0 {
		return 30 / 3.6
	}
	return kph / 3.6
}
