// Package routing implements the Router: a bidirectional Dijkstra search
// over a pkg/mapmodel.MapModel that honors the active pkg/editlayer.EditLayer
// (modal filters, diagonal filters, direction overrides) and applies a
// configurable penalty to main-road edges. Grounded on the teacher's
// bidirectional CH-Dijkstra engine (pkg/routing/engine.go), generalized from
// a static contracted overlay to a plain, frequently-edited graph — the CH
// unpacking step is gone entirely (see DESIGN.md) since contraction can't
// tolerate the edit-every-few-seconds workload this Router serves.
package routing

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

// costFixedScale converts float64-second costs into the fixed-point
// centisecond ints the MinHeap compares, matching the teacher's
// integer-weight convention for the priority queue.
const costFixedScale = 100.0

// maxFixedCost caps a single relaxation's contribution so additions can't
// overflow uint32 across a long route.
const maxFixedCost = math.MaxUint32 / 4

func costToFixed(seconds float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	v := seconds * costFixedScale
	if v > maxFixedCost {
		return maxFixedCost
	}
	return uint32(v)
}

// Options configures one Route call.
type Options struct {
	// MainRoadPenalty multiplies the cost of main-road edges. >1 biases
	// the search away from main roads (useful for comparing what a driver
	// would do if only residential shortcuts remained attractive); 1.0 is
	// neutral. Defaults to 1.0 if zero.
	MainRoadPenalty float64
}

func (o Options) penalty() float64 {
	if o.MainRoadPenalty <= 0 {
		return 1.0
	}
	return o.MainRoadPenalty
}

// Result is a computed route.
type Result struct {
	Geometry  []orb.Point
	DistanceM float64
	DurationS float64
	Roads     []mapmodel.RoadID // in traversal order
}

// Engine runs routing queries against one frozen MapModel.
type Engine struct {
	Model *mapmodel.MapModel
}

func NewEngine(m *mapmodel.MapModel) *Engine {
	return &Engine{Model: m}
}

// CompareRoute implements spec §4.3's compareRoute contract: the same OD
// pair routed against two EditLayer snapshots (typically the unedited and
// edited graph). An unroutable before-layer is a real error — there's
// nothing to compare against. An unroutable after-layer is not: it's
// reported as a nil afterResult so callers (the Impact Analyzer) can apply
// their own +Inf sentinel rather than failing the whole comparison.
func (eng *Engine) CompareRoute(origin, destination orb.Point, before, after *editlayer.EditLayer, opts Options) (beforeResult, afterResult *Result, err error) {
	beforeResult, err = eng.Route(origin, destination, before, opts)
	if err != nil {
		return nil, nil, err
	}
	afterResult, afterErr := eng.Route(origin, destination, after, opts)
	if afterErr != nil {
		return beforeResult, nil, nil
	}
	return beforeResult, afterResult, nil
}

// Route finds the lowest-cost path from origin to destination under the
// given EditLayer, snapping both endpoints onto the road network first.
func (eng *Engine) Route(origin, destination orb.Point, layer *editlayer.EditLayer, opts Options) (*Result, error) {
	originSnap, err := eng.Model.Snap(origin[0], origin[1])
	if err != nil {
		return nil, err
	}
	destSnap, err := eng.Model.Snap(destination[0], destination[1])
	if err != nil {
		return nil, err
	}

	if originSnap.Road == destSnap.Road {
		if r, ok := eng.sameRoadRoute(originSnap, destSnap, layer, opts); ok {
			return r, nil
		}
	}

	qs := NewQueryState(uint32(eng.Model.NumNodes()))
	penalty := opts.penalty()

	if err := eng.seed(qs, true, originSnap, layer, penalty); err != nil {
		return nil, err
	}
	if err := eng.seed(qs, false, destSnap, layer, penalty); err != nil {
		return nil, err
	}

	meetNode, meetCost, found := eng.search(qs, layer, penalty)
	if !found {
		return nil, ltnerr.New(ltnerr.Unroutable, "no path between the two points under the current edits")
	}

	edges := eng.reconstructPath(qs, meetNode)
	return eng.buildResult(edges, originSnap, destSnap, meetCost), nil
}

// sameRoadRoute handles the degenerate case where both snap points land on
// the same Road: the path is the segment between their two fractions, no
// graph search needed.
func (eng *Engine) sameRoadRoute(origin, dest mapmodel.SnapResult, layer *editlayer.EditLayer, opts Options) (*Result, bool) {
	road, ok := eng.Model.RoadByID(origin.Road)
	if !ok {
		return nil, false
	}
	flow := layer.EffectiveFlow(road)
	forward := dest.Fraction >= origin.Fraction
	if (forward && flow == mapmodel.FlowBackwards) || (!forward && flow == mapmodel.FlowForwards) {
		return nil, false // wrong direction for a one-way road; fall through to full search
	}
	if layer.IsFiltered(origin.Road) {
		lo, hi := origin.Fraction, dest.Fraction
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo < 0.5 && hi > 0.5 {
			return nil, false // the filter sits between the two points; must detour
		}
	}

	frac := dest.Fraction - origin.Fraction
	if frac < 0 {
		frac = -frac
	}
	dist := road.LengthMeters * frac
	cost := dist / kphToMps(road.MaxSpeedKPH)

	return &Result{
		Geometry:  []orb.Point{origin.Point, dest.Point},
		DistanceM: dist,
		DurationS: cost,
		Roads:     []mapmodel.RoadID{origin.Road},
	}, true
}

func kphToMps(kph float64) float64 {
	if kph <= 0 {
		return 30 / 3.6
	}
	return kph / 3.6
}

func edgeAllowed(model *mapmodel.MapModel, layer *editlayer.EditLayer, e mapmodel.Edge) bool {
	if layer.IsFiltered(e.Road) {
		return false
	}
	road, ok := model.RoadByID(e.Road)
	if !ok {
		return false
	}
	switch layer.EffectiveFlow(road) {
	case mapmodel.FlowForwards:
		return e.Forward
	case mapmodel.FlowBackwards:
		return !e.Forward
	default:
		return true
	}
}

func edgeCost(model *mapmodel.MapModel, e mapmodel.Edge, penalty float64) float64 {
	if e.MainRoad {
		return e.BaseCostSec * penalty
	}
	return e.BaseCostSec
}

// seed relaxes the Router's start state from a snapped point: the route may
// continue from either surviving end of the snapped Road, each reached at
// the remaining partial cost of that Road.
func (eng *Engine) seed(qs *QueryState, isForward bool, snap mapmodel.SnapResult, layer *editlayer.EditLayer, penalty float64) error {
	road, ok := eng.Model.RoadByID(snap.Road)
	if !ok {
		return ltnerr.New(ltnerr.InvalidIntersection, "snapped road no longer exists")
	}
	for _, eid := range eng.Model.EdgesOfRoad(snap.Road) {
		e := eng.Model.Edges[eid]
		if !edgeAllowed(eng.Model, layer, e) {
			continue
		}
		// e.To is already the node this edge arrives at, whichever
		// direction it runs; only the remaining-fraction of the road
		// differs between the forward and backward edge.
		var remaining float64
		if e.Forward {
			remaining = (1 - snap.Fraction) * road.LengthMeters / kphToMps(road.MaxSpeedKPH)
		} else {
			remaining = snap.Fraction * road.LengthMeters / kphToMps(road.MaxSpeedKPH)
		}
		idx, ok := eng.Model.NodeIndex(e.To)
		if !ok {
			continue
		}
		cost := costToFixed(remaining)
		if isForward {
			if cost < qs.DistFwd[idx] {
				qs.touchFwd(uint32(idx), cost)
				qs.PredFwd[idx] = noNode
				qs.FwdPQ.Push(uint32(idx), cost)
			}
		} else {
			if cost < qs.DistBwd[idx] {
				qs.touchBwd(uint32(idx), cost)
				qs.PredBwd[idx] = noNode
				qs.BwdPQ.Push(uint32(idx), cost)
			}
		}
	}
	return nil
}

// search runs the bidirectional Dijkstra main loop until the two frontiers
// meet, alternating a step on whichever side currently has the smaller
// frontier distance (the standard termination rule: stop once
// topFwd+topBwd >= best total found so far).
func (eng *Engine) search(qs *QueryState, layer *editlayer.EditLayer, penalty float64) (meetNode uint32, meetCost uint32, found bool) {
	best := uint32(math.MaxUint32)
	var bestNode uint32

	for qs.FwdPQ.Len() > 0 || qs.BwdPQ.Len() > 0 {
		if qs.FwdPQ.PeekDist() == math.MaxUint32 && qs.BwdPQ.PeekDist() == math.MaxUint32 {
			break
		}
		if uint64(qs.FwdPQ.PeekDist())+uint64(qs.BwdPQ.PeekDist()) >= uint64(best) {
			break
		}

		if qs.FwdPQ.PeekDist() <= qs.BwdPQ.PeekDist() {
			item := qs.FwdPQ.Pop()
			if item.Dist > qs.DistFwd[item.Node] {
				continue
			}
			eng.relaxForward(qs, layer, penalty, item.Node, item.Dist)
			if qs.DistBwd[item.Node] != math.MaxUint32 {
				total := uint64(item.Dist) + uint64(qs.DistBwd[item.Node])
				if total < uint64(best) {
					best = uint32(total)
					bestNode = item.Node
				}
			}
		} else {
			item := qs.BwdPQ.Pop()
			if item.Dist > qs.DistBwd[item.Node] {
				continue
			}
			eng.relaxBackward(qs, layer, penalty, item.Node, item.Dist)
			if qs.DistFwd[item.Node] != math.MaxUint32 {
				total := uint64(item.Dist) + uint64(qs.DistFwd[item.Node])
				if total < uint64(best) {
					best = uint32(total)
					bestNode = item.Node
				}
			}
		}
	}

	if best == math.MaxUint32 {
		return 0, 0, false
	}
	return bestNode, best, true
}

func (eng *Engine) relaxForward(qs *QueryState, layer *editlayer.EditLayer, penalty float64, node uint32, dist uint32) {
	predEdge := qs.PredFwd[node]
	for _, eid := range eng.Model.EdgesFromIndex(int(node)) {
		e := eng.Model.Edges[eid]
		if !edgeAllowed(eng.Model, layer, e) {
			continue
		}
		if predEdge != noNode {
			if eng.Model.IsForbidden(predEdge, eid) {
				continue
			}
			predRoad := eng.Model.Edges[predEdge].Road
			at := eng.Model.Edges[eid].From
			if layer.IsDiagonalBlocked(at, predRoad, e.Road) {
				continue
			}
		}
		newDist := dist + costToFixed(edgeCost(eng.Model, e, penalty))
		toIdx, ok := eng.Model.NodeIndex(e.To)
		if !ok {
			continue
		}
		if newDist < qs.DistFwd[toIdx] {
			qs.touchFwd(uint32(toIdx), newDist)
			qs.PredFwd[toIdx] = eid
			qs.FwdPQ.Push(uint32(toIdx), newDist)
		}
	}
}

func (eng *Engine) relaxBackward(qs *QueryState, layer *editlayer.EditLayer, penalty float64, node uint32, dist uint32) {
	predEdge := qs.PredBwd[node]
	for _, eid := range eng.Model.EdgesToIndex(int(node)) {
		e := eng.Model.Edges[eid]
		if !edgeAllowed(eng.Model, layer, e) {
			continue
		}
		if predEdge != noNode {
			if eng.Model.IsForbidden(eid, predEdge) {
				continue
			}
			nextRoad := eng.Model.Edges[predEdge].Road
			if layer.IsDiagonalBlocked(e.To, e.Road, nextRoad) {
				continue
			}
		}
		newDist := dist + costToFixed(edgeCost(eng.Model, e, penalty))
		fromIdx, ok := eng.Model.NodeIndex(e.From)
		if !ok {
			continue
		}
		if newDist < qs.DistBwd[fromIdx] {
			qs.touchBwd(uint32(fromIdx), newDist)
			qs.PredBwd[fromIdx] = eid
			qs.BwdPQ.Push(uint32(fromIdx), newDist)
		}
	}
}

// reconstructPath walks PredFwd back to a seed, then PredBwd forward to the
// destination, producing the full ordered edge list through meetNode.
func (eng *Engine) reconstructPath(qs *QueryState, meetNode uint32) []uint32 {
	var fwdHalf []uint32
	for node := meetNode; qs.PredFwd[node] != noNode; {
		eid := qs.PredFwd[node]
		fwdHalf = append(fwdHalf, eid)
		fromIdx, _ := eng.Model.NodeIndex(eng.Model.Edges[eid].From)
		node = uint32(fromIdx)
	}
	for i, j := 0, len(fwdHalf)-1; i < j; i, j = i+1, j-1 {
		fwdHalf[i], fwdHalf[j] = fwdHalf[j], fwdHalf[i]
	}

	var bwdHalf []uint32
	for node := meetNode; qs.PredBwd[node] != noNode; {
		eid := qs.PredBwd[node]
		bwdHalf = append(bwdHalf, eid)
		toIdx, _ := eng.Model.NodeIndex(eng.Model.Edges[eid].To)
		node = uint32(toIdx)
	}

	return append(fwdHalf, bwdHalf...)
}

func (eng *Engine) buildResult(edges []uint32, originSnap, destSnap mapmodel.SnapResult, meetCostFixed uint32) *Result {
	var geometry []orb.Point
	var roads []mapmodel.RoadID
	var distanceM float64

	geometry = append(geometry, originSnap.Point)
	// covers reports whether the route runs along a non-zero stretch of the
	// snapped road between the snap point and node.
	covers := func(snap mapmodel.SnapResult, node mapmodel.IntersectionID) bool {
		road, ok := eng.Model.RoadByID(snap.Road)
		return ok && ((node == road.Src && snap.Fraction > 0) || (node == road.Dst && snap.Fraction < 1))
	}
	if len(edges) == 0 || covers(originSnap, eng.Model.Edges[edges[0]].From) {
		roads = append(roads, originSnap.Road)
	}
	for _, eid := range edges {
		e := eng.Model.Edges[eid]
		road, ok := eng.Model.RoadByID(e.Road)
		if !ok {
			continue
		}
		pts := road.Points
		if !e.Forward {
			pts = reversePointsCopy(pts)
		}
		geometry = append(geometry, pts...)
		roads = append(roads, e.Road)
		distanceM += e.LengthM
	}
	if len(edges) == 0 || covers(destSnap, eng.Model.Edges[edges[len(edges)-1]].To) {
		if len(roads) == 0 || roads[len(roads)-1] != destSnap.Road {
			roads = append(roads, destSnap.Road)
		}
	}
	geometry = append(geometry, destSnap.Point)

	return &Result{
		Geometry:  geometry,
		DistanceM: distanceM,
		DurationS: float64(meetCostFixed) / costFixedScale,
		Roads:     roads,
	}
}

func reversePointsCopy(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
