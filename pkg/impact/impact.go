package impact

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/routing"
)

// DefaultImpactGridSize is the side length (points per axis) of the grid
// impactToOneDestination samples over the boundary's bbox when no override
// is given — a configuration constant per spec §9 rather than a literal
// buried in the sampling loop.
const DefaultImpactGridSize = 10

// EdgeFlow tallies how many OD trips a Road carries before and after an
// edit, spec §4.6's first aggregation: "a feature per edge with before,
// after, id".
type EdgeFlow struct {
	Road   mapmodel.RoadID
	Before float64
	After  float64
}

// OriginImpact is one sampled origin's before/after route metrics toward a
// fixed destination, spec §4.6's impactToOneDestination per-point fields.
// DistanceAfterM/TimeAfterS are +Inf when the destination became
// unreachable after edits — never a fatal error (spec §4.6's failure
// semantics).
type OriginImpact struct {
	OriginLon, OriginLat float64
	DistanceBeforeM      float64
	DistanceAfterM       float64
	TimeBeforeS          float64
	TimeAfterS           float64
}

// DestinationImpact is impactToOneDestination's full result.
type DestinationImpact struct {
	Origins          []OriginImpact
	HighestTimeRatio float64 // max(time_after/time_before) over points with time_before > 0
}

// Analyzer drives a routing.Engine over a DemandModel or a sampled grid to
// compare before/after-edit route metrics (spec §4.6). Grounded on no
// teacher file directly; it's a thin consumer of pkg/routing.Engine and
// pkg/mapmodel.MapModel, the composition spec.md §2's data-flow diagram
// calls for ("Impact Analyzer drives the Router over an OD demand").
type Analyzer struct {
	Model  *mapmodel.MapModel
	Router *routing.Engine
}

// NewAnalyzer builds an Analyzer with its own Router over model.
func NewAnalyzer(model *mapmodel.MapModel) *Analyzer {
	return &Analyzer{Model: model, Router: routing.NewEngine(model)}
}

// AggregateFlow implements spec §4.6's first bullet: for every non-zero OD
// pair (i, j), route a representative origin/destination pair before and
// after edits at penalty 1, and accumulate per-edge (per-Road) flow counts
// on both sides. OD pairs whose before-route is unroutable are skipped —
// there is nothing meaningful to attribute flow to — matching the "never
// fatal" failure policy of spec §4.6.
func (a *Analyzer) AggregateFlow(demand *DemandModel, before, after *editlayer.EditLayer) map[mapmodel.RoadID]*EdgeFlow {
	flows := make(map[mapmodel.RoadID]*EdgeFlow)
	opts := routing.Options{}

	for i, origin := range demand.Zones {
		for j, dest := range demand.Zones {
			if i == j {
				continue
			}
			count := origin.CountsTo[j]
			if count == 0 {
				continue
			}

			beforeRes, afterRes, err := a.Router.CompareRoute(origin.Centroid(), dest.Centroid(), before, after, opts)
			if err != nil {
				continue
			}

			for _, rid := range beforeRes.Roads {
				flow := flows[rid]
				if flow == nil {
					flow = &EdgeFlow{Road: rid}
					flows[rid] = flow
				}
				flow.Before += count
			}
			if afterRes != nil {
				for _, rid := range afterRes.Roads {
					flow := flows[rid]
					if flow == nil {
						flow = &EdgeFlow{Road: rid}
						flows[rid] = flow
					}
					flow.After += count
				}
			}
		}
	}

	return flows
}

// ImpactToDestination implements spec §4.6's second bullet: fix a
// destination, sample gridSize x gridSize origins across the boundary's
// bounding box, and report before/after route metrics for each alongside
// the global highest_time_ratio. gridSize <= 0 uses DefaultImpactGridSize.
func (a *Analyzer) ImpactToDestination(boundary *editlayer.Boundary, dest orb.Point, before, after *editlayer.EditLayer, gridSize int) *DestinationImpact {
	if gridSize <= 0 {
		gridSize = DefaultImpactGridSize
	}
	opts := routing.Options{}

	result := &DestinationImpact{}
	highest := 0.0

	for _, origin := range samplingGrid(boundaryBound(boundary), gridSize) {
		beforeRes, afterRes, err := a.Router.CompareRoute(origin, dest, before, after, opts)
		if err != nil {
			continue
		}

		oi := OriginImpact{
			OriginLon:       origin[0],
			OriginLat:       origin[1],
			DistanceBeforeM: beforeRes.DistanceM,
			TimeBeforeS:     beforeRes.DurationS,
		}
		if afterRes != nil {
			oi.DistanceAfterM = afterRes.DistanceM
			oi.TimeAfterS = afterRes.DurationS
		} else {
			oi.DistanceAfterM = math.Inf(1)
			oi.TimeAfterS = math.Inf(1)
		}

		if oi.TimeBeforeS > 0 {
			ratio := oi.TimeAfterS / oi.TimeBeforeS
			if ratio > highest {
				highest = ratio
			}
		}

		result.Origins = append(result.Origins, oi)
	}

	result.HighestTimeRatio = highest
	return result
}

// boundaryBound converts a Boundary's outer ring into an orb.Bound.
func boundaryBound(b *editlayer.Boundary) orb.Bound {
	bound := orb.Bound{Min: orb.Point{180, 90}, Max: orb.Point{-180, -90}}
	for _, p := range b.Polygon {
		bound = bound.Extend(orb.Point{p[0], p[1]})
	}
	return bound
}

// samplingGrid lays out an n x n grid of points spanning bound, inclusive
// of both edges, for impactToOneDestination's bounded origin sample.
func samplingGrid(bound orb.Bound, n int) []orb.Point {
	if n < 2 {
		n = 2
	}
	points := make([]orb.Point, 0, n*n)
	lonStep := (bound.Max[0] - bound.Min[0]) / float64(n-1)
	latStep := (bound.Max[1] - bound.Min[1]) / float64(n-1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			points = append(points, orb.Point{
				bound.Min[0] + float64(i)*lonStep,
				bound.Min[1] + float64(j)*latStep,
			})
		}
	}
	return points
}
