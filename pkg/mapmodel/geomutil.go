package mapmodel

import (
	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/geo"
)

// polylineLength sums Haversine distance between consecutive points, in meters.
func polylineLength(pts []orb.Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += geo.Haversine(pts[i-1][1], pts[i-1][0], pts[i][1], pts[i][0])
	}
	return total
}

// pointAtFraction walks the polyline by arc length and returns the point at
// the given fraction (0 = start, 1 = end) of its total length.
func pointAtFraction(pts []orb.Point, frac float64) orb.Point {
	if len(pts) == 0 {
		return orb.Point{}
	}
	if len(pts) == 1 || frac <= 0 {
		return pts[0]
	}
	if frac >= 1 {
		return pts[len(pts)-1]
	}

	target := polylineLength(pts) * frac
	walked := 0.0
	for i := 1; i < len(pts); i++ {
		seg := geo.Haversine(pts[i-1][1], pts[i-1][0], pts[i][1], pts[i][0])
		if walked+seg >= target {
			if seg == 0 {
				return pts[i-1]
			}
			t := (target - walked) / seg
			return orb.Point{
				pts[i-1][0] + t*(pts[i][0]-pts[i-1][0]),
				pts[i-1][1] + t*(pts[i][1]-pts[i-1][1]),
			}
		}
		walked += seg
	}
	return pts[len(pts)-1]
}

// bearingAt returns the compass bearing leaving the intersection at pts[0]
// towards pts[1] — used to sort an intersection's incident roads clockwise.
func bearingAt(pts []orb.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	return geo.Bearing(pts[0][1], pts[0][0], pts[1][1], pts[1][0])
}
