package mapmodel

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash"
)

// intersectionID derives a stable IntersectionID from a node's coordinates,
// rounded to ~1cm, so re-running Build on the same extract reproduces the
// same ids even if OSM node ids are renumbered upstream between extracts.
func intersectionID(lon, lat float64) IntersectionID {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(roundCoord(lon)))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(roundCoord(lat)))
	return IntersectionID(xxhash.Sum64(buf[:]))
}

// roundCoord snaps a coordinate to ~1.1cm precision (7 decimal places) so
// float noise from reprojection doesn't perturb the hash.
func roundCoord(v float64) float64 {
	const scale = 1e7
	return math.Round(v*scale) / scale
}
