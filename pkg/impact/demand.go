// Package impact drives the Router over an OD demand model to compare
// before/after-edit route metrics, implementing spec §4.6. No teacher
// equivalent exists for this component — the teacher is a pure routing
// engine with no notion of a demand model — so the shapes here are grounded
// directly on spec.md §3/§6/§4.6's wording.
package impact

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

// Zone is one demand-model catchment area (spec §3's DemandModel, §6's
// MultiPolygon feature format). CountsFrom and CountsTo are interpreted as
// a row/column pair of an implicit N x N origin-destination matrix: for
// zone i, CountsTo[j] is the demand travelling from zone i to zone j, and
// CountsFrom[j] the demand arriving at zone i from zone j (its transpose,
// carried for convenience rather than recomputed).
type Zone struct {
	Name       string
	Geometry   orb.MultiPolygon
	CountsFrom []float64
	CountsTo   []float64
}

// DemandModel is a parsed collection of zones, indexed 0..N-1 in feature
// order; CountsFrom/CountsTo entries refer to this index (spec §6).
type DemandModel struct {
	Zones []Zone
}

// Centroid returns a deterministic representative point for the zone: the
// plain vertex-average of its first polygon's outer ring. Spec §4.6 allows
// "centroids or a deterministic sampling" without mandating area-weighting,
// so the cheaper vertex-mean is used rather than pulling in a full
// polygon-centroid routine for a one-point-per-zone sample.
func (z Zone) Centroid() orb.Point {
	if len(z.Geometry) == 0 || len(z.Geometry[0]) == 0 {
		return orb.Point{}
	}
	ring := z.Geometry[0][0]
	if len(ring) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range ring {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(ring))
	return orb.Point{sx / n, sy / n}
}

// ParseDemandModel reads the GeoJSON FeatureCollection format spec §6
// defines: one feature per zone, each a MultiPolygon (or bare Polygon,
// normalized to a single-polygon MultiPolygon) carrying `counts_from`,
// `counts_to`, and `name` properties, all counts_from/counts_to arrays the
// same length N as the feature count.
func ParseDemandModel(data []byte) (*DemandModel, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, ltnerr.Wrap(ltnerr.MalformedInput, "demand model is not a valid GeoJSON FeatureCollection", err)
	}

	n := len(fc.Features)
	zones := make([]Zone, n)
	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.MultiPolygon:
			mp = g
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		default:
			return nil, ltnerr.New(ltnerr.MalformedInput, "demand zone geometry must be a Polygon or MultiPolygon")
		}

		name, _ := f.Properties["name"].(string)
		countsFrom, err := floatSlice(f.Properties["counts_from"])
		if err != nil {
			return nil, ltnerr.Wrap(ltnerr.MalformedInput, "counts_from", err)
		}
		countsTo, err := floatSlice(f.Properties["counts_to"])
		if err != nil {
			return nil, ltnerr.Wrap(ltnerr.MalformedInput, "counts_to", err)
		}
		if len(countsFrom) != n || len(countsTo) != n {
			return nil, ltnerr.New(ltnerr.MalformedInput, "counts_from/counts_to must have one entry per zone")
		}

		zones[i] = Zone{Name: name, Geometry: mp, CountsFrom: countsFrom, CountsTo: countsTo}
	}

	return &DemandModel{Zones: zones}, nil
}

// floatSlice coerces a decoded JSON property (a []interface{} of float64s,
// per encoding/json's default numeric decoding) into a []float64.
func floatSlice(v interface{}) ([]float64, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, ltnerr.New(ltnerr.MalformedInput, "expected a JSON array of numbers")
	}
	out := make([]float64, len(raw))
	for i, e := range raw {
		f, ok := e.(float64)
		if !ok {
			return nil, ltnerr.New(ltnerr.MalformedInput, "expected a JSON array of numbers")
		}
		out[i] = f
	}
	return out, nil
}
