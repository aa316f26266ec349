package neighbourhood

import (
	"sort"

	"github.com/paulmach/orb/geo"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

// Options bounds the per-pair shortcut search (spec.md §9).
type Options struct {
	IncludePerimeter   bool
	MaxShortcutPaths   int
	MaxShortcutPathLen int
}

func (o Options) normalize() Options {
	if o.MaxShortcutPaths <= 0 {
		o.MaxShortcutPaths = DefaultMaxShortcutPaths
	}
	if o.MaxShortcutPathLen <= 0 {
		o.MaxShortcutPathLen = DefaultMaxShortcutPathLen
	}
	return o
}

// Snapshot is the full derived Neighbourhood view (spec.md §3/§4.4): a
// pure function of (MapModel, boundary, EditLayer snapshot, flags).
type Snapshot struct {
	Boundary            *editlayer.Boundary
	InteriorRoads       map[mapmodel.RoadID]bool
	BorderIntersections []mapmodel.IntersectionID
	Cells               []Cell
	ShortcutCount       map[mapmodel.RoadID]int
	AreaKM2             float64
}

// IsInteriorRoad implements journal.InteriorChecker so a *Snapshot can be
// passed straight to journal command builders without pkg/journal
// depending on pkg/neighbourhood.
func (s *Snapshot) IsInteriorRoad(id mapmodel.RoadID) bool {
	return s.InteriorRoads[id]
}

// Compute builds a fresh Snapshot. Nil boundary yields an empty
// Snapshot (no roads are interior to an undrawn neighbourhood).
func Compute(model *mapmodel.MapModel, layer *editlayer.EditLayer, opts Options) *Snapshot {
	opts = opts.normalize()

	if layer.Boundary == nil {
		return &Snapshot{InteriorRoads: map[mapmodel.RoadID]bool{}, ShortcutCount: map[mapmodel.RoadID]int{}}
	}

	interior := classifyRoads(model, layer.Boundary, opts.IncludePerimeter)
	borders := borderIntersections(model, interior)
	sort.Slice(borders, func(i, j int) bool { return borders[i] < borders[j] })
	cells := buildCells(model, layer, interior, borders)
	shortcuts := computeShortcuts(model, layer, interior, borders, opts.MaxShortcutPaths, opts.MaxShortcutPathLen)

	return &Snapshot{
		Boundary:            layer.Boundary,
		InteriorRoads:       interior,
		BorderIntersections: borders,
		Cells:               cells,
		ShortcutCount:       shortcuts,
		AreaKM2:             boundaryAreaKM2(layer.Boundary),
	}
}

// boundaryAreaKM2 implements spec.md §4.4.6.
func boundaryAreaKM2(b *editlayer.Boundary) float64 {
	poly := boundaryPolygon(b)
	return geo.Area(poly) / 1_000_000
}
