package journal

import (
	"slices"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

type setDiagonalFilterCmd struct {
	at    mapmodel.IntersectionID
	df    editlayer.DiagonalFilter
	had   bool
	prior editlayer.DiagonalFilter
}

func (c *setDiagonalFilterCmd) Apply(layer *editlayer.EditLayer) {
	layer.DiagonalFilters[c.at] = c.df
}

func (c *setDiagonalFilterCmd) Invert() Command {
	if !c.had {
		return &deleteDiagonalFilterCmd{at: c.at, prior: c.df}
	}
	return &setDiagonalFilterCmd{at: c.at, df: c.prior, had: true, prior: c.df}
}

type deleteDiagonalFilterCmd struct {
	at    mapmodel.IntersectionID
	prior editlayer.DiagonalFilter
}

func (c *deleteDiagonalFilterCmd) Apply(layer *editlayer.EditLayer) {
	delete(layer.DiagonalFilters, c.at)
}

func (c *deleteDiagonalFilterCmd) Invert() Command {
	return &setDiagonalFilterCmd{at: c.at, df: c.prior, had: true, prior: c.prior}
}

// diagonalPartitions enumerates the ways a 4-way intersection's clockwise-
// ordered incident roads can be split into two opposite-arm pairs: indices
// {0,2}|{1,3} (straight across), {0,1}|{2,3}, and {0,3}|{1,2} — the three
// ways to partition 4 items into two pairs. rotateDiagonalFilter walks
// this fixed enumeration in order, wrapping around.
func diagonalPartitions(incident []mapmodel.RoadID) [][2][2]mapmodel.RoadID {
	if len(incident) != 4 {
		return nil
	}
	a, b, c, d := incident[0], incident[1], incident[2], incident[3]
	return [][2][2]mapmodel.RoadID{
		{{a, c}, {b, d}},
		{{a, b}, {c, d}},
		{{a, d}, {b, c}},
	}
}

func blocksForPartition(partition [2][2]mapmodel.RoadID) []editlayer.DiagonalBlock {
	group := partition[0]
	other := partition[1]
	var blocks []editlayer.DiagonalBlock
	for _, from := range group {
		for _, to := range other {
			blocks = append(blocks, editlayer.DiagonalBlock{From: from, To: to}, editlayer.DiagonalBlock{From: to, To: from})
		}
	}
	return blocks
}

// NewAddDiagonalFilter implements addDiagonalFilter(intersection_id): the
// canonical (first) partition pairs opposite arms by clockwise order.
// Fails InvalidIntersection unless the intersection has exactly 4 incident
// roads, since a diagonal filter only makes sense splitting a 4-way.
func NewAddDiagonalFilter(model *mapmodel.MapModel, at mapmodel.IntersectionID) (Command, error) {
	inter, ok := model.IntersectionByID(at)
	if !ok {
		return nil, ltnerr.New(ltnerr.InvalidIntersection, "unknown intersection id")
	}
	partitions := diagonalPartitions(inter.Incident)
	if partitions == nil {
		return nil, ltnerr.New(ltnerr.InvalidIntersection, "diagonal filters require a 4-way intersection")
	}
	return &setDiagonalFilterCmd{
		at: at,
		df: editlayer.DiagonalFilter{At: at, Blocks: blocksForPartition(partitions[0])},
	}, nil
}

// NewRotateDiagonalFilter implements rotateDiagonalFilter(intersection_id):
// advance to the next partition in the fixed enumeration, wrapping around.
func NewRotateDiagonalFilter(model *mapmodel.MapModel, layer *editlayer.EditLayer, at mapmodel.IntersectionID) (Command, error) {
	inter, ok := model.IntersectionByID(at)
	if !ok {
		return nil, ltnerr.New(ltnerr.InvalidIntersection, "unknown intersection id")
	}
	partitions := diagonalPartitions(inter.Incident)
	if partitions == nil {
		return nil, ltnerr.New(ltnerr.InvalidIntersection, "diagonal filters require a 4-way intersection")
	}
	current, had := layer.DiagonalFilters[at]
	currentIdx := 0
	if had {
		currentIdx = matchPartition(partitions, current.Blocks)
	}
	next := partitions[(currentIdx+1)%len(partitions)]
	return &setDiagonalFilterCmd{
		at:    at,
		df:    editlayer.DiagonalFilter{At: at, Blocks: blocksForPartition(next)},
		had:   had,
		prior: current,
	}, nil
}

func matchPartition(partitions [][2][2]mapmodel.RoadID, blocks []editlayer.DiagonalBlock) int {
	for i, p := range partitions {
		if slices.Equal(blocksForPartition(p), blocks) {
			return i
		}
	}
	return -1
}

// NewDeleteDiagonalFilter implements deleteDiagonalFilter(intersection_id).
func NewDeleteDiagonalFilter(layer *editlayer.EditLayer, at mapmodel.IntersectionID) (Command, error) {
	df, ok := layer.DiagonalFilters[at]
	if !ok {
		return nil, ltnerr.New(ltnerr.InvalidIntersection, "intersection has no diagonal filter to delete")
	}
	return &deleteDiagonalFilterCmd{at: at, prior: df}, nil
}
