package neighbourhood

import (
	"sort"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/graph"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

// Cell is one maximal connected component of the interior-road adjacency
// graph (spec.md §4.4.3): two interior roads are adjacent iff they share
// an intersection and the shared-intersection transition between them is
// motor-legal under the current EditLayer.
type Cell struct {
	Roads        []mapmodel.RoadID
	Color        int // smallest-available-nonnegative-integer coloring; meaningless if Disconnected
	Disconnected bool
}

// motorLegalTransition reports whether a car can pass directly between
// roads a and b at intersection `at` under the current edits: neither
// road carries a modal filter, and no diagonal filter at `at` forbids the
// movement in either direction.
func motorLegalTransition(layer *editlayer.EditLayer, at mapmodel.IntersectionID, a, b mapmodel.RoadID) bool {
	if layer.IsFiltered(a) || layer.IsFiltered(b) {
		return false
	}
	if layer.IsDiagonalBlocked(at, a, b) || layer.IsDiagonalBlocked(at, b, a) {
		return false
	}
	return true
}

// buildCells runs the interior-road adjacency union-find (spec.md
// §4.4.3), then colors each non-disconnected component (spec.md §4.4.4).
// A cell is disconnected iff none of its roads reach a border
// intersection through a motor-legal transition off that road.
func buildCells(model *mapmodel.MapModel, layer *editlayer.EditLayer, interior map[mapmodel.RoadID]bool, borders []mapmodel.IntersectionID) []Cell {
	roadList := make([]mapmodel.RoadID, 0, len(interior))
	for rid := range interior {
		roadList = append(roadList, rid)
	}
	sort.Slice(roadList, func(i, j int) bool { return roadList[i] < roadList[j] })

	indexOf := make(map[mapmodel.RoadID]uint32, len(roadList))
	for i, rid := range roadList {
		indexOf[rid] = uint32(i)
	}

	uf := graph.NewUnionFind(uint32(len(roadList)))
	for i := range model.Intersections {
		inter := &model.Intersections[i]
		for x := 0; x < len(inter.Incident); x++ {
			ra := inter.Incident[x]
			if !interior[ra] {
				continue
			}
			for y := x + 1; y < len(inter.Incident); y++ {
				rb := inter.Incident[y]
				if !interior[rb] {
					continue
				}
				if motorLegalTransition(layer, inter.ID, ra, rb) {
					uf.Union(indexOf[ra], indexOf[rb])
				}
			}
		}
	}

	borderSet := make(map[mapmodel.IntersectionID]bool, len(borders))
	for _, b := range borders {
		borderSet[b] = true
	}
	roadAtBorder := make(map[mapmodel.RoadID]bool)
	for i := range model.Intersections {
		inter := &model.Intersections[i]
		if !borderSet[inter.ID] {
			continue
		}
		for _, rid := range inter.Incident {
			if interior[rid] && !layer.IsFiltered(rid) {
				roadAtBorder[rid] = true
			}
		}
	}

	rootRoads := make(map[uint32][]mapmodel.RoadID)
	for i, rid := range roadList {
		root := uf.Find(uint32(i))
		rootRoads[root] = append(rootRoads[root], rid)
	}

	roots := make([]uint32, 0, len(rootRoads))
	for root := range rootRoads {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	cells := make([]Cell, 0, len(roots))
	cellIndexByRoot := make(map[uint32]int, len(roots))
	for _, root := range roots {
		roads := rootRoads[root]
		sort.Slice(roads, func(i, j int) bool { return roads[i] < roads[j] })
		disconnected := true
		for _, rid := range roads {
			if roadAtBorder[rid] {
				disconnected = false
				break
			}
		}
		cellIndexByRoot[root] = len(cells)
		cells = append(cells, Cell{Roads: roads, Disconnected: disconnected})
	}

	colorCells(model, interior, indexOf, uf, cellIndexByRoot, cells)
	return cells
}

// colorCells implements the greedy smallest-available-nonnegative-integer
// coloring (spec.md §4.4.4): two cells are adjacent (for coloring
// purposes only, independent of motor-legality) if they share any
// intersection at all.
func colorCells(model *mapmodel.MapModel, interior map[mapmodel.RoadID]bool, indexOf map[mapmodel.RoadID]uint32, uf *graph.UnionFind, cellIndexByRoot map[uint32]int, cells []Cell) {
	adjacency := make([]map[int]bool, len(cells))
	for i := range adjacency {
		adjacency[i] = make(map[int]bool)
	}

	for i := range model.Intersections {
		inter := &model.Intersections[i]
		seen := make(map[int]bool)
		for _, rid := range inter.Incident {
			if !interior[rid] {
				continue
			}
			cellIdx := cellIndexByRoot[uf.Find(indexOf[rid])]
			seen[cellIdx] = true
		}
		for a := range seen {
			for b := range seen {
				if a != b {
					adjacency[a][b] = true
				}
			}
		}
	}

	for i := range cells {
		if cells[i].Disconnected {
			cells[i].Color = -1
			continue
		}
		used := make(map[int]bool)
		for neighbor := range adjacency[i] {
			// Only earlier-indexed neighbors have a final Color assigned
			// yet; a later one still holds its zero value, which would
			// be misread as "color 0 taken" rather than "not colored".
			if neighbor < i && !cells[neighbor].Disconnected {
				used[cells[neighbor].Color] = true
			}
		}
		color := 0
		for used[color] {
			color++
		}
		cells[i].Color = color
	}
}
