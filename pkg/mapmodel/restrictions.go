package mapmodel

import (
	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/osmloader"
)

// attachRestrictions parses `type=restriction` relations into ForbiddenTurn
// triples and attaches each to the Intersection named by its via member.
// Only simple node-via restrictions are supported (no via-way chains);
// unsupported or malformed relations are skipped rather than failing the
// whole build, since a handful of bad restrictions in an extract shouldn't
// block routing.
func attachRestrictions(m *MapModel, relations []osmloader.RelationRecord, nodeToIntersection map[osm.NodeID]IntersectionID) error {
	for _, rel := range relations {
		restriction := rel.Tags.Find("restriction")
		if restriction == "" || !isNoTurnRestriction(restriction) {
			continue
		}

		var viaNode osm.NodeID
		var haveVia bool
		var fromWay, toWay osm.WayID
		var haveFrom, haveTo bool
		for _, mem := range rel.Members {
			switch {
			case mem.Role == "via" && mem.Type == osm.TypeNode:
				viaNode = osm.NodeID(mem.Ref)
				haveVia = true
			case mem.Role == "from" && mem.Type == osm.TypeWay:
				fromWay = osm.WayID(mem.Ref)
				haveFrom = true
			case mem.Role == "to" && mem.Type == osm.TypeWay:
				toWay = osm.WayID(mem.Ref)
				haveTo = true
			}
		}
		if !haveVia || !haveFrom || !haveTo {
			continue // via-way restriction or malformed relation; unsupported
		}

		viaID, ok := nodeToIntersection[viaNode]
		if !ok {
			continue
		}
		inter, ok := m.IntersectionByID(viaID)
		if !ok {
			continue
		}

		fromRoad, okFrom := roadTouchingWay(m, inter.Incident, fromWay)
		toRoad, okTo := roadTouchingWay(m, inter.Incident, toWay)
		if !okFrom || !okTo {
			continue
		}

		turn := ForbiddenTurn{From: fromRoad, Via: viaID, To: toRoad}
		idx := m.intersectionIndex[viaID]
		m.Intersections[idx].Turns = append(m.Intersections[idx].Turns, turn)
	}

	return nil
}

func isNoTurnRestriction(v string) bool {
	switch v {
	case "no_left_turn", "no_right_turn", "no_straight_on", "no_u_turn", "no_entry", "no_exit":
		return true
	default:
		return false
	}
}

// roadTouchingWay finds the incident road whose SourceWays contains wayID.
// Degree-2 merging can fuse several OSM ways into one Road, so this checks
// membership rather than equality.
func roadTouchingWay(m *MapModel, incident []RoadID, wayID osm.WayID) (RoadID, bool) {
	for _, rid := range incident {
		road, ok := m.RoadByID(rid)
		if !ok {
			continue
		}
		for _, w := range road.SourceWays {
			if w == wayID {
				return rid, true
			}
		}
	}
	return 0, false
}

// indexForbiddenTransitions converts each Intersection's ForbiddenTurn list
// (road-level) into the edge-level (edgeIn, edgeOut) pairs the router masks
// during relaxation, since an intersection may have both a forward and a
// backward Edge riding the same Road.
func indexForbiddenTransitions(m *MapModel) {
	for i := range m.Intersections {
		inter := &m.Intersections[i]
		if len(inter.Turns) == 0 {
			continue
		}
		edgesIn := edgesEndingAt(m, inter.ID)
		edgesOut := m.EdgesFrom(inter.ID)
		for _, turn := range inter.Turns {
			for _, ei := range edgesIn {
				if m.Edges[ei].Road != turn.From {
					continue
				}
				for _, eo := range edgesOut {
					if m.Edges[eo].Road != turn.To {
						continue
					}
					m.forbidden[packTurnKey(ei, eo)] = true
				}
			}
		}
	}
}

func edgesEndingAt(m *MapModel, id IntersectionID) []uint32 {
	var out []uint32
	for _, e := range m.Edges {
		if e.To == id {
			out = append(out, e.ID)
		}
	}
	return out
}
