package journal

import "github.com/azybler/ltn-engine/pkg/mapmodel"

// InteriorChecker reports whether a Road sits inside the active
// neighbourhood boundary. Journal commands that spec.md §4.5 restricts to
// interior roads (modal filters, diagonal filters) take one of these
// rather than importing pkg/neighbourhood directly, so the edit history
// doesn't need to know how interior-ness is computed.
type InteriorChecker interface {
	IsInteriorRoad(id mapmodel.RoadID) bool
}

// allInterior treats every road as interior; used where no boundary has
// been drawn yet (editing is unrestricted until a neighbourhood exists).
type allInterior struct{}

func (allInterior) IsInteriorRoad(mapmodel.RoadID) bool { return true }

// AllInterior is the default InteriorChecker for a project with no
// boundary set.
var AllInterior InteriorChecker = allInterior{}
