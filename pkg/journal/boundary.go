package journal

import (
	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

type setBoundaryCmd struct {
	next  *editlayer.Boundary
	prior *editlayer.Boundary
}

func (c *setBoundaryCmd) Apply(layer *editlayer.EditLayer) {
	layer.Boundary = c.next
}

func (c *setBoundaryCmd) Invert() Command {
	return &setBoundaryCmd{next: c.prior, prior: c.next}
}

// NewSetNeighbourhoodBoundary implements setNeighbourhoodBoundary, journalled
// so drawing (or replacing) a boundary can be undone. waypoints may be nil;
// callers that need to back-fill from the ring (spec §9 open question #1)
// should do so before calling this constructor and set backfilled=true.
func NewSetNeighbourhoodBoundary(layer *editlayer.EditLayer, name string, polygon [][2]float64, waypoints []editlayer.Waypoint, backfilled bool) Command {
	return &setBoundaryCmd{
		next: &editlayer.Boundary{
			Name:                name,
			Polygon:             polygon,
			Waypoints:           waypoints,
			WaypointsBackfilled: backfilled,
		},
		prior: layer.Boundary,
	}
}

// NewRenameNeighbourhoodBoundary implements renameNeighbourhoodBoundary.
func NewRenameNeighbourhoodBoundary(layer *editlayer.EditLayer, name string) (Command, error) {
	if layer.Boundary == nil {
		return nil, ltnerr.New(ltnerr.OutOfBounds, "no neighbourhood boundary to rename")
	}
	renamed := *layer.Boundary
	renamed.Name = name
	return &setBoundaryCmd{next: &renamed, prior: layer.Boundary}, nil
}

// NewDeleteNeighbourhoodBoundary implements deleteNeighbourhoodBoundary.
func NewDeleteNeighbourhoodBoundary(layer *editlayer.EditLayer) (Command, error) {
	if layer.Boundary == nil {
		return nil, ltnerr.New(ltnerr.OutOfBounds, "no neighbourhood boundary to delete")
	}
	return &setBoundaryCmd{next: nil, prior: layer.Boundary}, nil
}
