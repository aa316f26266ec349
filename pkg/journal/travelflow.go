package journal

import (
	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

// setFlowCmd installs a direction override, remembering whether the road
// already had one (had/prior) so Invert can restore exactly the prior state
// — including removing the RoadOverrides entry entirely when there wasn't
// one, the way setDiagonalFilterCmd/deleteDiagonalFilterCmd do.
type setFlowCmd struct {
	road  mapmodel.RoadID
	to    mapmodel.TravelFlow
	had   bool
	prior mapmodel.TravelFlow
}

func (c *setFlowCmd) Apply(layer *editlayer.EditLayer) {
	editlayer.SetFlowOverride(layer, c.road, c.to)
}

func (c *setFlowCmd) Invert() Command {
	if !c.had {
		return &clearFlowCmd{road: c.road, prior: c.to}
	}
	return &setFlowCmd{road: c.road, to: c.prior, had: true, prior: c.to}
}

// clearFlowCmd removes a road's direction override entirely, reverting it to
// Road.OrigFlow. It is setFlowCmd's inverse whenever the toggle it undoes
// was the road's first override.
type clearFlowCmd struct {
	road  mapmodel.RoadID
	prior mapmodel.TravelFlow
}

func (c *clearFlowCmd) Apply(layer *editlayer.EditLayer) {
	editlayer.ClearFlowOverride(layer, c.road)
}

func (c *clearFlowCmd) Invert() Command {
	return &setFlowCmd{road: c.road, to: c.prior, had: true, prior: c.prior}
}

// NewToggleTravelFlow implements toggleTravelFlow(road_id) (spec.md §4.5):
// forwards -> backwards -> both -> forwards, unless the road was originally
// one-way-signed in OSM, in which case it only ever cycles forwards <->
// backwards (a signed one-way street can't become legally bidirectional by
// editing a filter layer).
func NewToggleTravelFlow(model *mapmodel.MapModel, layer *editlayer.EditLayer, road mapmodel.RoadID) (Command, error) {
	r, ok := model.RoadByID(road)
	if !ok {
		return nil, notInteriorRoadErr(road)
	}
	current := layer.EffectiveFlow(r)
	next := nextFlow(current, r.OnewaySigned)
	override, hadEntry := layer.RoadOverrides[road]
	had := hadEntry && override.Flow != nil
	prior := mapmodel.FlowBoth
	if had {
		prior = *override.Flow
	}
	return &setFlowCmd{road: road, to: next, had: had, prior: prior}, nil
}

func nextFlow(current mapmodel.TravelFlow, onewaySigned bool) mapmodel.TravelFlow {
	if onewaySigned {
		if current == mapmodel.FlowForwards {
			return mapmodel.FlowBackwards
		}
		return mapmodel.FlowForwards
	}
	switch current {
	case mapmodel.FlowForwards:
		return mapmodel.FlowBackwards
	case mapmodel.FlowBackwards:
		return mapmodel.FlowBoth
	default:
		return mapmodel.FlowForwards
	}
}
