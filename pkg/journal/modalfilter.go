package journal

import (
	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

type addModalFilterCmd struct {
	road mapmodel.RoadID
	mf   editlayer.ModalFilter
}

func (c *addModalFilterCmd) Apply(layer *editlayer.EditLayer) {
	layer.ModalFilters[c.road] = c.mf
}

func (c *addModalFilterCmd) Invert() Command {
	return &deleteModalFilterCmd{road: c.road, prior: c.mf}
}

type deleteModalFilterCmd struct {
	road  mapmodel.RoadID
	prior editlayer.ModalFilter
}

func (c *deleteModalFilterCmd) Apply(layer *editlayer.EditLayer) {
	delete(layer.ModalFilters, c.road)
}

func (c *deleteModalFilterCmd) Invert() Command {
	return &addModalFilterCmd{road: c.road, mf: c.prior}
}

// NewAddModalFilter snaps point to the nearest interior road (within the
// model's snap cap) and builds a Command placing a filter there. Fails
// NoRoadNearby, NotInteriorRoad, or AlreadyFiltered per spec.md §4.5.
func NewAddModalFilter(model *mapmodel.MapModel, layer *editlayer.EditLayer, interior InteriorChecker, lon, lat float64, kind editlayer.FilterKind) (Command, error) {
	snap, err := model.Snap(lon, lat)
	if err != nil {
		return nil, err
	}
	if !interior.IsInteriorRoad(snap.Road) {
		return nil, ltnerr.New(ltnerr.NotInteriorRoad, "snapped road is outside the neighbourhood boundary")
	}
	if _, ok := layer.ModalFilters[snap.Road]; ok {
		return nil, ltnerr.New(ltnerr.AlreadyFiltered, "road already carries a modal filter")
	}
	return &addModalFilterCmd{
		road: snap.Road,
		mf:   editlayer.ModalFilter{Road: snap.Road, Fraction: snap.Fraction, Kind: kind},
	}, nil
}

// NewDeleteModalFilter builds a Command removing the filter on road. Fails
// if no filter is present, so the inverse always has something to restore.
func NewDeleteModalFilter(layer *editlayer.EditLayer, road mapmodel.RoadID) (Command, error) {
	mf, ok := layer.ModalFilters[road]
	if !ok {
		return nil, ltnerr.New(ltnerr.NotInteriorRoad, "road has no modal filter to delete")
	}
	return &deleteModalFilterCmd{road: road, prior: mf}, nil
}

// NewAddManyModalFilters is the addManyModalFilters(line, kind) operation
// (spec.md §4.5): linePts is a user-drawn polyline; every interior,
// not-yet-filtered road whose own polyline crosses it gets a filter at the
// first crossing point. Building every per-road command before returning
// the compound batchCommand is what makes this atomic — Journal.Do either
// applies the whole batch or (on error here) applies nothing.
func NewAddManyModalFilters(model *mapmodel.MapModel, layer *editlayer.EditLayer, interior InteriorChecker, linePts []orb.Point, kind editlayer.FilterKind) (Command, error) {
	var cmds []Command
	for i := range model.Roads {
		road := &model.Roads[i]
		if !interior.IsInteriorRoad(road.ID) {
			continue
		}
		if _, ok := layer.ModalFilters[road.ID]; ok {
			continue
		}
		frac, crossed := firstCrossing(linePts, road.Points)
		if !crossed {
			continue
		}
		cmds = append(cmds, &addModalFilterCmd{
			road: road.ID,
			mf:   editlayer.ModalFilter{Road: road.ID, Fraction: frac, Kind: kind},
		})
	}
	if len(cmds) == 0 {
		return nil, ltnerr.New(ltnerr.NoRoadNearby, "drawn line crosses no interior road")
	}
	return &batchCommand{cmds: cmds}, nil
}
