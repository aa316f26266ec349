package journal

import (
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
)

func notInteriorRoadErr(road mapmodel.RoadID) error {
	return ltnerr.New(ltnerr.NotInteriorRoad, "road id does not exist in the map model")
}
