package mapmodel

import (
	"strconv"
	"strings"

	"github.com/invopop/yaml"
	"github.com/paulmach/osm"

	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

// carHighways maps an OSM highway=* value to the RoadClass a car-routeable
// network assigns it. Values absent from this map are not car-accessible
// and are dropped during Build. Grounded on the teacher's carHighways table
// (pkg/osm/parser.go), extended with the link classes and living_street.
var carHighways = map[string]RoadClass{
	"motorway":       ClassMain,
	"motorway_link":  ClassMain,
	"trunk":          ClassMain,
	"trunk_link":     ClassMain,
	"primary":        ClassMain,
	"primary_link":   ClassMain,
	"secondary":      ClassMain,
	"secondary_link": ClassMain,
	"tertiary":       ClassResidential,
	"tertiary_link":  ClassResidential,
	"unclassified":   ClassResidential,
	"residential":    ClassResidential,
	"living_street":  ClassResidential,
	"service":        ClassService,
	"track":          ClassTrack,
	"road":           ClassResidential,
}

// defaultSpeedKPH is used when a way has no maxspeed tag, keyed by highway
// value rather than RoadClass so links keep their parent class's speed.
var defaultSpeedKPH = map[string]float64{
	"motorway":       100,
	"motorway_link":  60,
	"trunk":          80,
	"trunk_link":     50,
	"primary":        70,
	"primary_link":   50,
	"secondary":      60,
	"secondary_link": 40,
	"tertiary":       50,
	"tertiary_link":  40,
	"unclassified":   40,
	"residential":    30,
	"living_street":  15,
	"service":        15,
	"track":          20,
	"road":           30,
}

// ClassificationConfig overrides the default highway→class map and
// per-highway default speeds, read from a study-area-specific YAML file by
// cmd/preprocess (e.g. a region where "track" should route like a service
// road, or a country with different default rural speed limits).
type ClassificationConfig struct {
	HighwayClasses  map[string]string  `json:"highway_classes,omitempty"`
	DefaultSpeedKPH map[string]float64 `json:"default_speed_kph,omitempty"`
}

// LoadClassificationConfig parses a ClassificationConfig from YAML.
func LoadClassificationConfig(data []byte) (*ClassificationConfig, error) {
	var cfg ClassificationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ltnerr.Wrap(ltnerr.MalformedInput, "classification config is not valid YAML", err)
	}
	return &cfg, nil
}

func parseRoadClass(s string) (RoadClass, bool) {
	switch s {
	case "main":
		return ClassMain, true
	case "residential":
		return ClassResidential, true
	case "service":
		return ClassService, true
	case "track":
		return ClassTrack, true
	case "path":
		return ClassPath, true
	default:
		return 0, false
	}
}

// ApplyClassificationConfig merges cfg's overrides into the package-level
// classification tables Build consults. Process-global by design: it's
// meant to be called once at cmd/preprocess startup, before any Build call,
// not toggled per-request.
func ApplyClassificationConfig(cfg *ClassificationConfig) {
	if cfg == nil {
		return
	}
	for highway, className := range cfg.HighwayClasses {
		if class, ok := parseRoadClass(className); ok {
			carHighways[highway] = class
		}
	}
	for highway, speed := range cfg.DefaultSpeedKPH {
		defaultSpeedKPH[highway] = speed
	}
}

func isCarAccessible(tags osm.Tags) bool {
	if v := tags.Find("motor_vehicle"); v == "no" || v == "private" {
		return false
	}
	if v := tags.Find("access"); v == "no" || v == "private" {
		return false
	}
	hw := tags.Find("highway")
	_, ok := carHighways[hw]
	return ok
}

func classify(tags osm.Tags) (RoadClass, bool) {
	if !isCarAccessible(tags) {
		return 0, false
	}
	return carHighways[tags.Find("highway")], true
}

// maxSpeedKPH parses a maxspeed tag (plain km/h, "NN mph", or "walk" /
// "none"), falling back to a per-highway default.
func maxSpeedKPH(tags osm.Tags) float64 {
	hw := tags.Find("highway")
	fallback := defaultSpeedKPH[hw]
	if fallback == 0 {
		fallback = 30
	}

	v := strings.TrimSpace(tags.Find("maxspeed"))
	if v == "" {
		return fallback
	}
	if v == "walk" {
		return 6
	}
	if v == "none" {
		return 120
	}
	if strings.HasSuffix(v, "mph") {
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "mph")), 64)
		if err != nil {
			return fallback
		}
		return n * 1.60934
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

// onewayFlow parses oneway/junction tags into the Road's base travel flow
// and whether an explicit oneway tag was present (OnewaySigned).
func onewayFlow(tags osm.Tags) (flow TravelFlow, signed bool) {
	if tags.Find("junction") == "roundabout" {
		return FlowForwards, false
	}
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return FlowForwards, true
	case "-1", "reverse":
		return FlowBackwards, true
	case "no", "false", "0":
		return FlowBoth, false
	default:
		return FlowBoth, false
	}
}
