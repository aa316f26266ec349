package mapmodel

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		tags      osm.Tags
		wantClass RoadClass
		wantOK    bool
	}{
		{"primary road", osm.Tags{{Key: "highway", Value: "primary"}}, ClassMain, true},
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, ClassResidential, true},
		{"service road", osm.Tags{{Key: "highway", Value: "service"}}, ClassService, true},
		{"footway is not car-accessible", osm.Tags{{Key: "highway", Value: "footway"}}, 0, false},
		{"private residential", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "access", Value: "private"}}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, ok := classify(tt.tags)
			if ok != tt.wantOK {
				t.Fatalf("classify() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && class != tt.wantClass {
				t.Errorf("classify() class = %v, want %v", class, tt.wantClass)
			}
		})
	}
}

func TestOnewayFlow(t *testing.T) {
	tests := []struct {
		name       string
		tags       osm.Tags
		wantFlow   TravelFlow
		wantSigned bool
	}{
		{"no tag", osm.Tags{}, FlowBoth, false},
		{"oneway yes", osm.Tags{{Key: "oneway", Value: "yes"}}, FlowForwards, true},
		{"oneway -1", osm.Tags{{Key: "oneway", Value: "-1"}}, FlowBackwards, true},
		{"roundabout", osm.Tags{{Key: "junction", Value: "roundabout"}}, FlowForwards, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, signed := onewayFlow(tt.tags)
			if flow != tt.wantFlow || signed != tt.wantSigned {
				t.Errorf("onewayFlow() = (%v, %v), want (%v, %v)", flow, signed, tt.wantFlow, tt.wantSigned)
			}
		})
	}
}

func TestApplyClassificationConfig(t *testing.T) {
	origClass := carHighways["track"]
	origSpeed := defaultSpeedKPH["track"]
	t.Cleanup(func() {
		carHighways["track"] = origClass
		defaultSpeedKPH["track"] = origSpeed
	})

	cfg, err := LoadClassificationConfig([]byte("highway_classes:\n  track: residential\ndefault_speed_kph:\n  track: 25\n"))
	if err != nil {
		t.Fatalf("LoadClassificationConfig() error = %v", err)
	}
	ApplyClassificationConfig(cfg)

	class, ok := classify(osm.Tags{{Key: "highway", Value: "track"}})
	if !ok || class != ClassResidential {
		t.Errorf("classify() after override = (%v, %v), want (%v, true)", class, ok, ClassResidential)
	}
	if got := maxSpeedKPH(osm.Tags{{Key: "highway", Value: "track"}}); got != 25 {
		t.Errorf("maxSpeedKPH() after override = %v, want 25", got)
	}
}

func TestMaxSpeedKPH(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want float64
	}{
		{"plain kph", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "maxspeed", Value: "30"}}, 30},
		{"mph", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "maxspeed", Value: "20 mph"}}, 20 * 1.60934},
		{"missing falls back by highway value", osm.Tags{{Key: "highway", Value: "motorway"}}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxSpeedKPH(tt.tags); got != tt.want {
				t.Errorf("maxSpeedKPH() = %v, want %v", got, tt.want)
			}
		})
	}
}
