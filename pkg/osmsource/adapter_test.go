package osmsource

import (
	"testing"

	"github.com/paulmach/osm"

	"mapconsolidate/pkg/containers"
)

func TestIsCarAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, true},
		{"footway (not car accessible)", osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"private access", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "access", Value: "private"},
		}, false},
		{"area=yes (pedestrian plaza)", osm.Tags{
			{Key: "highway", Value: "service"},
			{Key: "area", Value: "yes"},
		}, false},
		{"no highway tag", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCarAccessible(tt.tags); got != tt.want {
				t.Errorf("isCarAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{"default bidirectional", osm.Tags{{Key: "highway", Value: "residential"}}, true, true},
		{"motorway implied oneway", osm.Tags{{Key: "highway", Value: "motorway"}}, true, false},
		{"roundabout implied oneway", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "junction", Value: "roundabout"},
		}, true, false},
		{"explicit oneway=-1", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "-1"},
		}, false, true},
		{"oneway=reversible skips entirely", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "reversible"},
		}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestParseMaxSpeed(t *testing.T) {
	tests := []struct {
		tag     string
		want    float64
		wantOk  bool
	}{
		{"50", 50, true},
		{"30 mph", 30 * 1.60934, true},
		{"", 0, false},
		{"walk", 0, false},
	}
	for _, tt := range tests {
		tags := osm.Tags{{Key: "maxspeed", Value: tt.tag}}
		got, ok := parseMaxSpeed(tags)
		if ok != tt.wantOk {
			t.Fatalf("parseMaxSpeed(%q) ok = %v, want %v", tt.tag, ok, tt.wantOk)
		}
		if ok && got != tt.want {
			t.Errorf("parseMaxSpeed(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestWeightSpecForWayPrefersDuration(t *testing.T) {
	tags := osm.Tags{
		{Key: "highway", Value: "residential"},
		{Key: "maxspeed", Value: "50"},
		{Key: "duration", Value: "90"},
	}
	spec := weightSpecForWay(tags, 3)
	if spec.Type != containers.WeightWayDuration {
		t.Fatalf("expected WayDuration to win over maxspeed, got %v", spec.Type)
	}
	if spec.Duration != 30 {
		t.Errorf("Duration = %v, want 30 (90s split across 3 segments)", spec.Duration)
	}
}

func TestWeightSpecForWayFallsBackToHighwayTable(t *testing.T) {
	tags := osm.Tags{{Key: "highway", Value: "residential"}}
	spec := weightSpecForWay(tags, 1)
	if spec.Speed != defaultSpeedKMH["residential"] {
		t.Errorf("Speed = %v, want %v", spec.Speed, defaultSpeedKMH["residential"])
	}
}
