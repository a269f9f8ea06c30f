package proj

import (
	"math"
	"testing"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

func TestTransformWebMercator(t *testing.T) {
	tr, err := NewTransformer(SRID4326, SRID3857)
	if err != nil {
		t.Fatal(err)
	}
	x, y := tr.Transform(geo.LatLon{Lat: 0, Lon: 180})
	if math.Abs(x-maxExtent) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("Transform(0,180) = (%f, %f), want (%f, 0)", x, y, maxExtent)
	}

	if _, err := NewTransformer(SRID4326, 27700); err == nil {
		t.Error("expected error for unsupported target SRID")
	}
}

func TestTransformIdentity(t *testing.T) {
	tr, _ := NewTransformer(SRID4326, SRID4326)
	if tr.NeedsTransform() {
		t.Error("4326 -> 4326 should not need a transform")
	}
	x, y := tr.Transform(geo.LatLon{Lat: 43.2, Lon: -79.8})
	if x != -79.8 || y != 43.2 {
		t.Errorf("Transform = (%f, %f), want (-79.8, 43.2)", x, y)
	}
}

func TestParseSRID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"4326", SRID4326, false},
		{"EPSG:3857", SRID3857, false},
		{"900913", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSRID(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseSRID(%q) = %d, %v", tt.in, got, err)
			}
		})
	}
}

func TestMidLatArea(t *testing.T) {
	m := NewMidLat(geo.LatLon{Lat: 0, Lon: 0})
	square := []geo.LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.01}, {Lat: 0.01, Lon: 0.01}, {Lat: 0.01, Lon: 0}}

	side := 0.01 * geo.MetresPerDegreeLat
	if got := m.Area(square); math.Abs(got-side*side) > 1 {
		t.Errorf("Area = %f, want %f", got, side*side)
	}
	if got := m.Area(square[:2]); got != 0 {
		t.Errorf("Area of a segment = %f, want 0", got)
	}
	if got := m.Length(square[:2]); math.Abs(got-side) > 1e-6 {
		t.Errorf("Length = %f, want %f", got, side)
	}
}
