package geojson

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/feature"
	"github.com/wegman-software/osmmaps-go/internal/geo"
)

var square = []geo.LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0}}

func TestFromFeatures(t *testing.T) {
	features := []feature.Feature{
		{ID: 1, EntityType: osm.TypeRelation, Type: feature.Lake, Name: "Pond", Points: square, Bounded: false},
		{ID: 2, EntityType: osm.TypeWay, Type: feature.Stream, Name: feature.NoName, Points: square[:2], Bounded: true},
	}
	fc := FromFeatures(features)
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("lake geometry = %T, want orb.Polygon", fc.Features[0].Geometry)
	}
	if n := len(poly[0]); n != 5 {
		t.Errorf("ring has %d points, want 5 (closed)", n)
	}
	if poly[0][1] != (orb.Point{1, 0}) {
		t.Errorf("second ring point = %v, want lon/lat order [1 0]", poly[0][1])
	}
	props := fc.Features[0].Properties
	if props["type"] != "lake" || props["osm_type"] != "relation" || props["bounded"] != false {
		t.Errorf("unexpected properties %v", props)
	}

	if _, ok := fc.Features[1].Geometry.(orb.LineString); !ok {
		t.Errorf("stream geometry = %T, want orb.LineString", fc.Features[1].Geometry)
	}
}

func TestFromLoops(t *testing.T) {
	c := closer.New(geo.NewBounds(geo.LatLon{}, geo.LatLon{Lat: 2, Lon: 2}), []closer.Way{{
		ID:      7,
		NodeIDs: []int64{1, 2, 3, 4, 1},
		Points:  append(square, square[0]),
	}})
	fc := FromLoops(c.Loops(closer.All))
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if fc.Features[0].Properties["bounded"] != true {
		t.Error("self-closed way should be bounded")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	fc := FromFeatures([]feature.Feature{{ID: 3, EntityType: osm.TypeWay, Type: feature.Park, Name: "Green", Points: square, Bounded: true}})
	if err := WriteFile(path, fc, false); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("output is not GeoJSON: %v", err)
	}
	if len(got.Features) != 1 || got.Features[0].Properties.MustString("name") != "Green" {
		t.Errorf("round trip lost the feature: %+v", got.Features)
	}

	var buf bytes.Buffer
	if err := Write(&buf, fc, true); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("\n\t")) {
		t.Error("compact output should not be indented")
	}
}
