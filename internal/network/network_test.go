package network

import (
	"math"
	"testing"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
	"github.com/wegman-software/osmmaps-go/internal/style"
)

func tags(kv ...string) osm.Tags {
	var t osm.Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

func way(id osm.WayID, t osm.Tags, nodes ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: t}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
	}
	return w
}

// grid is a plus-shaped junction plus a side street:
//
//	         3
//	         |
//	1 - 2 -  5 - 6 - 7
//	         |
//	         4
//
// Main St runs 1..7 as two ways (10: 1,2,5 and 11: 5,6,7), Cross St is
// way 12 (3,5,4), way 13 is a footway from 6.
func grid(t *testing.T, extra ...osm.Object) *osmdb.Database {
	t.Helper()
	b := osmdb.NewBuilder()
	b.SetBounds(geo.NewBounds(geo.LatLon{Lat: 0, Lon: 0}, geo.LatLon{Lat: 1, Lon: 1}))
	coords := map[osm.NodeID][2]float64{
		1: {0.5, 0.1}, 2: {0.5, 0.3}, 5: {0.5, 0.5}, 6: {0.5, 0.7}, 7: {0.5, 0.9},
		3: {0.8, 0.5}, 4: {0.2, 0.5}, 8: {0.3, 0.7},
	}
	for id, c := range coords {
		b.Add(&osm.Node{ID: id, Lat: c[0], Lon: c[1]})
	}
	b.Add(way(10, tags("highway", "residential", "name", "Main St", "maxspeed", "30 mph"), 1, 2, 5))
	b.Add(way(11, tags("highway", "residential", "name", "Main St", "oneway", "yes"), 5, 6, 7))
	b.Add(way(12, tags("highway", "tertiary", "name", "Cross St", "oneway", "-1"), 3, 5, 4))
	b.Add(way(13, tags("highway", "footway", "name", "Path"), 6, 8))
	for _, o := range extra {
		b.Add(o)
	}
	db, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestParseMaxSpeed(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"50", 50, false},
		{"40 kph", 40, false},
		{"30 mph", 30 * 1.609, false},
		{"25mph", 25 * 1.609, false},
		{"RU:60", 60, false},
		{"DE:urban", 0, true},
		{"none", 0, true},
		{"50 knots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMaxSpeed(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMaxSpeed(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseMaxSpeed(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	n, err := Build(grid(t), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// intersections: 1, 5, 7, 3, 4 (node 6 is only shared with the footway)
	if got := len(n.Intersections); got != 5 {
		t.Errorf("got %d intersections, want 5", got)
	}
	// segments: 1-5, 5-7, 3-5, 5-4
	if got := len(n.Segments); got != 4 {
		t.Fatalf("got %d segments, want 4", got)
	}
	if n.Stats.Ways != 3 {
		t.Errorf("Stats.Ways = %d, want 3", n.Stats.Ways)
	}
	if n.Stats.CurvePoints != 2 {
		t.Errorf("Stats.CurvePoints = %d, want 2", n.Stats.CurvePoints)
	}

	s := n.Segments[0]
	if s.WayID != 10 || len(s.CurvePoints) != 1 {
		t.Errorf("segment 0 = way %d with %d curve points", s.WayID, len(s.CurvePoints))
	}
	if math.Abs(s.MaxSpeed-30*1.609) > 1e-9 {
		t.Errorf("segment 0 max speed = %v", s.MaxSpeed)
	}
	if n.Segments[1].OneWay != Forward || n.Segments[1].MaxSpeed != DefaultMaxSpeed {
		t.Errorf("segment 1 = %v at %v km/h", n.Segments[1].OneWay, n.Segments[1].MaxSpeed)
	}
	if n.Segments[2].OneWay != Backward {
		t.Errorf("segment 2 oneway = %v, want backward", n.Segments[2].OneWay)
	}
	if n.Stats.DefaultSpeed != 3 {
		t.Errorf("Stats.DefaultSpeed = %d, want 3", n.Stats.DefaultSpeed)
	}

	centre := n.Segments[0].To
	if got := len(n.Intersections[centre].Segments); got != 4 {
		t.Errorf("centre degree = %d, want 4", got)
	}
	if got := n.Degrees(); got[1] != 4 || got[4] != 1 {
		t.Errorf("Degrees() = %v", got)
	}
	if l := n.Length(0); l < 40000 || l > 50000 {
		t.Errorf("Length(0) = %v m, want ~44 km", l)
	}
}

func TestStreets(t *testing.T) {
	n, err := Build(grid(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{UnknownStreet, "Main St", "Cross St"}
	if len(n.Streets) != len(want) {
		t.Fatalf("Streets = %v, want %v", n.Streets, want)
	}
	for i := range want {
		if n.Streets[i] != want[i] {
			t.Errorf("Streets[%d] = %q, want %q", i, n.Streets[i], want[i])
		}
	}
	if got := n.StreetSegments(1); len(got) != 2 {
		t.Errorf("Main St segments = %v, want 2 (ways 10 and 11)", got)
	}

	centre := n.Segments[0].To
	if got := n.IntersectionName(centre); got != "Main St & Cross St" {
		t.Errorf("IntersectionName = %q", got)
	}
	if got := n.IntersectionName(n.Segments[0].From); got != "Main St" {
		t.Errorf("IntersectionName(end) = %q", got)
	}
}

func TestUnnamedStreet(t *testing.T) {
	db := grid(t,
		&osm.Node{ID: 20, Lat: 0.1, Lon: 0.1},
		way(20, tags("highway", "service"), 1, 20))
	n, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	last := n.Segments[len(n.Segments)-1]
	if last.WayID != 20 || last.Street != 0 {
		t.Errorf("service road = way %d street %d, want street 0", last.WayID, last.Street)
	}
	if got := n.IntersectionName(last.From); got != "<unknown> & Main St" {
		t.Errorf("IntersectionName = %q", got)
	}
}

func TestDanglingSplitsWay(t *testing.T) {
	db := grid(t,
		&osm.Node{ID: 30, Lat: 0.9, Lon: 0.1},
		&osm.Node{ID: 31, Lat: 0.9, Lon: 0.2},
		&osm.Node{ID: 32, Lat: 0.9, Lon: 0.4},
		&osm.Node{ID: 33, Lat: 0.9, Lon: 0.5},
		way(30, tags("highway", "primary"), 30, 31, 99, 32, 33))
	n, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n.Stats.DanglingRefs != 1 {
		t.Errorf("DanglingRefs = %d, want 1", n.Stats.DanglingRefs)
	}
	var segs []Segment
	for _, s := range n.Segments {
		if s.WayID == 30 {
			segs = append(segs, s)
		}
	}
	if len(segs) != 2 {
		t.Fatalf("way 30 produced %d segments, want 2", len(segs))
	}
	for _, s := range segs {
		if len(s.CurvePoints) != 0 {
			t.Errorf("segment %d has %d curve points", s.ID, len(s.CurvePoints))
		}
	}
}

func TestRoadFilter(t *testing.T) {
	filter := &style.FilterConfig{Exclude: map[string][]string{"highway": {"tertiary"}}}
	n, err := Build(grid(t), Options{Filter: filter})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range n.Segments {
		if s.WayID == 12 {
			t.Error("tertiary way should be filtered out")
		}
	}
	// without way 12, node 5 is shared by 10 and 11 only
	if len(n.Segments) != 2 {
		t.Errorf("got %d segments, want 2", len(n.Segments))
	}
}

func TestNearest(t *testing.T) {
	n, err := Build(grid(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		p    geo.LatLon
		want osm.NodeID
	}{
		{geo.LatLon{Lat: 0.52, Lon: 0.48}, 5},
		{geo.LatLon{Lat: 0.9, Lon: 0.5}, 3},
		{geo.LatLon{Lat: 0.5, Lon: 0.0}, 1},
		{geo.LatLon{Lat: 0.4, Lon: 0.95}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			got, ok := n.Nearest(tt.p)
			if !ok || got.NodeID != tt.want {
				t.Errorf("Nearest(%v) = node %d, want %d", tt.p, got.NodeID, tt.want)
			}
		})
	}

	inside := n.Within(geo.NewBounds(geo.LatLon{Lat: 0.4, Lon: 0.4}, geo.LatLon{Lat: 0.9, Lon: 0.6}))
	if len(inside) != 2 {
		t.Errorf("Within returned %d intersections, want 2 (nodes 5 and 3)", len(inside))
	}
}

func TestNearestEmpty(t *testing.T) {
	b := osmdb.NewBuilder()
	b.SetBounds(geo.NewBounds(geo.LatLon{Lat: 0, Lon: 0}, geo.LatLon{Lat: 1, Lon: 1}))
	db, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	n, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.Nearest(geo.LatLon{Lat: 0.5, Lon: 0.5}); ok {
		t.Error("Nearest on empty network should fail")
	}
}
