// Package network builds a routable road graph from an OSM database.
//
// Road ways are split at intersections: nodes shared by more than one road
// way reference, way ends, and the neighbours of dangling node references.
// The remaining nodes become curve points of the street segment they lie on.
package network

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
	"github.com/wegman-software/osmmaps-go/internal/proj"
	"github.com/wegman-software/osmmaps-go/internal/style"
)

// DefaultMaxSpeed is used for segments without a usable maxspeed tag (km/h)
const DefaultMaxSpeed = 50.0

// UnknownStreet is the name of street 0, which holds unnamed segments
const UnknownStreet = "<unknown>"

var roadTypes = map[string]bool{
	"residential":    true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"motorway":       true,
	"motorway_link":  true,
	"service":        true,
}

// IsRoad reports whether a way's highway tag is one of the road classes
// that make up the network
func IsRoad(tags osm.Tags) bool {
	return roadTypes[tags.Find("highway")]
}

// OneWay is the permitted travel direction of a segment relative to its
// From -> To order
type OneWay int8

const (
	Bidirectional OneWay = iota
	Forward
	Backward
)

func (o OneWay) String() string {
	switch o {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "bidirectional"
	}
}

// Intersection is a graph vertex
type Intersection struct {
	ID       int
	NodeID   osm.NodeID
	Point    geo.LatLon
	Segments []int
}

// Segment is a graph edge between two intersections along one way
type Segment struct {
	ID          int
	From, To    int
	WayID       osm.WayID
	Street      int
	CurvePoints []geo.LatLon
	OneWay      OneWay
	MaxSpeed    float64
}

// Other returns the intersection at the opposite end from v
func (s *Segment) Other(v int) int {
	if s.From == v {
		return s.To
	}
	return s.From
}

// Stats summarises a build
type Stats struct {
	Ways          int
	Forward       int
	Backward      int
	Reversible    int
	Bidirectional int
	UnknownOneWay int
	CurvePoints   int
	DefaultSpeed  int
	DanglingRefs  int
}

// Options configures Build
type Options struct {
	// Filter further narrows the road ways, applied after IsRoad
	Filter *style.FilterConfig
	Logger *zap.Logger
}

// Network is the road graph plus a street name table and a spatial index
// over intersections
type Network struct {
	Intersections []Intersection
	Segments      []Segment
	Streets       []string
	Stats         Stats

	db    *osmdb.Database
	proj  proj.MidLat
	index *rtreego.Rtree
	log   *zap.Logger
}

type builder struct {
	*Network
	refs     map[osm.NodeID]int
	vertices map[osm.NodeID]int
	speeds   map[string]float64
}

// Build creates the road network for db
func Build(db *osmdb.Database, opts Options) (*Network, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !db.Bounds().IsValid() {
		return nil, fmt.Errorf("build network: %w", osmdb.ErrNoBounds)
	}

	filter := style.NewFilter(opts.Filter)
	var roads []*osm.Way
	for _, w := range db.Ways() {
		if IsRoad(w.Tags) && filter.MatchOSMTags(w.Tags) {
			roads = append(roads, w)
		}
	}

	b := &builder{
		Network: &Network{
			db:   db,
			proj: proj.ForBounds(db.Bounds()),
			log:  log,
		},
		refs:     make(map[osm.NodeID]int),
		vertices: make(map[osm.NodeID]int),
		speeds:   make(map[string]float64),
	}

	for _, w := range roads {
		for _, wn := range w.Nodes {
			if _, ok := db.Node(wn.ID); ok {
				b.refs[wn.ID]++
			}
		}
	}

	for _, w := range roads {
		b.addWay(w)
	}

	for i := range b.Segments {
		if b.Segments[i].MaxSpeed == 0 {
			b.Segments[i].MaxSpeed = DefaultMaxSpeed
			b.Stats.DefaultSpeed++
		}
	}

	b.assignStreets()
	b.buildIndex()

	log.Info("Road network built",
		zap.Int("intersections", len(b.Intersections)),
		zap.Int("segments", len(b.Segments)),
		zap.Int("curve_points", b.Stats.CurvePoints),
		zap.Int("ways", b.Stats.Ways),
		zap.Int("streets", len(b.Streets)-1),
		zap.Int("default_speed", b.Stats.DefaultSpeed))
	return b.Network, nil
}

func (b *builder) addWay(w *osm.Way) {
	b.Stats.Ways++
	speed := b.maxSpeed(w.Tags.Find("maxspeed"))
	oneway := b.oneWay(w)

	n := len(w.Nodes)
	points := make([]geo.LatLon, n)
	valid := make([]bool, n)
	for i, wn := range w.Nodes {
		points[i], valid[i] = b.db.NodeLatLon(wn.ID)
		if !valid[i] {
			b.Stats.DanglingRefs++
			b.log.Warn("Dangling node reference in road",
				zap.Int64("way_id", int64(w.ID)),
				zap.Int64("node_id", int64(wn.ID)))
		}
	}

	start := -1
	var curve []geo.LatLon
	for i, wn := range w.Nodes {
		if !valid[i] {
			start, curve = -1, nil
			continue
		}
		split := i == 0 || i == n-1 || !valid[i-1] || !valid[i+1]
		if !split && b.refs[wn.ID] <= 1 {
			curve = append(curve, points[i])
			continue
		}

		v := b.intersection(wn.ID, points[i])
		if start >= 0 {
			b.addSegment(start, v, w.ID, curve, oneway, speed)
		}
		start, curve = v, nil
	}
}

func (b *builder) intersection(id osm.NodeID, p geo.LatLon) int {
	if v, ok := b.vertices[id]; ok {
		return v
	}
	v := len(b.Intersections)
	b.Intersections = append(b.Intersections, Intersection{ID: v, NodeID: id, Point: p})
	b.vertices[id] = v
	return v
}

func (b *builder) addSegment(from, to int, way osm.WayID, curve []geo.LatLon, oneway OneWay, speed float64) {
	id := len(b.Segments)
	b.Segments = append(b.Segments, Segment{
		ID:          id,
		From:        from,
		To:          to,
		WayID:       way,
		CurvePoints: curve,
		OneWay:      oneway,
		MaxSpeed:    speed,
	})
	b.Stats.CurvePoints += len(curve)
	b.Intersections[from].Segments = append(b.Intersections[from].Segments, id)
	if to != from {
		b.Intersections[to].Segments = append(b.Intersections[to].Segments, id)
	}
}

// maxSpeed returns 0 when the value is missing or cannot be parsed
func (b *builder) maxSpeed(v string) float64 {
	if v == "" {
		return 0
	}
	if s, ok := b.speeds[v]; ok {
		return s
	}
	s, err := ParseMaxSpeed(v)
	if err != nil {
		b.log.Debug("Ignoring maxspeed", zap.String("value", v), zap.Error(err))
	}
	b.speeds[v] = s
	return s
}

func (b *builder) oneWay(w *osm.Way) OneWay {
	switch v := w.Tags.Find("oneway"); v {
	case "", "no":
		b.Stats.Bidirectional++
	case "yes", "1":
		b.Stats.Forward++
		return Forward
	case "-1":
		b.Stats.Backward++
		return Backward
	case "reversible":
		b.Stats.Reversible++
	default:
		b.Stats.UnknownOneWay++
		b.log.Debug("Unrecognized oneway value",
			zap.Int64("way_id", int64(w.ID)), zap.String("value", v))
	}
	return Bidirectional
}

// Degrees returns a histogram of intersection degree -> count
func (n *Network) Degrees() map[int]int {
	h := make(map[int]int)
	for _, in := range n.Intersections {
		h[len(in.Segments)]++
	}
	return h
}

// Path returns the full polyline of a segment, from its From to its To
// intersection
func (n *Network) Path(seg int) []geo.LatLon {
	s := &n.Segments[seg]
	pts := make([]geo.LatLon, 0, len(s.CurvePoints)+2)
	pts = append(pts, n.Intersections[s.From].Point)
	pts = append(pts, s.CurvePoints...)
	return append(pts, n.Intersections[s.To].Point)
}

// Length returns a segment's length in metres
func (n *Network) Length(seg int) float64 {
	return n.proj.Length(n.Path(seg))
}
