// Package osmdb holds an OSM extract in memory with O(1) lookups by ID.
package osmdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// Database is a read-only OSM extract. Entities keep their input order.
type Database struct {
	bounds geo.Bounds

	nodes     []*osm.Node
	ways      []*osm.Way
	relations []*osm.Relation

	nodeIdx     map[osm.NodeID]int
	wayIdx      map[osm.WayID]int
	relationIdx map[osm.RelationID]int
}

func (db *Database) Bounds() geo.Bounds { return db.bounds }

// SetBounds replaces the map bounds, for extracts whose header is missing or
// wrong. Call it before handing db to other goroutines.
func (db *Database) SetBounds(b geo.Bounds) { db.bounds = b }

func (db *Database) Nodes() []*osm.Node { return db.nodes }

func (db *Database) Ways() []*osm.Way { return db.ways }

func (db *Database) Relations() []*osm.Relation { return db.relations }

// Node looks up a node by ID
func (db *Database) Node(id osm.NodeID) (*osm.Node, bool) {
	i, ok := db.nodeIdx[id]
	if !ok {
		return nil, false
	}
	return db.nodes[i], true
}

// Way looks up a way by ID
func (db *Database) Way(id osm.WayID) (*osm.Way, bool) {
	i, ok := db.wayIdx[id]
	if !ok {
		return nil, false
	}
	return db.ways[i], true
}

// Relation looks up a relation by ID
func (db *Database) Relation(id osm.RelationID) (*osm.Relation, bool) {
	i, ok := db.relationIdx[id]
	if !ok {
		return nil, false
	}
	return db.relations[i], true
}

// Corners returns the bounds as a closed clockwise ring
func (db *Database) Corners() []geo.LatLon {
	return db.bounds.Corners()
}

// NodeLatLon returns the location of a node
func (db *Database) NodeLatLon(id osm.NodeID) (geo.LatLon, bool) {
	n, ok := db.Node(id)
	if !ok {
		return geo.NaN(), false
	}
	return geo.LatLon{Lat: n.Lat, Lon: n.Lon}, true
}

// ExtractPoly returns the points of w in order. Node refs that are not in
// the database are skipped and returned as dangling.
func (db *Database) ExtractPoly(w *osm.Way) (pts []geo.LatLon, dangling []osm.NodeID) {
	pts = make([]geo.LatLon, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		p, ok := db.NodeLatLon(wn.ID)
		if !ok {
			dangling = append(dangling, wn.ID)
			continue
		}
		pts = append(pts, p)
	}
	return pts, dangling
}

// IsClosed reports whether w starts and ends at the same node
func IsClosed(w *osm.Way) bool {
	n := len(w.Nodes)
	return n > 1 && w.Nodes[0].ID == w.Nodes[n-1].ID
}

// Summary describes the contents of a database
type Summary struct {
	Bounds    geo.Bounds
	Nodes     int
	Ways      int
	Relations int
	Roles     []string // distinct relation member roles
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bounds: %s\n", s.Bounds)
	fmt.Fprintf(&b, "  %d relations\n", s.Relations)
	fmt.Fprintf(&b, "  %d nodes\n", s.Nodes)
	fmt.Fprintf(&b, "  %d ways\n", s.Ways)
	fmt.Fprintf(&b, "  Relation member roles: %s", strings.Join(s.Roles, " "))
	return b.String()
}

// Summary counts the entities in the database
func (db *Database) Summary() Summary {
	roles := make(map[string]struct{})
	for _, r := range db.relations {
		for _, m := range r.Members {
			roles[m.Role] = struct{}{}
		}
	}
	s := Summary{
		Bounds:    db.bounds,
		Nodes:     len(db.nodes),
		Ways:      len(db.ways),
		Relations: len(db.relations),
		Roles:     make([]string, 0, len(roles)),
	}
	for r := range roles {
		s.Roles = append(s.Roles, r)
	}
	sort.Strings(s.Roles)
	return s
}
