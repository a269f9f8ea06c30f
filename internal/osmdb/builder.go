package osmdb

import (
	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// Builder collects OSM objects into a Database
type Builder struct {
	db        *Database
	hasBounds bool
	extent    geo.Bounds
}

func NewBuilder() *Builder {
	return &Builder{
		db: &Database{
			bounds:      geo.EmptyBounds(),
			nodeIdx:     make(map[osm.NodeID]int),
			wayIdx:      make(map[osm.WayID]int),
			relationIdx: make(map[osm.RelationID]int),
		},
		extent: geo.EmptyBounds(),
	}
}

// SetBounds fixes the database bounds, overriding the node extent
func (b *Builder) SetBounds(bounds geo.Bounds) {
	b.db.bounds = bounds
	b.hasBounds = true
}

// Add stores one object. Later copies of an entity replace earlier ones.
func (b *Builder) Add(o osm.Object) {
	switch v := o.(type) {
	case *osm.Node:
		b.extent = b.extent.Extend(geo.LatLon{Lat: v.Lat, Lon: v.Lon})
		if i, ok := b.db.nodeIdx[v.ID]; ok {
			b.db.nodes[i] = v
			return
		}
		b.db.nodeIdx[v.ID] = len(b.db.nodes)
		b.db.nodes = append(b.db.nodes, v)
	case *osm.Way:
		if i, ok := b.db.wayIdx[v.ID]; ok {
			b.db.ways[i] = v
			return
		}
		b.db.wayIdx[v.ID] = len(b.db.ways)
		b.db.ways = append(b.db.ways, v)
	case *osm.Relation:
		if i, ok := b.db.relationIdx[v.ID]; ok {
			b.db.relations[i] = v
			return
		}
		b.db.relationIdx[v.ID] = len(b.db.relations)
		b.db.relations = append(b.db.relations, v)
	case *osm.Bounds:
		b.SetBounds(geo.NewBounds(
			geo.LatLon{Lat: v.MinLat, Lon: v.MinLon},
			geo.LatLon{Lat: v.MaxLat, Lon: v.MaxLon},
		))
	}
	// changesets, notes and users are not part of the map
}

// Build returns the finished database. Without explicit bounds the extent of
// the nodes is used.
func (b *Builder) Build() (*Database, error) {
	if !b.hasBounds {
		if !b.extent.IsValid() && len(b.db.nodes) > 0 {
			return nil, ErrNoBounds
		}
		b.db.bounds = b.extent
	}
	return b.db, nil
}
