package feature

import (
	"go.uber.org/zap"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
)

// RelationFactory closes water and coastline multipolygon relations into
// lakes and islands.
type RelationFactory struct {
	db      *osmdb.Database
	maxDist float64
	log     *zap.Logger
}

// NewRelationFactory creates a factory. maxDist limits how far an open way
// end may be from the map edge; 0 means no limit.
func NewRelationFactory(db *osmdb.Database, maxDist float64, log *zap.Logger) *RelationFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return &RelationFactory{db: db, maxDist: maxDist, log: log}
}

// Wanted reports whether the relation describes water or coastline
func Wanted(tags osm.Tags) bool {
	water := tags.Find("water")
	return water == "lake" || water == "river" ||
		tags.Find("waterway") == "river" ||
		tags.Find("natural") == "coastline"
}

// RelationResult holds what one relation produced
type RelationResult struct {
	Features    []Feature
	Diagnostics []closer.Diagnostic
	Outer       *closer.Closer
	Inner       *closer.Closer
}

// Features closes the outer ways of r clockwise into lakes and the inner
// ways counterclockwise into islands.
func (f *RelationFactory) Features(r *osm.Relation) RelationResult {
	var res RelationResult
	if len(r.Tags) == 0 || !Wanted(r.Tags) {
		return res
	}
	name := Name(r.Tags)
	log := f.log.With(zap.Int64("relation_id", int64(r.ID)), zap.String("name", name))

	var outer, inner []closer.Way
	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		switch m.Role {
		case "outer", "inner", "", "main_stream":
		case "forward", "backward", "from", "to", "via":
			log.Debug("Ignoring member way", zap.Int64("way_id", m.Ref), zap.String("role", m.Role))
			continue
		default:
			log.Debug("Ignoring member way with unexpected role", zap.Int64("way_id", m.Ref), zap.String("role", m.Role))
			continue
		}

		w, ok := f.db.Way(osm.WayID(m.Ref))
		if !ok {
			res.Diagnostics = append(res.Diagnostics, danglingWay(r.ID, m.Ref))
			continue
		}
		cw, diags := CloserWay(f.db, w)
		res.Diagnostics = append(res.Diagnostics, diags...)

		switch m.Role {
		case "outer":
			outer = append(outer, cw)
		case "inner":
			inner = append(inner, cw)
		}
	}
	log.Debug("Closing relation", zap.Int("outer", len(outer)), zap.Int("inner", len(inner)))

	res.Outer = f.close(outer, closer.CW, log)
	res.Diagnostics = append(res.Diagnostics, res.Outer.Diagnostics()...)
	for _, loop := range res.Outer.Loops(closer.All) {
		res.Features = append(res.Features, Feature{
			ID:         int64(r.ID),
			EntityType: osm.TypeRelation,
			Type:       Lake,
			Name:       name,
			Points:     loop.Points,
			Bounded:    loop.Bounded,
		})
	}

	res.Inner = f.close(inner, closer.CCW, log)
	res.Diagnostics = append(res.Diagnostics, res.Inner.Diagnostics()...)
	for _, loop := range res.Inner.Loops(closer.All) {
		if !loop.Bounded {
			log.Warn("Unbounded inner way is unusual", zap.Int64s("ways", loop.Ways))
		}
		res.Features = append(res.Features, Feature{
			ID:         int64(r.ID),
			EntityType: osm.TypeRelation,
			Type:       Island,
			Name:       name,
			Points:     loop.Points,
			Bounded:    loop.Bounded,
		})
	}
	return res
}

func (f *RelationFactory) close(ways []closer.Way, dir closer.Direction, log *zap.Logger) *closer.Closer {
	opts := []closer.Option{closer.WithDirection(dir), closer.WithLogger(log)}
	if f.maxDist > 0 {
		opts = append(opts, closer.WithMaxBoundaryDistance(f.maxDist))
	}
	return closer.New(f.db.Bounds(), ways, opts...)
}

// CloserWay converts w into closer input. Missing nodes are dropped from
// both the points and node IDs and reported.
func CloserWay(db *osmdb.Database, w *osm.Way) (closer.Way, []closer.Diagnostic) {
	cw := closer.Way{
		ID:      int64(w.ID),
		NodeIDs: make([]int64, 0, len(w.Nodes)),
		Points:  make([]geo.LatLon, 0, len(w.Nodes)),
	}
	var diags []closer.Diagnostic
	for _, wn := range w.Nodes {
		p, ok := db.NodeLatLon(wn.ID)
		if !ok {
			diags = append(diags, danglingNode(int64(w.ID), wn.ID))
			continue
		}
		cw.NodeIDs = append(cw.NodeIDs, int64(wn.ID))
		cw.Points = append(cw.Points, p)
	}
	return cw, diags
}
