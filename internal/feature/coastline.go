package feature

import (
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
)

const (
	oceanName       = "<big ocean>"
	unspecifiedName = "<unspecified>"
)

// CoastlineResult is the outcome of AnalyzeCoastline
type CoastlineResult struct {
	Features    []Feature
	Diagnostics []closer.Diagnostic
	// IsIsland is true when the map is surrounded by water
	IsIsland  bool
	Coastline int // number of coastline ways
}

// AnalyzeCoastline closes the natural=coastline ways counterclockwise, so
// land is on the left. Closed rings are islands; rings closed along the
// map edge enclose sea. When every ring is closed and no water feature in
// features leaves the map, the map is taken to be an island and a lake
// covering the whole map is added beneath it.
func AnalyzeCoastline(db *osmdb.Database, features []Feature, maxDist float64, log *zap.Logger) CoastlineResult {
	if log == nil {
		log = zap.NewNop()
	}
	var res CoastlineResult

	isIsland := true
	for _, f := range features {
		if f.EntityType == osm.TypeRelation && f.IsWater() && !f.Bounded {
			log.Info("Found an unbounded water feature, map is not an island", zap.Int64("relation_id", f.ID))
			isIsland = false
			break
		}
	}

	var ways []closer.Way
	for _, w := range db.Ways() {
		if w.Tags.Find("natural") != "coastline" {
			continue
		}
		cw, diags := CloserWay(db, w)
		res.Diagnostics = append(res.Diagnostics, diags...)
		ways = append(ways, cw)
	}
	res.Coastline = len(ways)
	log.Info("Extracted coastline ways", zap.Int("ways", len(ways)))

	opts := []closer.Option{closer.WithDirection(closer.CCW), closer.WithLogger(log)}
	if maxDist > 0 {
		opts = append(opts, closer.WithMaxBoundaryDistance(maxDist))
	}
	c := closer.New(db.Bounds(), ways, opts...)
	res.Diagnostics = append(res.Diagnostics, c.Diagnostics()...)
	loops := c.Loops(closer.All)

	if len(loops) == 0 {
		log.Info("No coastlines, map is not an island")
		isIsland = false
	}
	for _, loop := range loops {
		isIsland = isIsland && loop.Bounded
	}
	res.IsIsland = isIsland

	if isIsland {
		log.Info("All coastlines are closed, map is an island", zap.Int("loops", len(loops)))
		res.Features = append(res.Features, Feature{
			EntityType: osm.TypeRelation,
			Type:       Lake,
			Name:       oceanName,
			Points:     db.Corners(),
			Bounded:    true,
		})
	}

	for _, loop := range loops {
		t := Lake
		if loop.Bounded {
			t = Island
		}
		res.Features = append(res.Features, Feature{
			EntityType: osm.TypeWay,
			Type:       t,
			Name:       unspecifiedName,
			Points:     loop.Points,
			Bounded:    loop.Bounded,
		})
	}
	return res
}
