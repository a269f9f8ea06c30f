package feature

import (
	"fmt"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/parquet"
	"github.com/wegman-software/osmmaps-go/internal/wkb"
)

func osmTypeCode(t osm.Type) string {
	switch t {
	case osm.TypeNode:
		return "n"
	case osm.TypeWay:
		return "w"
	case osm.TypeRelation:
		return "r"
	default:
		return "?"
	}
}

// WriteParquet writes features to a features.parquet file with EWKB
// geometry in srid (4326 or 3857). Area features become polygons, the rest
// linestrings.
func WriteParquet(path string, features []Feature, srid, batchSize int) (int64, error) {
	enc, err := wkb.NewEncoderWithSRID(1024, srid)
	if err != nil {
		return 0, err
	}
	w, err := parquet.NewFeatureWriter(path, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	for _, f := range features {
		var geom []byte
		if f.IsArea() {
			geom = enc.EncodePolygon(f.Points)
		} else {
			geom = enc.EncodeLineString(f.Points)
		}
		row := parquet.FeatureRow{
			OSMID:       f.ID,
			OSMType:     osmTypeCode(f.EntityType),
			FeatureType: f.Type.String(),
			Name:        f.Name,
			Bounded:     f.Bounded,
			AreaM2:      f.Area(),
			GeomWKB:     geom,
		}
		if err := w.Write(row); err != nil {
			w.Close()
			return 0, fmt.Errorf("failed to write feature %s: %w", f, err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Rows(), nil
}
