package parquet

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
)

// FeatureSchema is the layout of features.parquet
var FeatureSchema = arrow.NewSchema([]arrow.Field{
	{Name: "osm_id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	{Name: "osm_type", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "feature_type", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "bounded", Type: arrow.FixedWidthTypes.Boolean, Nullable: false},
	{Name: "area_m2", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
	{Name: "geom_wkb", Type: arrow.BinaryTypes.Binary, Nullable: false},
}, nil)

// FeatureRow is one row of features.parquet
type FeatureRow struct {
	OSMID       int64
	OSMType     string // "n", "w" or "r"
	FeatureType string
	Name        string
	Bounded     bool
	AreaM2      float64
	GeomWKB     []byte // EWKB
}

// FeatureWriter writes extracted map features with EWKB geometry
type FeatureWriter struct{ *tableWriter }

// NewFeatureWriter creates a features.parquet writer
func NewFeatureWriter(path string, batchSize int) (*FeatureWriter, error) {
	w, err := newTableWriter(path, FeatureSchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &FeatureWriter{w}, nil
}

func (w *FeatureWriter) Write(r FeatureRow) error {
	w.int64Field(0).Append(r.OSMID)
	w.stringField(1).Append(r.OSMType)
	w.stringField(2).Append(r.FeatureType)
	w.stringField(3).Append(r.Name)
	w.boolField(4).Append(r.Bounded)
	w.float64Field(5).Append(r.AreaM2)
	w.binaryField(6).Append(r.GeomWKB)
	return w.rowAdded()
}

// ReadFeatures reads every row of a features.parquet file
func ReadFeatures(ctx context.Context, path string) ([]FeatureRow, error) {
	t, err := ReadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer t.Release()

	ids, err := t.Int64s("osm_id")
	if err != nil {
		return nil, err
	}
	types, err := t.Strings("osm_type")
	if err != nil {
		return nil, err
	}
	ftypes, err := t.Strings("feature_type")
	if err != nil {
		return nil, err
	}
	names, err := t.Strings("name")
	if err != nil {
		return nil, err
	}
	bounded, err := t.Bools("bounded")
	if err != nil {
		return nil, err
	}
	areas, err := t.Float64s("area_m2")
	if err != nil {
		return nil, err
	}
	geoms, err := t.Binaries("geom_wkb")
	if err != nil {
		return nil, err
	}

	n := len(ids)
	for _, l := range []int{len(types), len(ftypes), len(names), len(bounded), len(areas), len(geoms)} {
		if l != n {
			return nil, fmt.Errorf("%s: ragged columns (%d vs %d rows)", path, l, n)
		}
	}
	rows := make([]FeatureRow, n)
	for i := range rows {
		rows[i] = FeatureRow{
			OSMID:       ids[i],
			OSMType:     types[i],
			FeatureType: ftypes[i],
			Name:        names[i],
			Bounded:     bounded[i],
			AreaM2:      areas[i],
			GeomWKB:     geoms[i],
		}
	}
	return rows, nil
}
