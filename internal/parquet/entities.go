package parquet

import (
	"github.com/apache/arrow/go/v14/arrow"
	"github.com/paulmach/osm"
)

var (
	NodeSchema = arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "lat", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		{Name: "lon", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		{Name: "tags", Type: arrow.BinaryTypes.String, Nullable: false},
	}, nil)

	WaySchema = arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "tags", Type: arrow.BinaryTypes.String, Nullable: false},
	}, nil)

	WayNodeSchema = arrow.NewSchema([]arrow.Field{
		{Name: "way_id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "seq", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "node_id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	}, nil)

	RelationSchema = arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "tags", Type: arrow.BinaryTypes.String, Nullable: false},
	}, nil)

	RelationMemberSchema = arrow.NewSchema([]arrow.Field{
		{Name: "relation_id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "seq", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "type", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "ref", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "role", Type: arrow.BinaryTypes.String, Nullable: false},
	}, nil)
)

// NodeWriter writes nodes to Parquet
type NodeWriter struct{ *tableWriter }

func NewNodeWriter(path string, batchSize int) (*NodeWriter, error) {
	w, err := newTableWriter(path, NodeSchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &NodeWriter{w}, nil
}

func (w *NodeWriter) Write(n *osm.Node) error {
	w.int64Field(0).Append(int64(n.ID))
	w.float64Field(1).Append(n.Lat)
	w.float64Field(2).Append(n.Lon)
	w.stringField(3).Append(TagsToJSON(n.Tags))
	return w.rowAdded()
}

// WayWriter writes way IDs and tags. Node lists go to a WayNodeWriter.
type WayWriter struct{ *tableWriter }

func NewWayWriter(path string, batchSize int) (*WayWriter, error) {
	w, err := newTableWriter(path, WaySchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &WayWriter{w}, nil
}

func (w *WayWriter) Write(way *osm.Way) error {
	w.int64Field(0).Append(int64(way.ID))
	w.stringField(1).Append(TagsToJSON(way.Tags))
	return w.rowAdded()
}

// WayNodeWriter writes one row per way node reference
type WayNodeWriter struct{ *tableWriter }

func NewWayNodeWriter(path string, batchSize int) (*WayNodeWriter, error) {
	w, err := newTableWriter(path, WayNodeSchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &WayNodeWriter{w}, nil
}

func (w *WayNodeWriter) Write(wayID int64, seq int32, nodeID int64) error {
	w.int64Field(0).Append(wayID)
	w.int32Field(1).Append(seq)
	w.int64Field(2).Append(nodeID)
	return w.rowAdded()
}

// WriteWay writes every node reference of way in order
func (w *WayNodeWriter) WriteWay(way *osm.Way) error {
	for i, wn := range way.Nodes {
		if err := w.Write(int64(way.ID), int32(i), int64(wn.ID)); err != nil {
			return err
		}
	}
	return nil
}

// RelationWriter writes relation IDs and tags
type RelationWriter struct{ *tableWriter }

func NewRelationWriter(path string, batchSize int) (*RelationWriter, error) {
	w, err := newTableWriter(path, RelationSchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &RelationWriter{w}, nil
}

func (w *RelationWriter) Write(rel *osm.Relation) error {
	w.int64Field(0).Append(int64(rel.ID))
	w.stringField(1).Append(TagsToJSON(rel.Tags))
	return w.rowAdded()
}

// RelationMemberWriter writes one row per relation member
type RelationMemberWriter struct{ *tableWriter }

func NewRelationMemberWriter(path string, batchSize int) (*RelationMemberWriter, error) {
	w, err := newTableWriter(path, RelationMemberSchema, batchSize)
	if err != nil {
		return nil, err
	}
	return &RelationMemberWriter{w}, nil
}

func (w *RelationMemberWriter) Write(relationID int64, seq int32, memberType string, ref int64, role string) error {
	w.int64Field(0).Append(relationID)
	w.int32Field(1).Append(seq)
	w.stringField(2).Append(memberType)
	w.int64Field(3).Append(ref)
	w.stringField(4).Append(role)
	return w.rowAdded()
}

// WriteRelation writes every member of rel in order
func (w *RelationMemberWriter) WriteRelation(rel *osm.Relation) error {
	for i, m := range rel.Members {
		if err := w.Write(int64(rel.ID), int32(i), string(m.Type), m.Ref, m.Role); err != nil {
			return err
		}
	}
	return nil
}
