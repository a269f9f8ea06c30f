package osmdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/parquet"
)

// Snapshot file names
const (
	snapshotMeta      = "meta.yaml"
	snapshotNodes     = "nodes.parquet"
	snapshotWays      = "ways.parquet"
	snapshotWayNodes  = "way_nodes.parquet"
	snapshotRelations = "relations.parquet"
	snapshotMembers   = "relation_members.parquet"
)

const snapshotVersion = 1

type snapshotMetadata struct {
	Version   int        `yaml:"version"`
	Bounds    [4]float64 `yaml:"bounds"` // minlon, minlat, maxlon, maxlat
	Nodes     int        `yaml:"nodes"`
	Ways      int        `yaml:"ways"`
	Relations int        `yaml:"relations"`
}

// SaveSnapshot writes the database as Parquet tables under dir
func (db *Database) SaveSnapshot(dir string) error {
	log := logger.Get()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := db.writeNodes(filepath.Join(dir, snapshotNodes)); err != nil {
		return err
	}
	if err := db.writeWays(dir); err != nil {
		return err
	}
	if err := db.writeRelations(dir); err != nil {
		return err
	}

	meta := snapshotMetadata{
		Version:   snapshotVersion,
		Bounds:    [4]float64{db.bounds.Min.Lon, db.bounds.Min.Lat, db.bounds.Max.Lon, db.bounds.Max.Lat},
		Nodes:     len(db.nodes),
		Ways:      len(db.ways),
		Relations: len(db.relations),
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotMeta), data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	log.Info("Wrote snapshot",
		zap.String("dir", dir),
		zap.Int("nodes", meta.Nodes),
		zap.Int("ways", meta.Ways),
		zap.Int("relations", meta.Relations))
	return nil
}

func (db *Database) writeNodes(path string) (err error) {
	w, err := parquet.NewNodeWriter(path, parquet.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create node writer: %w", err)
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close node writer: %w", cerr)
		}
	}()
	for _, n := range db.nodes {
		if err := w.Write(n); err != nil {
			return fmt.Errorf("failed to write node %d: %w", n.ID, err)
		}
	}
	return nil
}

func (db *Database) writeWays(dir string) (err error) {
	ww, err := parquet.NewWayWriter(filepath.Join(dir, snapshotWays), parquet.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create way writer: %w", err)
	}
	defer func() {
		if cerr := ww.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close way writer: %w", cerr)
		}
	}()
	nw, err := parquet.NewWayNodeWriter(filepath.Join(dir, snapshotWayNodes), parquet.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create way node writer: %w", err)
	}
	defer func() {
		if cerr := nw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close way node writer: %w", cerr)
		}
	}()

	for _, w := range db.ways {
		if err := ww.Write(w); err != nil {
			return fmt.Errorf("failed to write way %d: %w", w.ID, err)
		}
		if err := nw.WriteWay(w); err != nil {
			return fmt.Errorf("failed to write nodes of way %d: %w", w.ID, err)
		}
	}
	return nil
}

func (db *Database) writeRelations(dir string) (err error) {
	rw, err := parquet.NewRelationWriter(filepath.Join(dir, snapshotRelations), parquet.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create relation writer: %w", err)
	}
	defer func() {
		if cerr := rw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close relation writer: %w", cerr)
		}
	}()
	mw, err := parquet.NewRelationMemberWriter(filepath.Join(dir, snapshotMembers), parquet.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create member writer: %w", err)
	}
	defer func() {
		if cerr := mw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close member writer: %w", cerr)
		}
	}()

	for _, r := range db.relations {
		if err := rw.Write(r); err != nil {
			return fmt.Errorf("failed to write relation %d: %w", r.ID, err)
		}
		if err := mw.WriteRelation(r); err != nil {
			return fmt.Errorf("failed to write members of relation %d: %w", r.ID, err)
		}
	}
	return nil
}

// LoadSnapshot reads a directory written by SaveSnapshot
func LoadSnapshot(dir string) (*Database, error) {
	ctx := context.Background()
	data, err := os.ReadFile(filepath.Join(dir, snapshotMeta))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	var meta snapshotMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid snapshot metadata: %w", err)
	}
	if meta.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", meta.Version)
	}

	b := NewBuilder()
	b.SetBounds(geo.NewBounds(
		geo.LatLon{Lat: meta.Bounds[1], Lon: meta.Bounds[0]},
		geo.LatLon{Lat: meta.Bounds[3], Lon: meta.Bounds[2]},
	))

	if err := readNodes(ctx, b, filepath.Join(dir, snapshotNodes)); err != nil {
		return nil, err
	}
	if err := readWays(ctx, b, dir); err != nil {
		return nil, err
	}
	if err := readRelations(ctx, b, dir); err != nil {
		return nil, err
	}
	return b.Build()
}

func readNodes(ctx context.Context, b *Builder, path string) error {
	t, err := parquet.ReadTable(ctx, path)
	if err != nil {
		return err
	}
	defer t.Release()

	ids, err := t.Int64s("id")
	if err != nil {
		return err
	}
	lats, err := t.Float64s("lat")
	if err != nil {
		return err
	}
	lons, err := t.Float64s("lon")
	if err != nil {
		return err
	}
	tags, err := t.Strings("tags")
	if err != nil {
		return err
	}

	for i, id := range ids {
		ts, err := parquet.TagsFromJSON(tags[i])
		if err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}
		b.Add(&osm.Node{ID: osm.NodeID(id), Lat: lats[i], Lon: lons[i], Tags: ts, Visible: true})
	}
	return nil
}

func readWays(ctx context.Context, b *Builder, dir string) error {
	t, err := parquet.ReadTable(ctx, filepath.Join(dir, snapshotWayNodes))
	if err != nil {
		return err
	}
	wayIDs, err := t.Int64s("way_id")
	if err != nil {
		t.Release()
		return err
	}
	seqs, err := t.Int32s("seq")
	if err != nil {
		t.Release()
		return err
	}
	nodeIDs, err := t.Int64s("node_id")
	t.Release()
	if err != nil {
		return err
	}

	refs := make(map[int64]osm.WayNodes)
	for i, wid := range wayIDs {
		seq := int(seqs[i])
		if seq < 0 {
			return fmt.Errorf("way %d: negative node sequence %d", wid, seq)
		}
		wn := refs[wid]
		if seq >= len(wn) {
			wn = append(wn, make(osm.WayNodes, seq+1-len(wn))...)
		}
		wn[seq] = osm.WayNode{ID: osm.NodeID(nodeIDs[i])}
		refs[wid] = wn
	}

	t, err = parquet.ReadTable(ctx, filepath.Join(dir, snapshotWays))
	if err != nil {
		return err
	}
	defer t.Release()
	ids, err := t.Int64s("id")
	if err != nil {
		return err
	}
	tags, err := t.Strings("tags")
	if err != nil {
		return err
	}
	for i, id := range ids {
		ts, err := parquet.TagsFromJSON(tags[i])
		if err != nil {
			return fmt.Errorf("way %d: %w", id, err)
		}
		b.Add(&osm.Way{ID: osm.WayID(id), Nodes: refs[id], Tags: ts, Visible: true})
	}
	return nil
}

func readRelations(ctx context.Context, b *Builder, dir string) error {
	t, err := parquet.ReadTable(ctx, filepath.Join(dir, snapshotMembers))
	if err != nil {
		return err
	}
	relIDs, err := t.Int64s("relation_id")
	if err != nil {
		t.Release()
		return err
	}
	types, err := t.Strings("type")
	if err != nil {
		t.Release()
		return err
	}
	memberRefs, err := t.Int64s("ref")
	if err != nil {
		t.Release()
		return err
	}
	roles, err := t.Strings("role")
	t.Release()
	if err != nil {
		return err
	}

	members := make(map[int64]osm.Members)
	for i, rid := range relIDs {
		members[rid] = append(members[rid], osm.Member{
			Type: osm.Type(types[i]),
			Ref:  memberRefs[i],
			Role: roles[i],
		})
	}

	t, err = parquet.ReadTable(ctx, filepath.Join(dir, snapshotRelations))
	if err != nil {
		return err
	}
	defer t.Release()
	ids, err := t.Int64s("id")
	if err != nil {
		return err
	}
	tags, err := t.Strings("tags")
	if err != nil {
		return err
	}
	for i, id := range ids {
		ts, err := parquet.TagsFromJSON(tags[i])
		if err != nil {
			return fmt.Errorf("relation %d: %w", id, err)
		}
		b.Add(&osm.Relation{ID: osm.RelationID(id), Members: members[id], Tags: ts, Visible: true})
	}
	return nil
}
