// Package loader copies extracted features into PostGIS.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/config"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/parquet"
)

// FeaturesFile is the Parquet file the loader reads from the output directory
const FeaturesFile = "features.parquet"

// FeaturesTable is the destination table name
const FeaturesTable = "osm_features"

// Stats holds loader statistics
type Stats struct {
	RowsLoaded int64
}

// Loader loads the features Parquet file into PostgreSQL
type Loader struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	dropExisting  bool
	createIndexes bool
	log           *zap.Logger
}

// NewLoader creates a new PostgreSQL loader
func NewLoader(ctx context.Context, cfg *config.Config, dropExisting, createIndexes bool) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(max(cfg.Workers, 2))

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{
		cfg:           cfg,
		pool:          pool,
		dropExisting:  dropExisting,
		createIndexes: createIndexes,
		log:           logger.Named("loader"),
	}, nil
}

// Close closes connections
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

func (l *Loader) tableName() string {
	return pgx.Identifier{l.cfg.DBSchema, FeaturesTable}.Sanitize()
}

// Run loads <output-dir>/features.parquet into <schema>.osm_features
func (l *Loader) Run(ctx context.Context) (*Stats, error) {
	source := filepath.Join(l.cfg.OutputDir, FeaturesFile)
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("no features to load: %w", err)
	}

	if _, err := l.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return nil, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if l.cfg.DBSchema != "public" {
		schema := pgx.Identifier{l.cfg.DBSchema}.Sanitize()
		if _, err := l.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	l.log.Info("Loading table", zap.String("table", l.tableName()), zap.String("source", source))
	count, err := l.loadTableData(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", FeaturesTable, err)
	}
	l.log.Info("Table loaded", zap.String("table", l.tableName()), zap.Int64("rows", count))

	if l.createIndexes {
		if err := l.createTableIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		l.log.Info("Indexes created")
	}
	return &Stats{RowsLoaded: count}, nil
}

// createTableSQL returns the DDL for the features table
func createTableSQL(table string, srid int) string {
	return fmt.Sprintf(`
		CREATE UNLOGGED TABLE IF NOT EXISTS %s (
			osm_id BIGINT NOT NULL,
			osm_type CHAR(1) NOT NULL,
			feature_type TEXT NOT NULL,
			name TEXT,
			bounded BOOLEAN NOT NULL,
			area_m2 DOUBLE PRECISION,
			geom GEOMETRY(Geometry, %d)
		)
	`, table, srid)
}

func (l *Loader) loadTableData(ctx context.Context, source string) (int64, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	table := l.tableName()
	if l.dropExisting {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return 0, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := conn.Exec(ctx, createTableSQL(table, l.cfg.Projection)); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if !l.dropExisting {
		if _, err := conn.Exec(ctx, fmt.Sprintf("TRUNCATE %s", table)); err != nil {
			return 0, fmt.Errorf("failed to truncate table: %w", err)
		}
	}

	rows, err := parquet.ReadFeatures(ctx, source)
	if err != nil {
		return 0, err
	}
	count, err := l.copyFeatures(ctx, conn.Conn(), rows)
	if err != nil {
		return 0, err
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s SET LOGGED", table)); err != nil {
		l.log.Warn("Could not convert table to logged", zap.Error(err))
	}
	return count, nil
}

const tempTable = "osm_features_load_tmp"

func (l *Loader) copyFeatures(ctx context.Context, conn *pgx.Conn, rows []parquet.FeatureRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		CREATE TEMP TABLE %s (
			osm_id BIGINT,
			osm_type CHAR(1),
			feature_type TEXT,
			name TEXT,
			bounded BOOLEAN,
			area_m2 DOUBLE PRECISION,
			geom_wkb BYTEA
		) ON COMMIT DROP
	`, tempTable)); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	rowChan := make(chan []any, 1024)
	go func() {
		defer close(rowChan)
		for _, r := range rows {
			select {
			case rowChan <- []any{r.OSMID, r.OSMType, r.FeatureType, r.Name, r.Bounded, r.AreaM2, r.GeomWKB}:
			case <-ctx.Done():
				return
			}
		}
	}()

	copyCount, err := tx.CopyFrom(ctx,
		pgx.Identifier{tempTable},
		[]string{"osm_id", "osm_type", "feature_type", "name", "bounded", "area_m2", "geom_wkb"},
		&rowSource{ctx: ctx, rows: rowChan})
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	// geom_wkb is EWKB and carries its SRID
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (osm_id, osm_type, feature_type, name, bounded, area_m2, geom)
		SELECT osm_id, osm_type, feature_type, name, bounded, area_m2, ST_GeomFromEWKB(geom_wkb)
		FROM %s
		WHERE geom_wkb IS NOT NULL
	`, l.tableName(), tempTable)); err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return copyCount, nil
}

func (l *Loader) createTableIndexes(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SET maintenance_work_mem = '1GB'"); err != nil {
		l.log.Debug("Could not raise maintenance_work_mem", zap.Error(err))
	}

	table := l.tableName()
	stmts := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_geom_idx ON %s USING GIST (geom)", FeaturesTable, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_osm_id_idx ON %s (osm_id)", FeaturesTable, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_type_idx ON %s (feature_type)", FeaturesTable, table),
		fmt.Sprintf("ANALYZE %s", table),
	}
	for _, s := range stmts {
		if _, err := conn.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// rowSource implements pgx.CopyFromSource for streaming rows
type rowSource struct {
	ctx     context.Context
	rows    <-chan []any
	current []any
}

func (r *rowSource) Next() bool {
	row, ok := <-r.rows
	if !ok {
		return false
	}
	r.current = row
	return true
}

func (r *rowSource) Values() ([]any, error) {
	return r.current, nil
}

func (r *rowSource) Err() error {
	return r.ctx.Err()
}
