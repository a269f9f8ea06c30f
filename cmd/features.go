package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/classify"
	"github.com/wegman-software/osmmaps-go/internal/feature"
	"github.com/wegman-software/osmmaps-go/internal/geojson"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
	"github.com/wegman-software/osmmaps-go/internal/style"
)

var (
	featuresGeoJSON   string
	featuresNoParquet bool
	compactJSON       bool
)

var featuresCmd = &cobra.Command{
	Use:   "features <input>",
	Short: "Extract map features to Parquet and/or GeoJSON",
	Long: `Classify ways, close multipolygon relations and analyse coastlines,
then write the features to <output-dir>/features.parquet (EWKB geometry in
the --projection SRID) and optionally to a GeoJSON file.

Relations are closed in parallel (-j workers). Ways cut off by the map
bounds are closed along the bounding box and marked bounded=false.`,
	Args: cobra.ExactArgs(1),
	Run:  runFeatures,
}

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().StringVar(&featuresGeoJSON, "geojson", "", "Also write GeoJSON to this file (- for stdout)")
	featuresCmd.Flags().BoolVar(&featuresNoParquet, "no-parquet", false, "Skip features.parquet")
	featuresCmd.Flags().BoolVar(&compactJSON, "compact", false, "Write compact GeoJSON")
}

// extractOptions builds feature.Options from the configuration. The
// returned function releases the Lua runtime.
func extractOptions(observer feature.DiagnosticObserver) (feature.Options, func()) {
	opts := feature.Options{
		Workers:             cfg.Workers,
		MaxBoundaryDistance: cfg.MaxBoundaryDistance,
		Coastline:           cfg.Coastline,
		Observer:            observer,
		Logger:              logger.Named("feature"),
	}
	cleanup := func() {}

	if cfg.StyleFile != "" {
		st, err := style.LoadConfig(cfg.StyleFile)
		if err != nil {
			exitWithError("failed to load style", err)
		}
		opts.Style = st
	}
	if cfg.ClassifyScript != "" {
		rt := classify.NewRuntime(logger.Named("lua"))
		if err := rt.LoadFile(cfg.ClassifyScript); err != nil {
			rt.Close()
			exitWithError("failed to load classify script", err)
		}
		opts.Classifier = rt
		cleanup = rt.Close
	}
	return opts, cleanup
}

func extractFeatures(ctx context.Context, m *runMetrics, db *osmdb.Database) *feature.Result {
	log := logger.Get()
	m.phase("extract")
	opts, cleanup := extractOptions(m)
	defer cleanup()

	res, err := feature.Extract(ctx, db, opts)
	if err != nil {
		exitWithError("feature extraction failed", err)
	}
	m.ObserveFeatures(res.Features)

	log.Info("Features extracted",
		zap.Int("way_features", res.Stats.WayFeatures),
		zap.Int("relation_features", res.Stats.RelationFeatures),
		zap.Int("relations", res.Stats.Relations),
		zap.Int("unbounded", res.Stats.Unbounded),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Bool("island", res.IsIsland),
		zap.Duration("duration", res.Stats.Duration.Round(time.Millisecond)))
	return res
}

func runFeatures(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := cmd.Context()

	m := startMetrics(ctx)
	defer m.Stop()

	m.phase("load")
	start := time.Now()
	db := loadDatabase(ctx, args[0])
	log.Info("Loaded input", zap.String("input", args[0]), elapsedSince(start))

	res := extractFeatures(ctx, m, db)
	m.phase("write")

	if !featuresNoParquet {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			exitWithError("failed to create output directory", err)
		}
		path := filepath.Join(cfg.OutputDir, "features.parquet")
		n, err := feature.WriteParquet(path, res.Features, cfg.Projection, cfg.BatchSize)
		if err != nil {
			exitWithError("failed to write features", err)
		}
		log.Info("Wrote Parquet", zap.String("path", path), zap.Int64("rows", n), zap.Int("srid", cfg.Projection))
	}

	if featuresGeoJSON != "" {
		if err := geojson.WriteFile(featuresGeoJSON, geojson.FromFeatures(res.Features), compactJSON); err != nil {
			exitWithError("failed to write GeoJSON", err)
		}
	}
}
