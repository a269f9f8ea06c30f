package cmd

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmmaps-go/internal/config"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/metrics"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
)

var (
	cfg        = config.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "osmmaps-go",
	Short: "Build map features from OpenStreetMap extracts",
	Long: `osmmaps-go loads an OSM extract (.osm, .osm.gz, .osm.bz2, .osm.zst,
.osm.pbf or a Parquet snapshot directory) and builds map features from it.

Features:
  - Multipolygon closing for lakes, islands and coastlines cut off by the
    extract's bounding box
  - Road network with street names and nearest-intersection lookup
  - GeoJSON, Parquet and PostGIS output
  - Lua classification scripts and YAML tag filters`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded

		if cfg.LogFile != "" {
			logger.InitWithFile(cfg.Verbose, cfg.LogFile)
		} else {
			logger.Init(cfg.Verbose)
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// ExecuteContext runs the CLI; ctx is cancelled on SIGINT/SIGTERM
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	def := config.DefaultConfig()
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&configFile, "config", "", "YAML config file (default ./osmmaps.yaml if present)")
	pf.BoolP("verbose", "v", false, "Enable verbose output")
	pf.StringP("output-dir", "o", def.OutputDir, "Directory for Parquet output")
	pf.IntP("workers", "j", def.Workers, "Number of parallel workers")
	pf.Int("batch-size", def.BatchSize, "Rows per Parquet row group")

	// Input and feature flags
	pf.StringP("bbox", "b", "", "Override map bounds: minlon,minlat,maxlon,maxlat")
	pf.IntP("projection", "E", def.Projection, "Output SRID (4326 or 3857)")
	pf.StringP("style", "S", "", "Style YAML file for tag filtering")
	pf.String("classify-script", "", "Lua script defining osmmaps.classify_way")

	// Closer flags
	pf.String("direction", def.Direction, "Closing direction around the bounds: cw, ccw or none")
	pf.Float64("max-boundary-distance", 0, "Reject way ends farther than this from the bounds (metres, 0 = no limit)")
	pf.Bool("coastline", def.Coastline, "Run coastline/island analysis")

	// Logging and metrics flags
	pf.String("log-file", "", "Path to log file for persistent logging (JSON format)")
	pf.Duration("metrics-interval", def.MetricsInterval, "Interval for system metrics logging (e.g., 10s, 1m)")
	pf.String("metrics-textfile", "", "Write closer metrics to this node_exporter textfile on exit")

	// Database flags (persistent so they're available to all subcommands)
	pf.String("db-host", def.DBHost, "PostgreSQL host")
	pf.Int("db-port", def.DBPort, "PostgreSQL port")
	pf.StringP("db-name", "d", def.DBName, "PostgreSQL database name")
	pf.StringP("db-user", "U", def.DBUser, "PostgreSQL user")
	pf.StringP("db-password", "W", def.DBPassword, "PostgreSQL password")
	pf.String("db-schema", def.DBSchema, "PostgreSQL schema")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}

// loadDatabase reads the input and applies the --bbox override
func loadDatabase(ctx context.Context, path string) *osmdb.Database {
	db, err := osmdb.Load(ctx, path)
	if err != nil {
		exitWithError("failed to load input", err)
	}
	if cfg.BBox != nil && cfg.BBox.IsSet {
		db.SetBounds(cfg.BBox.Bounds())
		logger.Get().Info("Using bounds from --bbox", zap.Stringer("bounds", db.Bounds()))
	}
	return db
}

// runMetrics is a command's metric registry plus the sampler that
// attributes resource use to the command's phases
type runMetrics struct {
	*metrics.Metrics
	sampler *metrics.Collector
	stop    func()
}

// phase marks the start of the next stage of the command
func (r *runMetrics) phase(name string) {
	r.sampler.StartPhase(name)
}

// Stop ends sampling and writes the textfile if one was requested
func (r *runMetrics) Stop() {
	r.stop()
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := r.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Get().Warn("Failed to write metrics", zap.Error(err))
		return
	}
	logger.Get().Info("Metrics written", zap.String("path", cfg.MetricsTextfile))
}

// startMetrics starts system sampling for a command
func startMetrics(ctx context.Context) *runMetrics {
	m := metrics.New()
	sampler := metrics.NewCollector(cfg.MetricsInterval, logger.Named("metrics"), m)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sampler.Start(ctx)
	}()

	return &runMetrics{
		Metrics: m,
		sampler: sampler,
		stop: func() {
			cancel()
			<-done
		},
	}
}

func elapsedSince(start time.Time) zap.Field {
	return zap.Duration("duration", time.Since(start).Round(time.Millisecond))
}
