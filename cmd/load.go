package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmmaps-go/internal/loader"
	"github.com/wegman-software/osmmaps-go/internal/logger"
)

var (
	createIndexes bool
	dropExisting  bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load extracted features into PostgreSQL",
	Long: `Bulk load <output-dir>/features.parquet (written by "features") into
PostgreSQL/PostGIS.

This stage:
  1. Creates the osm_features table (SRID from --projection)
  2. Uses COPY for high-speed bulk loading
  3. Optionally creates spatial, osm_id and feature_type indexes`,
	Args: cobra.NoArgs,
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&createIndexes, "create-indexes", true, "Create indexes after loading")
	loadCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop existing table before loading")
}

func runLoad(cmd *cobra.Command, args []string) {
	log := logger.Get()
	log.Info("Starting PostgreSQL load",
		zap.String("input_dir", cfg.OutputDir),
		zap.String("database", cfg.DBName),
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("user", cfg.DBUser),
		zap.String("schema", cfg.DBSchema),
	)

	ctx := cmd.Context()
	start := time.Now()

	ldr, err := loader.NewLoader(ctx, cfg, dropExisting, createIndexes)
	if err != nil {
		exitWithError("failed to create loader", err)
	}
	defer ldr.Close()

	stats, err := ldr.Run(ctx)
	if err != nil {
		exitWithError("load failed", err)
	}

	elapsed := time.Since(start)

	log.Info("Load complete",
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.Int64("rows", stats.RowsLoaded),
		zap.Float64("throughput_rows_s", float64(stats.RowsLoaded)/elapsed.Seconds()),
	)
}
