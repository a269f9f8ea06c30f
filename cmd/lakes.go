package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/feature"
	"github.com/wegman-software/osmmaps-go/internal/geojson"
	"github.com/wegman-software/osmmaps-go/internal/logger"
)

var lakesGeoJSON string

var lakesCmd = &cobra.Command{
	Use:   "lakes <input>",
	Short: "Report water bodies, islands and the coastline",
	Long: `Close lake and river relations and coastline ways and decide whether the
map shows an island. Prints one line per water or island feature and writes
them as GeoJSON.`,
	Args: cobra.ExactArgs(1),
	Run:  runLakes,
}

func init() {
	rootCmd.AddCommand(lakesCmd)

	lakesCmd.Flags().StringVar(&lakesGeoJSON, "geojson", "-", "GeoJSON output file (- for stdout, empty to skip)")
	lakesCmd.Flags().BoolVar(&compactJSON, "compact", false, "Write compact GeoJSON")
}

func runLakes(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	m := startMetrics(ctx)
	defer m.Stop()

	m.phase("load")
	start := time.Now()
	db := loadDatabase(ctx, args[0])
	logger.Get().Info("Loaded input", zap.String("input", args[0]), elapsedSince(start))

	cfg.Coastline = true
	res := extractFeatures(ctx, m, db)

	var water []feature.Feature
	for _, f := range res.Features {
		if f.IsWater() || f.Type == feature.Island {
			water = append(water, f)
		}
	}

	out := cmd.ErrOrStderr()
	if lakesGeoJSON != "-" {
		out = cmd.OutOrStdout()
	}
	fmt.Fprintf(out, "Map is an island: %t\n", res.IsIsland)
	for _, f := range water {
		fmt.Fprintf(out, "  %s area=%.0f m2\n", f, f.Area())
	}

	if lakesGeoJSON != "" {
		m.phase("write")
		if err := geojson.WriteFile(lakesGeoJSON, geojson.FromFeatures(water), compactJSON); err != nil {
			exitWithError("failed to write GeoJSON", err)
		}
	}
}
