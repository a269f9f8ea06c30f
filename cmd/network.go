package cmd

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/config"
	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/geojson"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/network"
	"github.com/wegman-software/osmmaps-go/internal/style"
)

var (
	networkNear    string
	networkGeoJSON string
)

var networkCmd = &cobra.Command{
	Use:   "network <input>",
	Short: "Build the road network and print statistics",
	Long: `Build the road graph from highway ways: intersections, street segments with
curve points, one-way restrictions and max speeds, and named streets.

With --near lat,lon, print the nearest intersection and its street names.`,
	Args: cobra.ExactArgs(1),
	Run:  runNetwork,
}

func init() {
	rootCmd.AddCommand(networkCmd)

	networkCmd.Flags().StringVar(&networkNear, "near", "", "Find the intersection nearest to lat,lon")
	networkCmd.Flags().StringVar(&networkGeoJSON, "geojson", "", "Write street segments as GeoJSON to this file (- for stdout)")
	networkCmd.Flags().BoolVar(&compactJSON, "compact", false, "Write compact GeoJSON")
}

func runNetwork(cmd *cobra.Command, args []string) {
	log := logger.Get()
	var near geo.LatLon
	if networkNear != "" {
		p, err := config.ParseLatLon(networkNear)
		if err != nil {
			exitWithError("invalid --near", err)
		}
		near = p
	}

	start := time.Now()
	db := loadDatabase(cmd.Context(), args[0])
	log.Info("Loaded input", zap.String("input", args[0]), elapsedSince(start))

	opts := network.Options{Logger: logger.Named("network")}
	if cfg.StyleFile != "" {
		st, err := style.LoadConfig(cfg.StyleFile)
		if err != nil {
			exitWithError("failed to load style", err)
		}
		opts.Filter = st.Roads
	}
	n, err := network.Build(db, opts)
	if err != nil {
		exitWithError("failed to build network", err)
	}

	out := cmd.OutOrStdout()
	if networkGeoJSON == "-" {
		out = cmd.ErrOrStderr()
	}
	s := n.Stats
	fmt.Fprintf(out, "%d intersections, %d segments, %d curve points, %d streets\n",
		len(n.Intersections), len(n.Segments), s.CurvePoints, len(n.Streets)-1)
	fmt.Fprintf(out, "Used %d/%d ways\n", s.Ways, len(db.Ways()))
	fmt.Fprintf(out, "One-way: %d/%d (%d reversible, %d unknown)\n",
		s.Forward+s.Backward, s.Ways, s.Reversible, s.UnknownOneWay)
	fmt.Fprintf(out, "Default max speed on %d/%d segments\n", s.DefaultSpeed, len(n.Segments))
	if s.DanglingRefs > 0 {
		fmt.Fprintf(out, "Dangling node references: %d\n", s.DanglingRefs)
	}

	degrees := n.Degrees()
	keys := make([]int, 0, len(degrees))
	for d := range degrees {
		keys = append(keys, d)
	}
	slices.Sort(keys)
	fmt.Fprintln(out, "Intersection degree histogram:")
	for _, d := range keys {
		fmt.Fprintf(out, "  %3d segments: %d intersections\n", d, degrees[d])
	}

	if networkNear != "" {
		in, ok := n.Nearest(near)
		if !ok {
			fmt.Fprintln(out, "No intersections")
		} else {
			fmt.Fprintf(out, "Nearest intersection to %s: #%d node %d at %s: %s\n",
				near, in.ID, in.NodeID, in.Point, n.IntersectionName(in.ID))
		}
	}

	if networkGeoJSON != "" {
		if err := geojson.WriteFile(networkGeoJSON, geojson.FromNetwork(n), compactJSON); err != nil {
			exitWithError("failed to write GeoJSON", err)
		}
	}
}
