package cmd

import (
	"fmt"
	"strings"

	"github.com/paulmach/osm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/feature"
	"github.com/wegman-software/osmmaps-go/internal/geojson"
	"github.com/wegman-software/osmmaps-go/internal/logger"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
)

var (
	closeRelation int64
	closeRole     string
	closeTag      string
	closeGeoJSON  string
	closeFilter   string
)

var closeCmd = &cobra.Command{
	Use:   "close <input> (--relation ID | --tag key=value)",
	Short: "Close a set of ways into loops and report the result",
	Long: `Run the multipolygon closer on the member ways of one relation, or on every
way carrying a tag, and print the loops it forms and every diagnostic.

Ways are joined where they share end nodes. Ends left over are snapped to
the map bounds and connected by walking around the bounds in --direction
(cw, ccw or none), inserting corner points.`,
	Args: cobra.ExactArgs(1),
	Run:  runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)

	closeCmd.Flags().Int64Var(&closeRelation, "relation", 0, "Relation whose member ways are closed")
	closeCmd.Flags().StringVar(&closeRole, "role", "outer", "Member role to use with --relation (* for all)")
	closeCmd.Flags().StringVar(&closeTag, "tag", "", "Close all ways with this key=value tag (key alone matches any value)")
	closeCmd.Flags().StringVar(&closeFilter, "loops", "all", "Loops to print: all, bounded or unbounded")
	closeCmd.Flags().StringVar(&closeGeoJSON, "geojson", "", "Write loops as GeoJSON to this file (- for stdout)")
	closeCmd.MarkFlagsMutuallyExclusive("relation", "tag")
	closeCmd.MarkFlagsOneRequired("relation", "tag")
}

func parseBoundedness(s string) (closer.Boundedness, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return closer.All, nil
	case "bounded":
		return closer.Bounded, nil
	case "unbounded":
		return closer.Unbounded, nil
	default:
		return closer.All, fmt.Errorf("invalid loop filter %q (expected all, bounded or unbounded)", s)
	}
}

// selectWays gathers the closer input for the close command
func selectWays(db *osmdb.Database) ([]closer.Way, []closer.Diagnostic, error) {
	var ways []*osm.Way
	switch {
	case closeRelation != 0:
		r, ok := db.Relation(osm.RelationID(closeRelation))
		if !ok {
			return nil, nil, fmt.Errorf("relation %d not found", closeRelation)
		}
		for _, m := range r.Members {
			if m.Type != osm.TypeWay || (closeRole != "*" && m.Role != closeRole) {
				continue
			}
			if w, ok := db.Way(osm.WayID(m.Ref)); ok {
				ways = append(ways, w)
			} else {
				logger.Get().Warn("Relation member way missing", zap.Int64("way_id", m.Ref))
			}
		}
	default:
		key, value, hasValue := strings.Cut(closeTag, "=")
		for _, w := range db.Ways() {
			v := w.Tags.Find(key)
			if v != "" && (!hasValue || v == value) {
				ways = append(ways, w)
			}
		}
	}

	out := make([]closer.Way, 0, len(ways))
	var diags []closer.Diagnostic
	for _, w := range ways {
		cw, d := feature.CloserWay(db, w)
		out = append(out, cw)
		diags = append(diags, d...)
	}
	return out, diags, nil
}

func runClose(cmd *cobra.Command, args []string) {
	log := logger.Get()
	dir, err := cfg.CloserDirection()
	if err != nil {
		exitWithError("invalid direction", err)
	}
	filter, err := parseBoundedness(closeFilter)
	if err != nil {
		exitWithError("invalid --loops", err)
	}

	ctx := cmd.Context()
	m := startMetrics(ctx)
	defer m.Stop()

	m.phase("load")
	db := loadDatabase(ctx, args[0])
	ways, diags, err := selectWays(db)
	if err != nil {
		exitWithError("failed to select ways", err)
	}
	log.Info("Closing ways", zap.Int("ways", len(ways)), zap.Stringer("direction", dir))

	m.phase("close")

	opts := []closer.Option{closer.WithDirection(dir), closer.WithLogger(logger.Named("closer"))}
	if cfg.MaxBoundaryDistance > 0 {
		opts = append(opts, closer.WithMaxBoundaryDistance(cfg.MaxBoundaryDistance))
	}
	c := closer.New(db.Bounds(), ways, opts...)
	diags = append(diags, c.Diagnostics()...)
	m.ObserveDiagnostics(diags)

	out := cmd.OutOrStdout()
	if closeGeoJSON == "-" {
		out = cmd.ErrOrStderr()
	}
	loops := c.Loops(filter)
	fmt.Fprintf(out, "%d loops (%d bounded), %d unresolved ways\n",
		c.LoopCount(closer.All), c.LoopCount(closer.Bounded), len(c.UnresolvedWayIDs()))
	for i, l := range loops {
		fmt.Fprintf(out, "  loop %d: %d points, bounded=%t, ways %v\n", i, len(l.Points), l.Bounded, l.Ways)
	}
	if ids := c.UnresolvedWayIDs(); len(ids) > 0 {
		fmt.Fprintf(out, "  unresolved: %v\n", ids)
	}
	counts := closer.CountDiagnostics(diags)
	for _, k := range closer.Kinds() {
		if counts[k] > 0 {
			fmt.Fprintf(out, "  %-22s %d\n", k, counts[k])
		}
	}
	if cfg.Verbose {
		for _, d := range diags {
			fmt.Fprintf(out, "    %s\n", d)
		}
	}

	if closeGeoJSON != "" {
		m.phase("write")
		if err := geojson.WriteFile(closeGeoJSON, geojson.FromLoops(loops), false); err != nil {
			exitWithError("failed to write GeoJSON", err)
		}
	}
}
