package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/logger"
)

var snapshotDir string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <input>",
	Short: "Save an extract as a Parquet snapshot directory",
	Long: `Decode an OSM extract once and save it as Parquet tables:

  - nodes.parquet            (id, lat, lon, tags)
  - ways.parquet             (id, tags)
  - way_nodes.parquet        (way_id, seq, node_id)
  - relations.parquet        (id, tags)
  - relation_members.parquet (relation_id, seq, type, ref, role)
  - meta.yaml                (bounds and counts)

Every other command accepts the snapshot directory as input, which is much
faster to load than XML.`,
	Args: cobra.ExactArgs(1),
	Run:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVar(&snapshotDir, "dir", "", "Snapshot directory (default <output-dir>/snapshot)")
}

func runSnapshot(cmd *cobra.Command, args []string) {
	log := logger.Get()
	dir := snapshotDir
	if dir == "" {
		dir = filepath.Join(cfg.OutputDir, "snapshot")
	}

	start := time.Now()
	db := loadDatabase(cmd.Context(), args[0])
	s := db.Summary()
	log.Info("Loaded input",
		zap.String("input", args[0]),
		zap.Int("nodes", s.Nodes),
		zap.Int("ways", s.Ways),
		zap.Int("relations", s.Relations),
		elapsedSince(start))

	start = time.Now()
	if err := db.SaveSnapshot(dir); err != nil {
		exitWithError("failed to save snapshot", err)
	}
	log.Info("Snapshot saved", zap.String("dir", dir), elapsedSince(start))
}
