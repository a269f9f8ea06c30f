package cmd

import (
	"fmt"
	"time"

	"github.com/paulmach/osm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/logger"
)

var (
	infoTop int
	infoKey string
)

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Summarise an OSM extract",
	Long: `Print the bounds and entity counts of an extract, its relation member
roles and the most common way and relation tag keys.

With --key, print the most common values of that key instead.`,
	Args: cobra.ExactArgs(1),
	Run:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().IntVar(&infoTop, "top", 10, "Number of tag keys/values to list")
	infoCmd.Flags().StringVar(&infoKey, "key", "", "List the values of this tag key")
}

func runInfo(cmd *cobra.Command, args []string) {
	start := time.Now()
	db := loadDatabase(cmd.Context(), args[0])
	logger.Get().Info("Loaded input", zap.String("input", args[0]), elapsedSince(start))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, db.Summary())

	for _, kind := range []osm.Type{osm.TypeWay, osm.TypeRelation} {
		counts := db.TagKeys(kind)
		title := "keys"
		if infoKey != "" {
			counts = db.TagValuesForKey(kind, infoKey)
			title = fmt.Sprintf("values of %q", infoKey)
		}
		fmt.Fprintf(out, "Top %s %s (%d distinct):\n", kind, title, len(counts))
		for i, c := range counts {
			if i == infoTop {
				break
			}
			fmt.Fprintf(out, "  %8d  %s\n", c.Count, c.Text)
		}
	}
}
