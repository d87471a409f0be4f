package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/tracker"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print database statistics",
	Long: `Stats reads the identity database from disk and prints a summary of
tracked persons, image counts and last-seen timestamps. It does not need the
camera or the detector service.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON := mustGetBool(cmd, "json")

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	store, err := catalog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	stats, err := tracker.CollectOffline(store)
	if err != nil {
		return fmt.Errorf("collecting statistics: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Database: %s\n", stats.DatabasePath)
	fmt.Printf("Total Persons: %d\n", stats.TotalPersons)

	names := make([]string, 0, len(stats.Persons))
	for name := range stats.Persons {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := catalog.ParseIdentityName(names[i])
		b, _ := catalog.ParseIdentityName(names[j])
		return a < b
	})
	for _, name := range names {
		p := stats.Persons[name]
		fmt.Printf("  %s: %d images", name, p.TotalImages)
		if !p.Metadata.LastSeen.IsZero() {
			fmt.Printf(", last seen %s", p.Metadata.LastSeen.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}
