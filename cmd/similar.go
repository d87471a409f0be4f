package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/vision"
)

var similarCmd = &cobra.Command{
	Use:   "similar [person]",
	Short: "Find identities with similar reference faces",
	Long: `Similar builds an approximate-nearest-neighbor index over the stored
reference embeddings and reports, for each identity (or a single named one),
its closest neighbors. Pairs under the duplicate threshold are likely the same
person split across two folders.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("top", 3, "Number of neighbors to report per identity")
	similarCmd.Flags().Float64("threshold", 0.6, "Distance below which a pair is flagged as a likely duplicate")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	top := mustGetInt(cmd, "top")
	threshold := mustGetFloat64(cmd, "threshold")

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	detector := vision.NewClient(cfg.Detector.URL,
		cfg.Tracking.MinFaceWidth, cfg.Tracking.MinFaceHeight, cfg.Detector.MinConfidence)

	store, err := catalog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	refs, err := store.Load(context.Background(), detector.EmbedReference)
	if err != nil {
		return fmt.Errorf("loading existing database: %w", err)
	}
	if len(refs) < 2 {
		fmt.Println("Need at least two identities to compare.")
		return nil
	}

	g := gallery.New()
	for _, ref := range refs {
		g.Insert(ref.ID, ref.Embedding)
	}

	index, err := gallery.BuildSimilarIndex(g.Entries())
	if err != nil {
		return fmt.Errorf("building similarity index: %w", err)
	}

	queries := refs
	if len(args) == 1 {
		id, ok := catalog.ParseIdentityName(args[0])
		if !ok {
			return fmt.Errorf("invalid person name %q", args[0])
		}
		queries = nil
		for _, ref := range refs {
			if ref.ID == id {
				queries = []catalog.Reference{ref}
				break
			}
		}
		if queries == nil {
			return fmt.Errorf("person %q not found in database", args[0])
		}
	}

	duplicates := 0
	for _, ref := range queries {
		// One extra slot since the query always finds itself.
		neighbors := index.Search(ref.Embedding, top+1)

		fmt.Printf("%s:\n", ref.Name)
		for _, n := range neighbors {
			if n.ID == ref.ID {
				continue
			}
			marker := ""
			if n.Distance < threshold {
				marker = "  <- likely duplicate"
				duplicates++
			}
			fmt.Printf("  %s  distance=%.4f%s\n", catalog.IdentityName(n.ID), n.Distance, marker)
		}
	}

	if duplicates > 0 {
		fmt.Printf("\n%d likely duplicate pair(s) flagged. Consider merging their folders.\n", duplicates)
	}
	return nil
}
