package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/vision"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every identity reference image",
	Long: `Reindex walks the identity folders, sends the first image of each
person through the detector service and reports which identities still have a
usable reference. Run it after upgrading the detector model or after manually
editing the database folders.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	detector := vision.NewClient(cfg.Detector.URL,
		cfg.Tracking.MinFaceWidth, cfg.Tracking.MinFaceHeight, cfg.Detector.MinConfidence)

	store, err := catalog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	dirs, err := store.IdentityDirs()
	if err != nil {
		return fmt.Errorf("listing identity folders: %w", err)
	}
	if len(dirs) == 0 {
		fmt.Println("Database is empty, nothing to reindex.")
		return nil
	}

	bar := progressbar.NewOptions(len(dirs),
		progressbar.OptionSetDescription("Reindexing identities"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	ctx := context.Background()
	var loaded, skipped int
	for _, name := range dirs {
		_ = bar.Add(1)

		id, ok := catalog.ParseIdentityName(name)
		if !ok {
			skipped++
			continue
		}
		imgPath, ok := store.FirstImage(id)
		if !ok {
			logger.Warn("identity has no reference image", "person", name)
			skipped++
			continue
		}
		data, err := os.ReadFile(imgPath)
		if err != nil {
			logger.Warn("could not read reference image", "person", name, "error", err)
			skipped++
			continue
		}
		if _, err := detector.EmbedReference(ctx, data); err != nil {
			if errors.Is(err, vision.ErrNoFace) {
				logger.Warn("no face found in reference image", "person", name, "image", imgPath)
			} else {
				logger.Warn("embedding failed", "person", name, "error", err)
			}
			skipped++
			continue
		}
		loaded++
	}

	fmt.Printf("\nReindex complete: %d identities usable, %d skipped.\n", loaded, skipped)
	if skipped > 0 {
		fmt.Println("Skipped identities will not be matched until they get a valid reference image.")
	}

	return nil
}
