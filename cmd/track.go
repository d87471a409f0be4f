package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/tracker"
	"github.com/kozaktomas/person-tracker/internal/vision"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Start real-time person tracking",
	Long: `Track opens the camera and runs the detection loop until interrupted.
Each detected face is matched against the local database; unknown faces are
registered as new persons, and repeat sightings are saved at most once per
update interval.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().Bool("preview", false, "Show a live preview window with bounding boxes")
}

func runTrack(cmd *cobra.Command, args []string) error {
	showPreview := mustGetBool(cmd, "preview")

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	fmt.Println("Person Detection and Tracking System")
	fmt.Println("===================================")
	fmt.Printf("Database Path: %s\n", cfg.Database.Path)
	fmt.Printf("Update Interval: %d seconds\n", cfg.Tracking.UpdateIntervalSec)
	fmt.Printf("Similarity Threshold: %v\n", cfg.Tracking.SimilarityThreshold)
	fmt.Println()

	detector := vision.NewClient(cfg.Detector.URL,
		cfg.Tracking.MinFaceWidth, cfg.Tracking.MinFaceHeight, cfg.Detector.MinConfidence)

	store, err := catalog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	// Rebuild the gallery from existing identity folders.
	refs, err := store.Load(ctx, detector.EmbedReference)
	if err != nil {
		return fmt.Errorf("loading existing database: %w", err)
	}
	g := gallery.New()
	for _, ref := range refs {
		g.Insert(ref.ID, ref.Embedding)
	}

	camera, err := vision.OpenCamera(cfg.Camera.Device, cfg.Camera.FrameWidth, cfg.Camera.FrameHeight)
	if err != nil {
		return fmt.Errorf("initializing camera: %w", err)
	}
	logger.Info("camera initialized", "device", cfg.Camera.Device)

	var render tracker.RenderFunc
	if showPreview {
		preview := vision.NewPreview("Person Tracker")
		defer preview.Close()
		render = preview.Render
	}

	tr := tracker.New(tracker.Options{
		Store:       store,
		Gallery:     g,
		Source:      camera,
		Detector:    detector,
		Threshold:   cfg.Tracking.SimilarityThreshold,
		Interval:    cfg.Tracking.UpdateInterval(),
		CropPadding: cfg.Tracking.CropPadding,
		CycleDelay:  cfg.Tracking.CycleDelay(),
		Render:      render,
		Logger:      logger,
	})

	fmt.Println("Starting tracking... Press Ctrl+C to quit.")
	if err := tr.Run(ctx); err != nil {
		return fmt.Errorf("tracking failed: %w", err)
	}

	printStatistics(tracker.Collect(g, store))
	return nil
}

func printStatistics(stats tracker.Statistics) {
	fmt.Printf("\nFinal Statistics:\n")
	fmt.Printf("Total Persons Tracked: %d\n", stats.TotalPersons)

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
		fmt.Printf("  %s: %d images\n", name, stats.Persons[name].TotalImages)
	}
}
