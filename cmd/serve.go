package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/vision"
	"github.com/kozaktomas/person-tracker/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the statistics HTTP API",
	Long: `Serve exposes the identity database over a small read-only HTTP API.
Useful for dashboards and for inspecting the database while the tracker runs
on another machine.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Bind address (overrides TRACKER_WEB_HOST)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides TRACKER_WEB_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}

	detector := vision.NewClient(cfg.Detector.URL,
		cfg.Tracking.MinFaceWidth, cfg.Tracking.MinFaceHeight, cfg.Detector.MinConfidence)

	store, err := catalog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refs, err := store.Load(ctx, detector.EmbedReference)
	if err != nil {
		return fmt.Errorf("loading existing database: %w", err)
	}
	g := gallery.New()
	for _, ref := range refs {
		g.Insert(ref.ID, ref.Embedding)
	}

	srv := web.NewServer(cfg.Web.Host, cfg.Web.Port, store, g, detector.EmbedReference, logger)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "host", cfg.Web.Host, "port", cfg.Web.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
