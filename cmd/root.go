package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "person-tracker",
	Short: "Real-time person detection and tracking with a local face database",
	Long: `Person Tracker watches a camera stream, detects faces, and maintains a
local database with one folder per unique individual. Faces are matched
against known identities by embedding distance; new individuals get a new
folder, and repeat sightings are captured at most once per configured
interval.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
