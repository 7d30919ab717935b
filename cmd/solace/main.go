package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/solace/internal/config"
)

var version = "dev"

var noColor bool

// loadConfig is swapped out in tests.
var loadConfig = config.Load

var rootCmd = &cobra.Command{
	Use:           "solace",
	Short:         "Wellness profile store and sync service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
