package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arena",
		Short: "Arena - competitive query plan evaluation",
		Long: `Arena runs several candidate query plans against the same data in a
round-robin trial, ranks them by observed productivity, and serves the rest
of the query from the winner.

Features:
  - Bounded round-robin trials with work and result budgets
  - Productivity ranking with tie detection
  - Plan cache with always/sometimes/never commit policies
  - Backup failover when a blocking winner fails before producing output
  - Per-candidate failure isolation`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "arena.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}
