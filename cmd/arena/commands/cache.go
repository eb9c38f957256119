package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planarena/planarena/pkg/cache"
	"github.com/planarena/planarena/pkg/config"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the plan cache",
	}

	cmd.AddCommand(newCacheListCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached ranking decisions",
		Long: `List the entries in the sqlite plan cache, newest first. Only the
sqlite backend is listable; the in-memory backend lives and dies with a
single process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != "sqlite" {
				return fmt.Errorf("cache list requires the sqlite backend, configured backend is %q", cfg.Cache.Backend)
			}

			store, err := cache.NewSQLiteStore(cache.SQLiteConfig{Path: cfg.Cache.Path})
			if err != nil {
				return err
			}
			if err := store.Init(cmd.Context()); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			entries, err := store.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(entries) == 0 {
				fmt.Println("Plan cache is empty")
				return nil
			}

			fmt.Printf("%-40s %-30s %-6s %s\n", "SHAPE", "WINNER", "PLANS", "CREATED")
			for _, entry := range entries {
				winner := ""
				if len(entry.Solutions) > 0 {
					winner = entry.Solutions[0].PlanID
				}
				fmt.Printf("%-40s %-30s %-6d %s\n",
					entry.Shape.Key, winner, len(entry.Solutions),
					entry.CreatedAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from the plan cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			planCache, closeCache, err := openCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			before, err := planCache.Len(cmd.Context())
			if err != nil {
				return err
			}
			if err := planCache.Clear(cmd.Context()); err != nil {
				return err
			}

			log.Info().Int("entries", before).Msg("Plan cache cleared")
			fmt.Printf("Cleared %d entries\n", before)
			return nil
		},
	}
}
