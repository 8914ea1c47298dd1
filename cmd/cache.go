package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the answer and embedding caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached answers and embeddings",
	RunE:  runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output as JSON")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// newCacheService wires just the cache; unlike buildApp it needs no API
// key, so cache maintenance works without one.
func newCacheService() (*cache.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger()
	cacheCfg := cfg.CacheConfig()
	return cache.NewService(cache.NewBackend(cacheCfg, log), cacheCfg, log), nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svc, err := newCacheService()
	if err != nil {
		return err
	}

	stats := svc.Stats(context.Background())

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Cache backend: %s\n", stats.Backend)
	fmt.Printf("  Entries: %d\n", stats.Entries)
	fmt.Printf("  Hits:    %d\n", stats.Hits)
	fmt.Printf("  Misses:  %d\n", stats.Misses)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	svc, err := newCacheService()
	if err != nil {
		return err
	}

	if err := svc.Clear(context.Background()); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Println("Cache cleared.")
	return nil
}
