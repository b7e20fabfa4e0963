package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/geocache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge-unresolved",
	Short: "Drop cached negative results so the next run retries them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cache, err := geocache.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		if err := cache.Migrate(cmd.Context()); err != nil {
			return err
		}
		n, err := cache.PurgeUnresolved(cmd.Context())
		if err != nil {
			return err
		}
		zap.L().Info("purged unresolved cache entries", zap.Int("entries", n))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
