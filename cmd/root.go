package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "estatemap",
	Short: "Residential listing geocoding and mapping pipeline",
	Long:  "Scrapes Gaoxin district listing data from fang.com, geocodes it through the Amap API, converts coordinates to WGS-84, fuses the resale and new-development datasets and publishes an interactive map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
