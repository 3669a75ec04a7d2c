package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "marquee-cli",
	Short: "Theatrical data ingestion and trust pipeline",
	Long:  "Fetches source documents across tiered providers, classifies content quality, corroborates proposed changes against the evidence pool, and guards verified fields.",
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
