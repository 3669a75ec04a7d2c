package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/monitoring"
)

var statusHours int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize pipeline health from the audit trail",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Offline inspection: no gateway is live here.
		snap, err := monitoring.NewCollector(st, nil).Collect(ctx, statusHours)
		if err != nil {
			return eris.Wrap(err, "collect metrics")
		}

		alerts := monitoring.Check(snap, monitoring.DefaultThresholds())
		for _, a := range alerts {
			if a.Level == "critical" {
				zap.L().Error(a.Message)
			} else {
				zap.L().Warn(a.Message)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"snapshot": snap,
			"alerts":   alerts,
		})
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHours, "hours", 24, "lookback window in hours")
	rootCmd.AddCommand(statusCmd)
}
