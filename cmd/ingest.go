package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/pipeline"
)

var (
	ingestFile        string
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the full pipeline over a batch of tasks",
	Long:  "Reads a JSON array of tasks (subject, source URL, proposed changes) and runs each through fetch, quality, relevance, corroboration, and the verified-field gate.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", ingestFile)
		}

		var tasks []pipeline.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return eris.Wrap(err, "parse tasks")
		}
		if len(tasks) == 0 {
			return eris.New("no tasks in file")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := ingestConcurrency
		if concurrency == 0 {
			concurrency = cfg.Ingest.MaxConcurrentSubjects
		}

		zap.L().Info("starting batch ingest",
			zap.Int("tasks", len(tasks)),
			zap.Int("concurrency", concurrency),
		)

		outcomes, err := env.Pipeline.ProcessBatch(ctx, tasks, concurrency)
		if err != nil {
			return eris.Wrap(err, "batch ingest")
		}

		var fetched, failed, blocked, flagged int
		for _, out := range outcomes {
			if out == nil {
				continue
			}
			if out.FetchErr != nil {
				failed++
				continue
			}
			fetched++
			for _, co := range out.Changes {
				if co.Decision.Blocked {
					blocked++
				}
				if co.Change.ValidatedConfidence == model.ConfidenceFlagged {
					flagged++
				}
			}
		}

		zap.L().Info("batch ingest complete",
			zap.Int("fetched", fetched),
			zap.Int("fetch_failed", failed),
			zap.Int("changes_blocked", blocked),
			zap.Int("changes_flagged", flagged),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to tasks JSON (required)")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "max concurrent subjects (default from config)")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
