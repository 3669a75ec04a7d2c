package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/corroborate"
	"github.com/marquee-data/marquee-cli/internal/guardian"
	"github.com/marquee-data/marquee-cli/internal/model"
)

var (
	validateFile   string
	validateDryRun bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Corroborate proposed changes against the evidence pool",
	Long:  "Reads a JSON array of proposed changes and runs each through corroboration and the verified-field gate without fetching. Accepted changes are persisted unless --dry-run is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(validateFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", validateFile)
		}

		var changes []model.ProposedChange
		if err := json.Unmarshal(data, &changes); err != nil {
			return eris.Wrap(err, "parse changes")
		}
		if len(changes) == 0 {
			return eris.New("no changes in file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := corroborate.NewEngine()
		guard := guardian.New(cfg.Guardian.Overrides)

		type verdict struct {
			Change    model.ValidatedChange `json:"change"`
			Decision  guardian.Decision     `json:"decision"`
			Persisted bool                  `json:"persisted"`
		}

		verdicts := make([]verdict, 0, len(changes))
		var blocked, flagged int

		for _, change := range changes {
			pool, err := st.ListEvidence(ctx, change.SubjectID, change.Field)
			if err != nil {
				return eris.Wrap(err, "list evidence")
			}
			verification, err := st.GetVerification(ctx, change.SubjectID)
			if err != nil {
				return eris.Wrap(err, "get verification")
			}

			validated := engine.Validate(change, pool)
			decision := guard.Guard(validated, verification)

			v := verdict{Change: validated, Decision: decision}

			if validated.ValidatedConfidence == model.ConfidenceFlagged {
				flagged++
			}
			if decision.Blocked {
				blocked++
			} else if !validateDryRun {
				if err := st.SaveChange(ctx, validated); err != nil {
					return eris.Wrap(err, "save change")
				}
				v.Persisted = true
			}

			verdicts = append(verdicts, v)
		}

		zap.L().Info("validation complete",
			zap.Int("changes", len(changes)),
			zap.Int("blocked", blocked),
			zap.Int("flagged", flagged),
			zap.Bool("dry_run", validateDryRun),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdicts)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "path to proposed-changes JSON (required)")
	validateCmd.Flags().BoolVar(&validateDryRun, "dry-run", false, "validate without persisting accepted changes")
	_ = validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}
