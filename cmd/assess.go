package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/gateway"
	"github.com/marquee-data/marquee-cli/internal/quality"
)

var (
	assessURL     string
	assessSubject string
	assessRender  bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Fetch one URL and classify its content quality",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Gateway.Fetch(ctx, gateway.FetchRequest{
			URL:           assessURL,
			RequireRender: assessRender,
		})
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		title := ""
		if env.Refdata != nil {
			title, _ = env.Refdata.SubjectTitle(assessSubject)
		}

		var lookup quality.SubjectLookup
		if env.Refdata != nil {
			lookup = env.Refdata
		}
		qc := quality.New(qualityConfig(), lookup)

		assessment := qc.Assess(res.Content, quality.Context{
			SubjectID:     assessSubject,
			ExpectedTitle: title,
			SourceURL:     assessURL,
		})

		if err := env.Store.SaveAssessment(ctx, assessment); err != nil {
			return eris.Wrap(err, "save assessment")
		}

		zap.L().Info("assessment complete",
			zap.String("subject", assessSubject),
			zap.String("tier", string(assessment.Tier)),
			zap.Int("words", assessment.WordCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assessment)
	},
}

func init() {
	assessCmd.Flags().StringVar(&assessURL, "url", "", "URL to assess (required)")
	assessCmd.Flags().StringVar(&assessSubject, "subject", "", "subject ID the document should cover (required)")
	assessCmd.Flags().BoolVar(&assessRender, "render", false, "require the headless rendering provider")
	_ = assessCmd.MarkFlagRequired("url")
	_ = assessCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(assessCmd)
}
