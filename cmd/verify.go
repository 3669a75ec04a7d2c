package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
)

var (
	verifySubject string
	verifyFields  []string
	verifyNotes   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Manage verified-field records",
}

var verifySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Mark fields of a subject as manually verified",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec := model.VerificationRecord{
			SubjectID:      verifySubject,
			VerifiedFields: verifyFields,
			VerifiedDate:   time.Now().UTC(),
			Notes:          verifyNotes,
		}
		if err := st.SaveVerification(ctx, rec); err != nil {
			return eris.Wrap(err, "save verification")
		}

		zap.L().Info("verification recorded",
			zap.String("subject", verifySubject),
			zap.Strings("fields", verifyFields),
		)
		return nil
	},
}

var verifyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the verification record for a subject",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetVerification(ctx, verifySubject)
		if err != nil {
			return eris.Wrap(err, "get verification")
		}
		if rec == nil {
			zap.L().Info("no verification record", zap.String("subject", verifySubject))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	verifySetCmd.Flags().StringVar(&verifySubject, "subject", "", "subject ID (required)")
	verifySetCmd.Flags().StringSliceVar(&verifyFields, "fields", nil, "fields to protect (required)")
	verifySetCmd.Flags().StringVar(&verifyNotes, "notes", "", "curation notes")
	_ = verifySetCmd.MarkFlagRequired("subject")
	_ = verifySetCmd.MarkFlagRequired("fields")

	verifyShowCmd.Flags().StringVar(&verifySubject, "subject", "", "subject ID (required)")
	_ = verifyShowCmd.MarkFlagRequired("subject")

	verifyCmd.AddCommand(verifySetCmd, verifyShowCmd)
	rootCmd.AddCommand(verifyCmd)
}
