package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/store"
)

var (
	exportPath    string
	exportSubject string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export flagged and blocked changes to a review workbook",
	Long:  "Writes an xlsx workbook with one sheet of flagged changes and one of blocked-change audit notes, for manual curation review.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		flagged, err := st.ListChanges(ctx, store.ChangeFilter{
			SubjectID:  exportSubject,
			Confidence: model.ConfidenceFlagged,
			Limit:      10000,
		})
		if err != nil {
			return eris.Wrap(err, "list flagged changes")
		}

		blocked, err := st.ListAudit(ctx, store.AuditFilter{
			SubjectID: exportSubject,
			Kind:      model.AuditBlockedChange,
			Limit:     10000,
		})
		if err != nil {
			return eris.Wrap(err, "list blocked audit notes")
		}

		wb := xlsx.NewFile()

		if err := writeFlaggedSheet(wb, flagged); err != nil {
			return err
		}
		if err := writeBlockedSheet(wb, blocked); err != nil {
			return err
		}

		if err := wb.Save(exportPath); err != nil {
			return eris.Wrapf(err, "save %s", exportPath)
		}

		zap.L().Info("review workbook written",
			zap.String("path", exportPath),
			zap.Int("flagged", len(flagged)),
			zap.Int("blocked", len(blocked)),
		)
		return nil
	},
}

func writeFlaggedSheet(wb *xlsx.File, changes []model.ValidatedChange) error {
	sheet, err := wb.AddSheet("Flagged Changes")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Subject", "Field", "Old Value", "New Value", "Severity", "Supporting", "Contradicting", "Source"} {
		header.AddCell().Value = h
	}

	for _, c := range changes {
		row := sheet.AddRow()
		row.AddCell().Value = c.SubjectID
		row.AddCell().Value = c.Field
		row.AddCell().Value = fmt.Sprint(c.OldValue)
		row.AddCell().Value = fmt.Sprint(c.NewValue)
		row.AddCell().Value = string(c.Severity)
		row.AddCell().SetInt(len(c.SupportingEvidence))
		row.AddCell().SetInt(len(c.ContradictingEvidence))
		row.AddCell().Value = c.SourceURL
	}
	return nil
}

func writeBlockedSheet(wb *xlsx.File, notes []model.AuditNote) error {
	sheet, err := wb.AddSheet("Blocked Changes")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Subject", "Field", "Source", "Reason", "Recorded At"} {
		header.AddCell().Value = h
	}

	for _, n := range notes {
		row := sheet.AddRow()
		row.AddCell().Value = n.SubjectID
		row.AddCell().Value = n.Field
		row.AddCell().Value = n.SourceURL
		row.AddCell().Value = n.Message
		row.AddCell().Value = n.CreatedAt.Format("2006-01-02 15:04")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportPath, "out", "review.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportSubject, "subject", "", "restrict to one subject ID")
	rootCmd.AddCommand(exportCmd)
}
