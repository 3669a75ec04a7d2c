package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/db"
	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load evidence records into the pool",
	Long:  "Reads a JSON array of evidence records. On postgres the load goes through a COPY-based upsert; on sqlite records are inserted one by one.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}

		var records []model.EvidenceRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return eris.Wrap(err, "parse evidence")
		}
		if len(records) == 0 {
			return eris.New("no evidence records in file")
		}

		now := time.Now().UTC()
		for i := range records {
			if records[i].ObservedAt.IsZero() {
				records[i].ObservedAt = now
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if pg, ok := st.(*store.PostgresStore); ok {
			if err := bulkImportEvidence(ctx, pg, records); err != nil {
				return err
			}
		} else {
			for _, rec := range records {
				if err := st.AddEvidence(ctx, rec); err != nil {
					return eris.Wrapf(err, "add evidence %s/%s", rec.SubjectID, rec.Field)
				}
			}
		}

		zap.L().Info("evidence import complete",
			zap.Int("records", len(records)),
			zap.String("file", importFile),
		)
		return nil
	},
}

// bulkImportEvidence loads evidence through a temp-table COPY upsert.
// The pool is append-only, so conflicts on a freshly minted ID only
// happen on an aborted re-run and are dropped.
func bulkImportEvidence(ctx context.Context, pg *store.PostgresStore, records []model.EvidenceRecord) error {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "marshal evidence")
		}
		rows = append(rows, []any{uuid.NewString(), rec.SubjectID, rec.Field, payload, rec.ObservedAt})
	}

	n, err := db.BulkUpsert(ctx, pg.Pool(), db.UpsertConfig{
		Table:        "evidence",
		Columns:      []string{"id", "subject_id", "field", "payload", "observed_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{},
	}, rows)
	if err != nil {
		return err
	}
	zap.L().Debug("bulk upsert applied", zap.Int64("rows", n))
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to evidence JSON (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
