package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS validated_changes (
	subject_id TEXT NOT NULL,
	field      TEXT NOT NULL,
	payload    TEXT NOT NULL,
	confidence TEXT NOT NULL,
	severity   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (subject_id, field)
);

CREATE TABLE IF NOT EXISTS assessments (
	subject_id  TEXT NOT NULL,
	source_url  TEXT NOT NULL,
	payload     TEXT NOT NULL,
	tier        TEXT NOT NULL,
	assessed_at DATETIME NOT NULL,
	PRIMARY KEY (subject_id, source_url)
);

CREATE TABLE IF NOT EXISTS evidence (
	id          TEXT PRIMARY KEY,
	subject_id  TEXT NOT NULL,
	field       TEXT NOT NULL,
	payload     TEXT NOT NULL,
	observed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS verifications (
	subject_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_notes (
	id         TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	field      TEXT,
	source_url TEXT,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_changes_confidence ON validated_changes(confidence);
CREATE INDEX IF NOT EXISTS idx_evidence_subject_field ON evidence(subject_id, field);
CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_notes(subject_id);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_notes(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveChange(ctx context.Context, change model.ValidatedChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal change")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validated_changes (subject_id, field, payload, confidence, severity, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (subject_id, field) DO UPDATE SET
		   payload = excluded.payload, confidence = excluded.confidence,
		   severity = excluded.severity, updated_at = excluded.updated_at`,
		change.SubjectID, change.Field, string(payload),
		string(change.ValidatedConfidence), string(change.Severity), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save change %s/%s", change.SubjectID, change.Field)
}

func (s *SQLiteStore) GetChange(ctx context.Context, subjectID, field string) (*model.ValidatedChange, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM validated_changes WHERE subject_id = ? AND field = ?`,
		subjectID, field,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get change %s/%s", subjectID, field)
	}

	var change model.ValidatedChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal change")
	}
	return &change, nil
}

func (s *SQLiteStore) ListChanges(ctx context.Context, filter ChangeFilter) ([]model.ValidatedChange, error) {
	query := `SELECT payload FROM validated_changes WHERE 1=1`
	var args []any

	if filter.SubjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, filter.SubjectID)
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ?`
		args = append(args, string(filter.Confidence))
	}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list changes")
	}
	defer rows.Close()

	var changes []model.ValidatedChange
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan change")
		}
		var change model.ValidatedChange
		if err := json.Unmarshal([]byte(payload), &change); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal change")
		}
		changes = append(changes, change)
	}
	return changes, eris.Wrap(rows.Err(), "sqlite: list changes iterate")
}

func (s *SQLiteStore) SaveAssessment(ctx context.Context, a model.ContentAssessment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal assessment")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (subject_id, source_url, payload, tier, assessed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (subject_id, source_url) DO UPDATE SET
		   payload = excluded.payload, tier = excluded.tier, assessed_at = excluded.assessed_at`,
		a.SubjectID, a.SourceURL, string(payload), string(a.Tier), a.AssessedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save assessment %s", a.SubjectID)
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, subjectID string) ([]model.ContentAssessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM assessments WHERE subject_id = ? ORDER BY assessed_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.ContentAssessment
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assessment")
		}
		var a model.ContentAssessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal assessment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

func (s *SQLiteStore) AddEvidence(ctx context.Context, ev model.EvidenceRecord) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence")
	}

	observedAt := ev.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evidence (id, subject_id, field, payload, observed_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.SubjectID, ev.Field, string(payload), observedAt,
	)
	return eris.Wrapf(err, "sqlite: add evidence %s/%s", ev.SubjectID, ev.Field)
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, subjectID, field string) ([]model.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM evidence WHERE subject_id = ? AND field = ? ORDER BY observed_at DESC`,
		subjectID, field,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close()

	var out []model.EvidenceRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		var ev model.EvidenceRecord
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal evidence")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list evidence iterate")
}

func (s *SQLiteStore) SaveVerification(ctx context.Context, v model.VerificationRecord) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal verification")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verifications (subject_id, payload) VALUES (?, ?)
		 ON CONFLICT (subject_id) DO UPDATE SET payload = excluded.payload`,
		v.SubjectID, string(payload),
	)
	return eris.Wrapf(err, "sqlite: save verification %s", v.SubjectID)
}

func (s *SQLiteStore) GetVerification(ctx context.Context, subjectID string) (*model.VerificationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM verifications WHERE subject_id = ?`, subjectID,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get verification %s", subjectID)
	}

	var v model.VerificationRecord
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal verification")
	}
	return &v, nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, note model.AuditNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_notes (id, subject_id, field, source_url, kind, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.SubjectID, note.Field, note.SourceURL,
		string(note.Kind), note.Message, note.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append audit %s", note.SubjectID)
}

func (s *SQLiteStore) ListAudit(ctx context.Context, filter AuditFilter) ([]model.AuditNote, error) {
	query := `SELECT id, subject_id, field, source_url, kind, message, created_at FROM audit_notes WHERE 1=1`
	var args []any

	if filter.SubjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, filter.SubjectID)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var notes []model.AuditNote
	for rows.Next() {
		var n model.AuditNote
		var field, sourceURL sql.NullString
		if err := rows.Scan(&n.ID, &n.SubjectID, &field, &sourceURL, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit note")
		}
		n.Field = field.String
		n.SourceURL = sourceURL.String
		notes = append(notes, n)
	}
	return notes, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}
