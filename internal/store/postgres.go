package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/db"
	"github.com/marquee-data/marquee-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk evidence import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS validated_changes (
	subject_id TEXT NOT NULL,
	field      TEXT NOT NULL,
	payload    JSONB NOT NULL,
	confidence TEXT NOT NULL,
	severity   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (subject_id, field)
);

CREATE TABLE IF NOT EXISTS assessments (
	subject_id  TEXT NOT NULL,
	source_url  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	tier        TEXT NOT NULL,
	assessed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (subject_id, source_url)
);

CREATE TABLE IF NOT EXISTS evidence (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject_id  TEXT NOT NULL,
	field       TEXT NOT NULL,
	payload     JSONB NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verifications (
	subject_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_notes (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject_id TEXT NOT NULL,
	field      TEXT,
	source_url TEXT,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_changes_confidence ON validated_changes(confidence);
CREATE INDEX IF NOT EXISTS idx_evidence_subject_field ON evidence(subject_id, field);
CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_notes(subject_id);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_notes(kind);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveChange(ctx context.Context, change model.ValidatedChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal change")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO validated_changes (subject_id, field, payload, confidence, severity, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subject_id, field) DO UPDATE SET
		   payload = EXCLUDED.payload, confidence = EXCLUDED.confidence,
		   severity = EXCLUDED.severity, updated_at = EXCLUDED.updated_at`,
		change.SubjectID, change.Field, payload,
		string(change.ValidatedConfidence), string(change.Severity), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save change %s/%s", change.SubjectID, change.Field)
}

func (s *PostgresStore) GetChange(ctx context.Context, subjectID, field string) (*model.ValidatedChange, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM validated_changes WHERE subject_id = $1 AND field = $2`,
		subjectID, field,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get change %s/%s", subjectID, field)
	}

	var change model.ValidatedChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal change")
	}
	return &change, nil
}

func (s *PostgresStore) ListChanges(ctx context.Context, filter ChangeFilter) ([]model.ValidatedChange, error) {
	query := `SELECT payload FROM validated_changes WHERE ($1 = '' OR subject_id = $1)
		AND ($2 = '' OR confidence = $2) AND ($3 = '' OR severity = $3)
		ORDER BY updated_at DESC LIMIT $4 OFFSET $5`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query,
		filter.SubjectID, string(filter.Confidence), string(filter.Severity), limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list changes")
	}
	defer rows.Close()

	var changes []model.ValidatedChange
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan change")
		}
		var change model.ValidatedChange
		if err := json.Unmarshal(payload, &change); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal change")
		}
		changes = append(changes, change)
	}
	return changes, eris.Wrap(rows.Err(), "postgres: list changes iterate")
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a model.ContentAssessment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal assessment")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (subject_id, source_url, payload, tier, assessed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subject_id, source_url) DO UPDATE SET
		   payload = EXCLUDED.payload, tier = EXCLUDED.tier, assessed_at = EXCLUDED.assessed_at`,
		a.SubjectID, a.SourceURL, payload, string(a.Tier), a.AssessedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save assessment %s", a.SubjectID)
}

func (s *PostgresStore) ListAssessments(ctx context.Context, subjectID string) ([]model.ContentAssessment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM assessments WHERE subject_id = $1 ORDER BY assessed_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.ContentAssessment
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		var a model.ContentAssessment
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal assessment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

func (s *PostgresStore) AddEvidence(ctx context.Context, ev model.EvidenceRecord) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence")
	}

	observedAt := ev.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO evidence (id, subject_id, field, payload, observed_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), ev.SubjectID, ev.Field, payload, observedAt,
	)
	return eris.Wrapf(err, "postgres: add evidence %s/%s", ev.SubjectID, ev.Field)
}

func (s *PostgresStore) ListEvidence(ctx context.Context, subjectID, field string) ([]model.EvidenceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM evidence WHERE subject_id = $1 AND field = $2 ORDER BY observed_at DESC`,
		subjectID, field,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	var out []model.EvidenceRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		var ev model.EvidenceRecord
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal evidence")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list evidence iterate")
}

func (s *PostgresStore) SaveVerification(ctx context.Context, v model.VerificationRecord) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal verification")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO verifications (subject_id, payload) VALUES ($1, $2)
		 ON CONFLICT (subject_id) DO UPDATE SET payload = EXCLUDED.payload`,
		v.SubjectID, payload,
	)
	return eris.Wrapf(err, "postgres: save verification %s", v.SubjectID)
}

func (s *PostgresStore) GetVerification(ctx context.Context, subjectID string) (*model.VerificationRecord, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM verifications WHERE subject_id = $1`, subjectID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get verification %s", subjectID)
	}

	var v model.VerificationRecord
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal verification")
	}
	return &v, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, note model.AuditNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_notes (id, subject_id, field, source_url, kind, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		note.ID, note.SubjectID, note.Field, note.SourceURL,
		string(note.Kind), note.Message, note.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: append audit %s", note.SubjectID)
}

func (s *PostgresStore) ListAudit(ctx context.Context, filter AuditFilter) ([]model.AuditNote, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	since := filter.Since
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, field, source_url, kind, message, created_at FROM audit_notes
		 WHERE ($1 = '' OR subject_id = $1) AND ($2 = '' OR kind = $2) AND created_at >= $3
		 ORDER BY created_at DESC LIMIT $4`,
		filter.SubjectID, string(filter.Kind), since.UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var notes []model.AuditNote
	for rows.Next() {
		var n model.AuditNote
		var field, sourceURL *string
		if err := rows.Scan(&n.ID, &n.SubjectID, &field, &sourceURL, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit note")
		}
		if field != nil {
			n.Field = *field
		}
		if sourceURL != nil {
			n.SourceURL = *sourceURL
		}
		notes = append(notes, n)
	}
	return notes, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}
