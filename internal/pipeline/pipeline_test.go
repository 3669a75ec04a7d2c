package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-data/marquee-cli/internal/gateway"
	"github.com/marquee-data/marquee-cli/internal/guardian"
	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/quality"
	"github.com/marquee-data/marquee-cli/internal/semantic"
	"github.com/marquee-data/marquee-cli/internal/store"
)

// completeArticle is long and well-terminated enough to classify as
// complete.
var completeArticle = strings.Repeat(
	"The production opened to strong notices and continued performances throughout the spring season without interruption. ", 40)

type mockFetcher struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
}

func (m *mockFetcher) Fetch(_ context.Context, _ gateway.FetchRequest) (*gateway.FetchResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &gateway.FetchResult{Content: m.content, Format: gateway.FormatMarkdown, Provider: gateway.KindDirect}, nil
}

type mockSemantic struct {
	result semantic.Result
}

func (m *mockSemantic) Classify(context.Context, string, semantic.Context) (semantic.Result, error) {
	return m.result, nil
}

// recordingStore captures writes for assertions. Mutex-guarded so batch
// tests hold up under the race detector.
type recordingStore struct {
	mu            sync.Mutex
	evidence      []model.EvidenceRecord
	pool          []model.EvidenceRecord
	verifications map[string]*model.VerificationRecord
	changes       []model.ValidatedChange
	assessments   []model.ContentAssessment
	audits        []model.AuditNote
}

func newRecordingStore() *recordingStore {
	return &recordingStore{verifications: make(map[string]*model.VerificationRecord)}
}

func (s *recordingStore) SaveChange(_ context.Context, c model.ValidatedChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
	return nil
}
func (s *recordingStore) GetChange(context.Context, string, string) (*model.ValidatedChange, error) {
	return nil, nil
}
func (s *recordingStore) ListChanges(context.Context, store.ChangeFilter) ([]model.ValidatedChange, error) {
	return s.changes, nil
}
func (s *recordingStore) SaveAssessment(_ context.Context, a model.ContentAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}
func (s *recordingStore) ListAssessments(context.Context, string) ([]model.ContentAssessment, error) {
	return s.assessments, nil
}
func (s *recordingStore) AddEvidence(_ context.Context, ev model.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, ev)
	return nil
}
func (s *recordingStore) ListEvidence(context.Context, string, string) ([]model.EvidenceRecord, error) {
	return s.pool, nil
}
func (s *recordingStore) SaveVerification(_ context.Context, v model.VerificationRecord) error {
	s.verifications[v.SubjectID] = &v
	return nil
}
func (s *recordingStore) GetVerification(_ context.Context, subjectID string) (*model.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifications[subjectID], nil
}
func (s *recordingStore) AppendAudit(_ context.Context, n model.AuditNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, n)
	return nil
}
func (s *recordingStore) ListAudit(context.Context, store.AuditFilter) ([]model.AuditNote, error) {
	return s.audits, nil
}
func (s *recordingStore) Migrate(context.Context) error { return nil }
func (s *recordingStore) Close() error                  { return nil }

func (s *recordingStore) auditKinds() []model.AuditKind {
	kinds := make([]model.AuditKind, len(s.audits))
	for i, n := range s.audits {
		kinds[i] = n.Kind
	}
	return kinds
}

func newTestPipeline(f Fetcher, st store.Store, sem SemanticClassifier, overrides []guardian.Override) *Pipeline {
	qc := quality.New(quality.DefaultConfig(), nil)
	return New(f, qc, sem, guardian.New(overrides), st, nil)
}

func TestProcessHappyPath(t *testing.T) {
	st := newRecordingStore()
	st.pool = []model.EvidenceRecord{
		{SubjectID: "hamilton", Field: "capitalization", Value: 19500000.0, SourceURL: "https://a.example.com"},
		{SubjectID: "hamilton", Field: "capitalization", Value: 21000000.0, SourceURL: "https://b.example.com"},
	}
	p := newTestPipeline(&mockFetcher{content: completeArticle}, st, nil, nil)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/article",
		Changes: []model.ProposedChange{{
			SubjectID:  "hamilton",
			Field:      "capitalization",
			OldValue:   19000000.0,
			NewValue:   20000000.0,
			Confidence: model.ConfidenceMedium,
			SourceURL:  "https://example.com/article",
		}},
	})

	require.NoError(t, err)
	require.NotNil(t, out.Assessment)
	assert.Equal(t, model.TierComplete, out.Assessment.Tier)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, model.ConfidenceHigh, out.Changes[0].Change.ValidatedConfidence)
	assert.False(t, out.Changes[0].Decision.Blocked)

	assert.Len(t, st.changes, 1, "accepted change is persisted")
	assert.Len(t, st.evidence, 1, "accepted observation joins the evidence pool")
	assert.Empty(t, st.audits)
}

func TestProcessFetchFailureIsAudited(t *testing.T) {
	st := newRecordingStore()
	p := newTestPipeline(&mockFetcher{err: &gateway.ExhaustedError{URL: "https://example.com/a"}}, st, nil, nil)

	out, err := p.Process(context.Background(), Task{SubjectID: "hamilton", SourceURL: "https://example.com/a"})

	require.NoError(t, err, "an exhausted fetch is an outcome, not a pipeline error")
	assert.Error(t, out.FetchErr)
	assert.Nil(t, out.Assessment)
	assert.Equal(t, []model.AuditKind{model.AuditFetchFailed}, st.auditKinds())
}

func TestProcessInvalidContentStopsEarly(t *testing.T) {
	st := newRecordingStore()
	p := newTestPipeline(&mockFetcher{content: "404 page not found"}, st, nil, nil)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/missing",
		Changes:   []model.ProposedChange{{SubjectID: "hamilton", Field: "capitalization", NewValue: 1.0}},
	})

	require.NoError(t, err)
	require.NotNil(t, out.Assessment)
	assert.Equal(t, model.TierInvalid, out.Assessment.Tier)
	assert.Empty(t, out.Changes, "changes from invalid content are never validated")
	assert.Equal(t, []model.AuditKind{model.AuditInvalidContent}, st.auditKinds())
	assert.Len(t, st.assessments, 1, "the invalid assessment is still recorded")
}

func TestProcessIrrelevantContentStopsBeforeValidation(t *testing.T) {
	st := newRecordingStore()
	sem := &mockSemantic{result: semantic.Result{Relevant: false, Label: semantic.LabelListing, Confidence: 0.8}}
	p := newTestPipeline(&mockFetcher{content: completeArticle}, st, sem, nil)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/tickets",
		Changes:   []model.ProposedChange{{SubjectID: "hamilton", Field: "capitalization", NewValue: 1.0}},
	})

	require.NoError(t, err)
	require.NotNil(t, out.Semantic)
	assert.Empty(t, out.Changes)
	assert.Equal(t, []model.AuditKind{model.AuditInvalidContent}, st.auditKinds())
}

func TestProcessBlockedChangeIsNotPersisted(t *testing.T) {
	st := newRecordingStore()
	require.NoError(t, st.SaveVerification(context.Background(), model.VerificationRecord{
		SubjectID:      "hamilton",
		VerifiedFields: []string{"capitalization"},
	}))
	p := newTestPipeline(&mockFetcher{content: completeArticle}, st, nil, nil)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/article",
		Changes: []model.ProposedChange{{
			SubjectID:  "hamilton",
			Field:      "capitalization",
			OldValue:   20000000.0,
			NewValue:   5000000.0,
			Confidence: model.ConfidenceMedium,
		}},
	})

	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	assert.True(t, out.Changes[0].Decision.Blocked)
	assert.Equal(t, model.SeverityCritical, out.Changes[0].Change.Severity)

	assert.Empty(t, st.changes, "blocked changes never reach the record")
	assert.Empty(t, st.evidence)
	assert.Equal(t, []model.AuditKind{model.AuditBlockedChange}, st.auditKinds())
}

func TestProcessOverrideAllowsAndIsAudited(t *testing.T) {
	st := newRecordingStore()
	require.NoError(t, st.SaveVerification(context.Background(), model.VerificationRecord{
		SubjectID:      "hamilton",
		VerifiedFields: []string{"capitalization"},
	}))
	overrides := []guardian.Override{{SubjectID: "hamilton", Field: "capitalization", Reason: "restatement confirmed"}}
	p := newTestPipeline(&mockFetcher{content: completeArticle}, st, nil, overrides)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/article",
		Changes: []model.ProposedChange{{
			SubjectID:  "hamilton",
			Field:      "capitalization",
			OldValue:   20000000.0,
			NewValue:   5000000.0,
			Confidence: model.ConfidenceMedium,
		}},
	})

	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	assert.False(t, out.Changes[0].Decision.Blocked)
	assert.Len(t, st.changes, 1)
	assert.Equal(t, []model.AuditKind{model.AuditOverrideUsed}, st.auditKinds())
}

func TestProcessFlaggedChangeIsAuditedAndPersisted(t *testing.T) {
	st := newRecordingStore()
	st.pool = []model.EvidenceRecord{
		{SubjectID: "hamilton", Field: "weekly_gross", Value: 3000000.0, SourceURL: "https://a.example.com"},
		{SubjectID: "hamilton", Field: "weekly_gross", Value: 3100000.0, SourceURL: "https://b.example.com"},
	}
	p := newTestPipeline(&mockFetcher{content: completeArticle}, st, nil, nil)

	out, err := p.Process(context.Background(), Task{
		SubjectID: "hamilton",
		SourceURL: "https://example.com/article",
		Changes: []model.ProposedChange{{
			SubjectID:  "hamilton",
			Field:      "weekly_gross",
			OldValue:   2000000.0,
			NewValue:   2100000.0,
			Confidence: model.ConfidenceMedium,
		}},
	})

	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, model.ConfidenceFlagged, out.Changes[0].Change.ValidatedConfidence)
	assert.Equal(t, []model.AuditKind{model.AuditFlaggedChange}, st.auditKinds())
	assert.Len(t, st.changes, 1, "flagged changes are persisted for review")
}

func TestProcessBatch(t *testing.T) {
	st := newRecordingStore()
	fetcher := &mockFetcher{content: completeArticle}
	p := newTestPipeline(fetcher, st, nil, nil)

	tasks := []Task{
		{SubjectID: "hamilton", SourceURL: "https://example.com/a"},
		{SubjectID: "wicked", SourceURL: "https://example.com/b"},
		{SubjectID: "six", SourceURL: "https://example.com/c"},
	}

	outcomes, err := p.ProcessBatch(context.Background(), tasks, 2)

	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for i, out := range outcomes {
		require.NotNil(t, out, "outcome %d", i)
		assert.Equal(t, tasks[i].SubjectID, out.SubjectID)
	}
	assert.Equal(t, 3, fetcher.calls)
}
