// Package pipeline orchestrates one subject's path through the system:
// fetch, quality assessment, semantic relevance, corroboration, and the
// verified-field gate. Every degraded outcome is recorded in the store;
// nothing is silently dropped.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marquee-data/marquee-cli/internal/corroborate"
	"github.com/marquee-data/marquee-cli/internal/gateway"
	"github.com/marquee-data/marquee-cli/internal/guardian"
	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/quality"
	"github.com/marquee-data/marquee-cli/internal/semantic"
	"github.com/marquee-data/marquee-cli/internal/store"
)

// Fetcher abstracts the gateway for testing.
type Fetcher interface {
	Fetch(ctx context.Context, req gateway.FetchRequest) (*gateway.FetchResult, error)
}

// SemanticClassifier abstracts the LLM relevance check. Optional.
type SemanticClassifier interface {
	Classify(ctx context.Context, text string, cctx semantic.Context) (semantic.Result, error)
}

// SubjectLookup is the slice of refdata the pipeline uses for titles.
type SubjectLookup interface {
	SubjectTitle(id string) string
}

// Task is one source document to ingest for one subject, with the candidate
// updates attributed to it.
type Task struct {
	SubjectID     string                 `json:"subject_id"`
	SourceURL     string                 `json:"source_url"`
	RequireRender bool                   `json:"require_render,omitempty"`
	Excerpts      []string               `json:"excerpts,omitempty"`
	Changes       []model.ProposedChange `json:"changes,omitempty"`
}

// ChangeOutcome pairs a validated change with the guardian's verdict.
type ChangeOutcome struct {
	Change   model.ValidatedChange `json:"change"`
	Decision guardian.Decision     `json:"decision"`
}

// Outcome is everything that happened to one task. FetchErr is set when no
// provider could deliver the document; the zero Assessment then never ran.
type Outcome struct {
	SubjectID  string                   `json:"subject_id"`
	SourceURL  string                   `json:"source_url"`
	FetchErr   error                    `json:"-"`
	Assessment *model.ContentAssessment `json:"assessment,omitempty"`
	Semantic   *semantic.Result         `json:"semantic,omitempty"`
	Changes    []ChangeOutcome          `json:"changes,omitempty"`
}

// Pipeline wires the stages together over a shared store.
type Pipeline struct {
	fetcher  Fetcher
	quality  *quality.Classifier
	semantic SemanticClassifier
	engine   *corroborate.Engine
	guard    *guardian.Guardian
	store    store.Store
	refdata  SubjectLookup
}

// New creates a Pipeline. semanticC and refdata may be nil; the semantic
// stage and title hints are then skipped.
func New(fetcher Fetcher, qc *quality.Classifier, semanticC SemanticClassifier, guard *guardian.Guardian, st store.Store, refdata SubjectLookup) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		quality:  qc,
		semantic: semanticC,
		engine:   corroborate.NewEngine(),
		guard:    guard,
		store:    st,
		refdata:  refdata,
	}
}

// Process runs one task end to end. Infrastructure failures (store writes)
// surface as errors; pipeline verdicts (invalid content, flagged or blocked
// changes) are recorded in the Outcome and the audit trail.
func (p *Pipeline) Process(ctx context.Context, task Task) (*Outcome, error) {
	out := &Outcome{SubjectID: task.SubjectID, SourceURL: task.SourceURL}

	res, err := p.fetcher.Fetch(ctx, gateway.FetchRequest{
		URL:           task.SourceURL,
		RequireRender: task.RequireRender,
	})
	if err != nil {
		out.FetchErr = err
		if auditErr := p.store.AppendAudit(ctx, model.AuditNote{
			SubjectID: task.SubjectID,
			SourceURL: task.SourceURL,
			Kind:      model.AuditFetchFailed,
			Message:   err.Error(),
		}); auditErr != nil {
			return out, auditErr
		}
		return out, nil
	}

	title := ""
	if p.refdata != nil {
		title = p.refdata.SubjectTitle(task.SubjectID)
	}

	assessment := p.quality.Assess(res.Content, quality.Context{
		SubjectID:     task.SubjectID,
		ExpectedTitle: title,
		SourceURL:     task.SourceURL,
		Excerpts:      task.Excerpts,
	})
	out.Assessment = &assessment
	if err := p.store.SaveAssessment(ctx, assessment); err != nil {
		return out, err
	}

	if !assessment.Tier.Usable() {
		if err := p.store.AppendAudit(ctx, model.AuditNote{
			SubjectID: task.SubjectID,
			SourceURL: task.SourceURL,
			Kind:      model.AuditInvalidContent,
			Message:   assessment.Reason,
		}); err != nil {
			return out, err
		}
		return out, nil
	}

	if p.semantic != nil {
		sem, err := p.semantic.Classify(ctx, res.Content, semantic.Context{
			SubjectID: task.SubjectID,
			Title:     title,
			SourceURL: task.SourceURL,
		})
		if err != nil {
			return out, err
		}
		out.Semantic = &sem
		if !sem.Relevant {
			if err := p.store.AppendAudit(ctx, model.AuditNote{
				SubjectID: task.SubjectID,
				SourceURL: task.SourceURL,
				Kind:      model.AuditInvalidContent,
				Message:   fmt.Sprintf("not about subject (label %q)", sem.Label),
			}); err != nil {
				return out, err
			}
			return out, nil
		}
	}

	verification, err := p.store.GetVerification(ctx, task.SubjectID)
	if err != nil {
		return out, err
	}

	for _, change := range task.Changes {
		co, err := p.processChange(ctx, change, verification)
		if err != nil {
			return out, err
		}
		out.Changes = append(out.Changes, co)
	}

	return out, nil
}

func (p *Pipeline) processChange(ctx context.Context, change model.ProposedChange, verification *model.VerificationRecord) (ChangeOutcome, error) {
	pool, err := p.store.ListEvidence(ctx, change.SubjectID, change.Field)
	if err != nil {
		return ChangeOutcome{}, err
	}

	validated := p.engine.Validate(change, pool)
	decision := p.guard.Guard(validated, verification)
	co := ChangeOutcome{Change: validated, Decision: decision}

	if validated.ValidatedConfidence == model.ConfidenceFlagged {
		if err := p.store.AppendAudit(ctx, model.AuditNote{
			SubjectID: change.SubjectID,
			Field:     change.Field,
			SourceURL: change.SourceURL,
			Kind:      model.AuditFlaggedChange,
			Message:   fmt.Sprintf("%d contradicting vs %d supporting sources", len(validated.ContradictingEvidence), len(validated.SupportingEvidence)),
		}); err != nil {
			return co, err
		}
	}

	if decision.Blocked {
		if err := p.store.AppendAudit(ctx, model.AuditNote{
			SubjectID: change.SubjectID,
			Field:     change.Field,
			SourceURL: change.SourceURL,
			Kind:      model.AuditBlockedChange,
			Message:   decision.Reason,
		}); err != nil {
			return co, err
		}
		// Blocked changes are recorded in the audit trail only; the stored
		// record keeps its prior value.
		return co, nil
	}

	if decision.Override != nil {
		if err := p.store.AppendAudit(ctx, model.AuditNote{
			SubjectID: change.SubjectID,
			Field:     change.Field,
			SourceURL: change.SourceURL,
			Kind:      model.AuditOverrideUsed,
			Message:   decision.Override.Reason,
		}); err != nil {
			return co, err
		}
	}

	if err := p.store.SaveChange(ctx, validated); err != nil {
		return co, err
	}

	// The accepted observation joins the evidence pool for future
	// corroboration of this field.
	if err := p.store.AddEvidence(ctx, model.EvidenceRecord{
		SubjectID:   change.SubjectID,
		Field:       change.Field,
		Value:       change.NewValue,
		SourceType:  change.SourceType,
		SourceURL:   change.SourceURL,
		Methodology: change.Methodology,
	}); err != nil {
		return co, err
	}

	return co, nil
}

// ProcessBatch runs tasks concurrently with the given limit, collecting
// per-task outcomes. A task's infrastructure error cancels the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, tasks []Task, concurrency int) ([]*Outcome, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	outcomes := make([]*Outcome, len(tasks))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			out, err := p.Process(gCtx, task)
			if err != nil {
				return err
			}
			mu.Lock()
			outcomes[i] = out
			mu.Unlock()

			if out.FetchErr != nil {
				zap.L().Warn("subject fetch failed",
					zap.String("subject", task.SubjectID),
					zap.String("url", task.SourceURL),
					zap.Error(out.FetchErr),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
