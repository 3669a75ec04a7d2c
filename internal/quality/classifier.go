// Package quality classifies fetched text into content tiers. Pure
// functions of their input: no network, no side effects, never an error —
// malformed input degrades to the invalid tier with a reason.
package quality

import (
	"strings"
	"time"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// Config holds the classifier thresholds.
type Config struct {
	// MinChars is the floor below which input is near-empty.
	MinChars int

	// BodyChars is the minimum body length for full-document tiers;
	// shorter bodies become excerpt or stub.
	BodyChars int

	// TruncationWordFloor is the word count under which moderate
	// truncation signals are taken seriously.
	TruncationWordFloor int

	// MaxStripFraction caps how much of the original text junk stripping
	// may remove before the strip is reverted.
	MaxStripFraction float64

	// MismatchSubjects is how many other known subjects must appear, with
	// the expected one absent, before text is treated as an index page.
	MismatchSubjects int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinChars:            80,
		BodyChars:           600,
		TruncationWordFloor: 400,
		MaxStripFraction:    0.4,
		MismatchSubjects:    3,
	}
}

// SubjectLookup is the slice of the reference dictionary the classifier
// needs: which other known subjects a text mentions.
type SubjectLookup interface {
	MentionedSubjects(text string, excludeID string) []string
}

// Context carries the hints the classifier matches the text against.
type Context struct {
	SubjectID     string
	ExpectedTitle string
	SourceURL     string

	// Excerpts are curated short quotes from independent aggregators.
	// Their presence upgrades short bodies from stub to excerpt.
	Excerpts []string
}

// Classifier runs the ordered rule list over fetched text.
type Classifier struct {
	cfg    Config
	rules  []Rule
	lookup SubjectLookup

	nowFunc func() time.Time
}

// New creates a Classifier with the default rule order. lookup may be nil,
// which disables the subject-mismatch rule.
func New(cfg Config, lookup SubjectLookup) *Classifier {
	c := &Classifier{
		cfg:     cfg,
		lookup:  lookup,
		nowFunc: time.Now,
	}
	c.rules = DefaultRules(cfg, lookup)
	return c
}

// Rules exposes the active rule list, in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Assess classifies rawText. Rules run in order; the first verdict wins.
// Truncation and mismatch rules see the text with structural junk already
// stripped, so a junk suffix is not misread as the document's real ending.
func (c *Classifier) Assess(rawText string, ctx Context) model.ContentAssessment {
	doc := newDocument(rawText, ctx, c.cfg)

	for _, rule := range c.rules {
		if v := rule.Check(doc); v != nil {
			return model.ContentAssessment{
				SubjectID:  ctx.SubjectID,
				SourceURL:  ctx.SourceURL,
				Tier:       v.tier,
				WordCount:  doc.words,
				Signals:    v.signals,
				Reason:     v.reason,
				AssessedAt: c.nowFunc().UTC(),
			}
		}
	}

	// The rule list ends with a catch-all; reaching here means a rule set
	// without one, which only happens in tests.
	return model.ContentAssessment{
		SubjectID:  ctx.SubjectID,
		SourceURL:  ctx.SourceURL,
		Tier:       model.TierComplete,
		WordCount:  doc.words,
		Reason:     "no rule matched",
		AssessedAt: c.nowFunc().UTC(),
	}
}

// document is the pre-processed input shared by all rules.
type document struct {
	raw      string
	stripped string
	words    int
	ctx      Context
	cfg      Config

	strippedSignals []string
}

func newDocument(rawText string, ctx Context, cfg Config) *document {
	trimmed := strings.TrimSpace(rawText)
	stripped, signals := StripStructuralJunk(trimmed, cfg.MaxStripFraction)
	return &document{
		raw:             trimmed,
		stripped:        stripped,
		words:           len(strings.Fields(stripped)),
		ctx:             ctx,
		cfg:             cfg,
		strippedSignals: signals,
	}
}
