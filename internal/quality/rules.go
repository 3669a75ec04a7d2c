package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// verdict is a terminal classification produced by a rule.
type verdict struct {
	tier    model.Tier
	reason  string
	signals []string
}

// Rule is one ordered check. Check returns nil to pass the document to
// the next rule, or a verdict to stop.
type Rule struct {
	Name  string
	Check func(doc *document) *verdict
}

// Non-content page patterns: pages that are entirely an access prompt,
// an error page, or legal chrome, rather than a document with content.
var (
	accessWallRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(please )?(sign|log) in to (view|read|access)`),
		regexp.MustCompile(`(?i)subscription required`),
		regexp.MustCompile(`(?i)this (article|content|page) is (for|available to) subscribers( only)?`),
		regexp.MustCompile(`(?i)already a subscriber\?`),
		regexp.MustCompile(`(?i)register (now )?to (view|read|access)`),
	}
	errorPageRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b404\b.{0,40}(not found|error)`),
		regexp.MustCompile(`(?i)page (could )?not (be )?found`),
		regexp.MustCompile(`(?i)this (article|page|content) (has been|was) (removed|deleted|taken down)`),
		regexp.MustCompile(`(?i)the page you (are looking for|requested) (does not exist|cannot be found)`),
	}
	legalChromeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^we use cookies`),
		regexp.MustCompile(`(?i)cookie (consent|preferences|settings)`),
		regexp.MustCompile(`(?i)^(terms of (use|service)|privacy policy)`),
	}
	newsletterRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(sign up|subscribe) (for|to) (our|the)? ?newsletter`),
		regexp.MustCompile(`(?i)enter your email (address )?to`),
	}
	bareURLRe = regexp.MustCompile(`^\[?https?://\S+\]?$`)
)

// DefaultRules returns the production rule cascade, first match wins.
// Exposed as data so the ordering itself is testable.
func DefaultRules(cfg Config, lookup SubjectLookup) []Rule {
	return []Rule{
		{Name: "near_empty", Check: checkNearEmpty},
		{Name: "non_content_page", Check: checkNonContentPage},
		{Name: "subject_mismatch", Check: checkSubjectMismatch(lookup)},
		{Name: "short_with_excerpts", Check: checkShortWithExcerpts},
		{Name: "short_stub", Check: checkShortStub},
		{Name: "truncation", Check: checkTruncation},
	}
}

func checkNearEmpty(doc *document) *verdict {
	if len(doc.raw) < doc.cfg.MinChars {
		return &verdict{
			tier:   model.TierInvalid,
			reason: fmt.Sprintf("near-empty input: %d chars", len(doc.raw)),
		}
	}
	return nil
}

func checkNonContentPage(doc *document) *verdict {
	body := doc.stripped

	// A wall page is all prompt and no article: patterns plus a short body.
	shortBody := doc.words < 120

	for _, re := range accessWallRes {
		if re.MatchString(body) && shortBody {
			return &verdict{tier: model.TierInvalid, reason: "access-control page", signals: []string{"page:access_wall"}}
		}
	}
	for _, re := range errorPageRes {
		if re.MatchString(body) {
			return &verdict{tier: model.TierInvalid, reason: "error page", signals: []string{"page:error"}}
		}
	}
	for _, re := range legalChromeRes {
		if re.MatchString(body) && shortBody {
			return &verdict{tier: model.TierInvalid, reason: "legal/cookie boilerplate page", signals: []string{"page:legal_chrome"}}
		}
	}
	for _, re := range newsletterRes {
		if re.MatchString(body) && shortBody {
			return &verdict{tier: model.TierInvalid, reason: "newsletter signup page", signals: []string{"page:newsletter"}}
		}
	}
	if bareURLRe.MatchString(strings.TrimSpace(body)) {
		return &verdict{tier: model.TierInvalid, reason: "bare URL payload", signals: []string{"page:bare_url"}}
	}
	if looksLikeNavigationDump(body) {
		return &verdict{tier: model.TierInvalid, reason: "navigation menu dump", signals: []string{"page:nav_dump"}}
	}
	return nil
}

// checkSubjectMismatch flags text that references several other known
// subjects but never the expected one — the fetch landed on an index or
// listing page rather than the target.
func checkSubjectMismatch(lookup SubjectLookup) func(doc *document) *verdict {
	return func(doc *document) *verdict {
		if lookup == nil || doc.ctx.SubjectID == "" {
			return nil
		}

		if doc.ctx.ExpectedTitle != "" &&
			strings.Contains(strings.ToLower(doc.stripped), strings.ToLower(doc.ctx.ExpectedTitle)) {
			return nil
		}

		others := lookup.MentionedSubjects(doc.stripped, doc.ctx.SubjectID)
		if len(others) >= doc.cfg.MismatchSubjects {
			return &verdict{
				tier:    model.TierInvalid,
				reason:  fmt.Sprintf("references %d other subjects, not %s: likely index page", len(others), doc.ctx.SubjectID),
				signals: []string{"page:subject_mismatch"},
			}
		}
		return nil
	}
}

func checkShortWithExcerpts(doc *document) *verdict {
	if len(doc.stripped) < doc.cfg.BodyChars && len(doc.ctx.Excerpts) > 0 {
		return &verdict{
			tier:   model.TierExcerpt,
			reason: fmt.Sprintf("short body with %d curated excerpts", len(doc.ctx.Excerpts)),
		}
	}
	return nil
}

func checkShortStub(doc *document) *verdict {
	if len(doc.stripped) < doc.cfg.BodyChars {
		return &verdict{
			tier:   model.TierStub,
			reason: fmt.Sprintf("body below %d chars with no excerpts", doc.cfg.BodyChars),
		}
	}
	return nil
}

// checkTruncation is the terminal rule: it always returns a verdict,
// truncated or complete.
func checkTruncation(doc *document) *verdict {
	severe, moderate, footer := truncationSignals(doc.stripped)

	signals := append(append(append([]string{}, severe...), moderate...), footer...)
	signals = append(signals, doc.strippedSignals...)

	// A severe signal is conclusive on its own. Moderate signals need two
	// or more, and only matter when the document is also suspiciously
	// short. Footer contamination is tolerated singly.
	if len(severe) > 0 {
		return &verdict{
			tier:    model.TierTruncated,
			reason:  "explicit continue-reading wall in body",
			signals: signals,
		}
	}

	moderateCount := len(moderate)
	if len(footer) > 0 && moderateCount > 0 {
		moderateCount++
	}
	if moderateCount >= 2 && doc.words < doc.cfg.TruncationWordFloor {
		return &verdict{
			tier:    model.TierTruncated,
			reason:  fmt.Sprintf("%d truncation signals with %d words", moderateCount, doc.words),
			signals: signals,
		}
	}

	return &verdict{
		tier:    model.TierComplete,
		reason:  "no disqualifying signals",
		signals: signals,
	}
}
