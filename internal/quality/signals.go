package quality

import (
	"regexp"
	"strings"
)

// Signal names recorded on assessments. Severe signals are conclusive on
// their own; moderate signals need two or more.
const (
	SignalContinuePrompt    = "severe:continue_prompt"
	SignalTrailingEllipsis  = "moderate:trailing_ellipsis"
	SignalNoTerminalPunct   = "moderate:no_terminal_punct"
	SignalFooterBoilerplate = "footer:boilerplate"
)

// severeTruncationRes match explicit continue-reading walls appended where
// the article was cut off.
var severeTruncationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sign|log) in to continue( reading)?`),
	regexp.MustCompile(`(?i)subscribe to (continue|read|keep reading)`),
	regexp.MustCompile(`(?i)to continue reading,? (please )?(subscribe|sign in|register)`),
	regexp.MustCompile(`(?i)the rest of this (article|review) is (for|available to) (subscribers|members)`),
	regexp.MustCompile(`(?i)create a free account to (continue|keep) reading`),
}

var footerBoilerplateRe = regexp.MustCompile(`(?i)(©\s?\d{4}|all rights reserved|terms of (use|service)|privacy policy)`)

// truncationSignals inspects body text for evidence it was cut short.
// Call it on junk-stripped text; a junk suffix otherwise reads as the
// document's ending.
func truncationSignals(text string) (severe []string, moderate []string, footer []string) {
	for _, re := range severeTruncationRes {
		if re.MatchString(text) {
			severe = append(severe, SignalContinuePrompt)
			break
		}
	}

	tail := strings.TrimSpace(text)
	if len(tail) > 200 {
		tail = strings.TrimSpace(tail[len(tail)-200:])
	}

	if strings.HasSuffix(tail, "...") || strings.HasSuffix(tail, "…") || strings.HasSuffix(tail, "[...]") || strings.HasSuffix(tail, "[…]") {
		moderate = append(moderate, SignalTrailingEllipsis)
	} else if !endsWithTerminalPunct(tail) {
		moderate = append(moderate, SignalNoTerminalPunct)
	}

	// Legal boilerplate stranded past the real ending. Tolerated singly:
	// footer contamination alone does not prove truncation.
	if idx := lastParagraphStart(text); idx >= 0 {
		if footerBoilerplateRe.MatchString(text[idx:]) {
			footer = append(footer, SignalFooterBoilerplate)
		}
	}

	return severe, moderate, footer
}

func endsWithTerminalPunct(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), `"')]*_`)
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

func lastParagraphStart(text string) int {
	return strings.LastIndex(strings.TrimRight(text, "\n "), "\n\n")
}
