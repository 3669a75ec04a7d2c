package quality

import (
	"regexp"
	"strings"
)

// Structural junk: lines that belong to page chrome rather than the
// document. Matched per line, stripped from the leading and trailing
// edges only — junk in the middle of a document is left alone.
var junkLineRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(home|news|reviews|shows|tickets|menu|search|subscribe|sign in|log ?in|account|more)\s*$`),
	regexp.MustCompile(`(?i)^(sign up|subscribe) (for|to) (our|the) newsletter`),
	regexp.MustCompile(`(?i)^get the latest .* delivered`),
	regexp.MustCompile(`(?i)^(follow us|share this|related articles|you might also like|recommended for you)`),
	regexp.MustCompile(`(?i)^(accept|manage) (all )?cookies`),
	regexp.MustCompile(`(?i)^we use cookies`),
	regexp.MustCompile(`(?i)^(privacy policy|terms of (use|service)|cookie policy|advertise with us|contact us)\s*$`),
	regexp.MustCompile(`(?i)^©\s?\d{4}`),
	regexp.MustCompile(`(?i)^all rights reserved`),
	regexp.MustCompile(`^\[?https?://\S+\]?$`),
}

func isJunkLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, re := range junkLineRes {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// StripStructuralJunk removes navigation banners, signup forms, and legal
// boilerplate from the edges of text, so a junk suffix is not misread as
// the document's genuine ending. If stripping would remove more than
// maxFraction of the original, the original is returned unchanged — one
// overzealous pattern must not destroy a short but legitimate document.
func StripStructuralJunk(text string, maxFraction float64) (string, []string) {
	lines := strings.Split(text, "\n")

	start := 0
	for start < len(lines) && (strings.TrimSpace(lines[start]) == "" || isJunkLine(lines[start])) {
		start++
	}
	end := len(lines)
	for end > start && (strings.TrimSpace(lines[end-1]) == "" || isJunkLine(lines[end-1])) {
		end--
	}

	if start == 0 && end == len(lines) {
		return text, nil
	}

	stripped := strings.TrimSpace(strings.Join(lines[start:end], "\n"))

	removed := len(text) - len(stripped)
	if len(text) > 0 && float64(removed)/float64(len(text)) > maxFraction {
		return text, []string{"strip:reverted_over_budget"}
	}

	var signals []string
	if start > 0 {
		signals = append(signals, "strip:leading_junk")
	}
	if end < len(lines) {
		signals = append(signals, "strip:trailing_junk")
	}
	return stripped, signals
}

// menuKeywords are navigation words counted when deciding whether text is
// dominated by a menu rather than prose.
var menuKeywords = []string{
	"home", "tickets", "shows", "news", "reviews", "video", "photos",
	"broadway", "off-broadway", "menu", "search", "subscribe", "account",
	"faq", "contact", "about",
}

// looksLikeNavigationDump reports whether text is mostly very short lines
// laced with menu keywords — the signature of a scraped navigation menu.
func looksLikeNavigationDump(text string) bool {
	lines := strings.Split(text, "\n")
	var nonEmpty, short int
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		nonEmpty++
		if len(strings.Fields(t)) <= 3 {
			short++
		}
	}
	if nonEmpty < 8 || float64(short)/float64(nonEmpty) < 0.6 {
		return false
	}

	lower := strings.ToLower(text)
	var hits int
	for _, kw := range menuKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits >= 4
}
