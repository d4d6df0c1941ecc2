package common

import (
	"strings"
	"unicode"
)

// SafeTitle reduces a title to something filename-safe: letters, digits,
// spaces, hyphens and underscores survive, everything else is dropped, and
// the result is trimmed and cut to max runes. Empty input yields "untitled".
func SafeTitle(title string, max int) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		return "untitled"
	}
	runes := []rune(safe)
	if max > 0 && len(runes) > max {
		safe = strings.TrimSpace(string(runes[:max]))
	}
	return safe
}

// SplitTitle pulls the first "# " heading out of a markdown document and
// returns it with everything after that line as the body. Generated drafts
// sometimes open with preamble before the heading; that preamble is dropped.
// When no heading exists the title is empty and the body is the input.
func SplitTitle(markdown string) (title, body string) {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return title, body
		}
	}
	return "", markdown
}

// Excerpt cuts s to at most max runes, appending an ellipsis when truncated.
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// NormalizeSpace collapses whitespace runs to single spaces and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
