package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeTitle(t *testing.T) {
	assert.Equal(t, "Vaccine rollout 2026", SafeTitle("Vaccine rollout: 2026!", 30))
	assert.Equal(t, "untitled", SafeTitle("???///", 30))
	assert.Equal(t, "abcde", SafeTitle("abcdefgh", 5))
	assert.Equal(t, "abc", SafeTitle("abc   def", 4), "truncation trims trailing space")
}

func TestSplitTitle(t *testing.T) {
	title, body := SplitTitle("preamble\n# Headline\n\nBody text.")
	assert.Equal(t, "Headline", title)
	assert.Equal(t, "Body text.", body)

	title, body = SplitTitle("no heading at all")
	assert.Empty(t, title)
	assert.Equal(t, "no heading at all", body)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	long := strings.Repeat("x", 20)
	got := Excerpt(long, 10)
	assert.Equal(t, strings.Repeat("x", 10)+"…", got)
	assert.Equal(t, long, Excerpt(long, 0), "non-positive max means no cut")
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("  a\n\tb   c "))
}
