// SPDX-License-Identifier: MIT

package review

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	in := []string{"  Machine Learning ", "AI", "ai", "Fin-Tech!", "", "---"}
	out := NormalizeTags(in)
	assert.Equal(t, []string{"ai", "fin-tech", "machine-learning"}, out)
}

func TestNormalizeTagsCapsAtEight(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	out := NormalizeTags(in)
	assert.Len(t, out, 8)
	assert.True(t, sortedStrings(out))
}

func TestNormalizeTagsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeTags(nil))
	assert.Empty(t, NormalizeTags([]string{"", "  ", "!!"}))
}

func TestNormalizeSummary(t *testing.T) {
	assert.Equal(t, "one two three", NormalizeSummary("one\n  two\t\nthree"))

	long := strings.Repeat("x", 600)
	assert.Len(t, NormalizeSummary(long), 500)
}

func TestNormalizeSummaryCountsRunes(t *testing.T) {
	// 400 two-byte runes fit the 500-character cap untouched.
	short := strings.Repeat("é", 400)
	assert.Equal(t, short, NormalizeSummary(short))

	// 600 three-byte runes are cut at 500 runes, never mid-character.
	long := strings.Repeat("日", 600)
	out := NormalizeSummary(long)
	assert.Equal(t, 500, utf8.RuneCountInString(out))
	assert.True(t, utf8.ValidString(out))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
