// SPDX-License-Identifier: MIT

package review

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxTags       = 8
	maxSummaryLen = 500
)

var tagCleanRe = regexp.MustCompile(`[^a-z0-9-]+`)

// NormalizeTags lower-cases, hyphenates, deduplicates and sorts tags, and
// caps cardinality at eight. Tags are open vocabulary; nothing validates
// them against a fixed list.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.ReplaceAll(t, " ", "-")
		t = tagCleanRe.ReplaceAllString(t, "")
		t = strings.Trim(t, "-")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) > maxTags {
		out = out[:maxTags]
	}
	return out
}

// NormalizeSummary collapses the summary into a single paragraph of at
// most 500 characters. The cap counts runes, not bytes, so multibyte
// summaries are never split mid-character.
func NormalizeSummary(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxSummaryLen {
		s = string([]rune(s)[:maxSummaryLen])
	}
	return s
}
