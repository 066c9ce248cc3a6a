// SPDX-License-Identifier: MIT

// Package script holds the deterministic cleaner applied to any text that
// will be fed to speech synthesis. Clean is pure and idempotent; applying
// it twice is a no-op.
package script

import (
	"regexp"
	"strings"
)

var (
	thinkRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

	// Section markers of the form "=== LABEL ===" on their own line.
	markerRe       = regexp.MustCompile(`(?m)^[ \t]*===[ \t]*(.+?)[ \t]*===[ \t]*$`)
	reviewLabelRe  = regexp.MustCompile(`(?i)^REVIEW( NOTES)?$`)
	speakerBoldRe  = regexp.MustCompile(`\*\*(Speaker \d+:)\*\*`)
	boldRe         = regexp.MustCompile(`\*\*([^*]*)\*\*`)
	italicRe       = regexp.MustCompile(`\*([^*]*)\*`)
	blankRunRe     = regexp.MustCompile(`\n{4,}`)
	speakerLineRe  = regexp.MustCompile(`^Speaker \d+:`)
)

// Clean normalizes model output into a pure speaker transcript:
// reasoning blocks and section markers are stripped, Markdown emphasis is
// removed, blank runs are collapsed, and only speaker lines with their
// continuations survive.
func Clean(text string) string {
	// 1. Reasoning blocks.
	text = thinkRe.ReplaceAllString(text, "")

	// 2. Section markers. A REVIEW marker truncates to end of string;
	// all other markers are dropped in place.
	text = truncateAtReviewMarker(text)
	text = markerRe.ReplaceAllString(text, "")

	// 3. Speaker labels keep their text, everything else loses emphasis.
	text = speakerBoldRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")

	// 4. Collapse runs of three or more blank lines to exactly one.
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	// 5. Keep speaker lines and their immediate continuations.
	text = keepSpeakerBlocks(text)

	// 6. Outer whitespace.
	return strings.TrimSpace(text)
}

func truncateAtReviewMarker(text string) string {
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range locs {
		label := text[loc[2]:loc[3]]
		if reviewLabelRe.MatchString(label) {
			return text[:loc[0]]
		}
	}
	return text
}

// keepSpeakerBlocks retains lines that start a speaker turn and the lines
// that continue it, until the next speaker line or a blank line. A single
// blank line separates retained blocks.
func keepSpeakerBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		switch {
		case speakerLineRe.MatchString(trimmed):
			out = append(out, trimmed)
			inBlock = true
		case strings.TrimSpace(trimmed) == "":
			if inBlock {
				out = append(out, "")
			}
			inBlock = false
		case inBlock:
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
