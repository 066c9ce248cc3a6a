// SPDX-License-Identifier: MIT

// Package dedup rejects articles whose content fingerprint was already
// seen within the TTL window.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/metrics"
	"github.com/podops/overseer/internal/state"
)

// Decision is the outcome of a dedup check.
type Decision string

const (
	// Accepted means the fingerprint was new within the TTL window.
	Accepted Decision = "accepted"

	// Duplicate means the fingerprint was already present.
	Duplicate Decision = "duplicate"
)

// Filter is the content-level deduplication gate in front of the review
// router.
type Filter struct {
	client *state.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New returns a dedup filter with the given fingerprint TTL.
func New(client *state.Client, ttl time.Duration, logger zerolog.Logger) *Filter {
	return &Filter{client: client, ttl: ttl, logger: logger}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalize lower-cases, collapses whitespace, strips punctuation except
// digits, and trims the result.
func normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// Fingerprint computes the hex SHA-256 over the normalized title and body,
// joined by a unit separator so the boundary cannot shift.
func Fingerprint(title, body string) string {
	h := sha256.Sum256([]byte(normalize(title) + "\x1f" + normalize(body)))
	return hex.EncodeToString(h[:])
}

// Accept inserts the article fingerprint conditional-on-absent. When the
// fast store is unreachable the filter fails open: duplicates downstream
// are tolerable, data loss is not.
func (f *Filter) Accept(ctx context.Context, title, body string) (Decision, string) {
	fp := Fingerprint(title, body)
	added, err := f.client.AddFingerprint(ctx, fp, f.ttl)
	if err != nil {
		f.logger.Warn().Err(err).Msg("dedup store unreachable, failing open")
		metrics.IncDedupBypassed()
		return Accepted, fp
	}
	if !added {
		metrics.IncDedupCheck(string(Duplicate))
		return Duplicate, fp
	}
	metrics.IncDedupCheck(string(Accepted))
	return Accepted, fp
}
