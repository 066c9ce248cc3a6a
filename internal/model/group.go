// SPDX-License-Identifier: MIT

package model

// DefaultMinArticles is the minimum collection size for episode generation.
const DefaultMinArticles = 3

// PodcastGroup is a themed show that periodically releases episodes.
type PodcastGroup struct {
	ID           string
	Name         string
	Active       bool
	CategoryTags []string

	// Schedule selects the preferred cadence bucket: "daily", "3-day" or
	// "weekly".
	Schedule string

	// MinArticles is the minimum collection size for generation; zero means
	// DefaultMinArticles.
	MinArticles int

	// PresenterIDs holds 1-4 assigned presenter voices.
	PresenterIDs []string
	WriterID     string

	// TargetMinutes is the desired episode length.
	TargetMinutes int
}

// MinArticlesOrDefault returns the effective minimum article threshold.
func (g *PodcastGroup) MinArticlesOrDefault() int {
	if g.MinArticles > 0 {
		return g.MinArticles
	}
	return DefaultMinArticles
}
