// SPDX-License-Identifier: MIT

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpisodeStatusTransitions(t *testing.T) {
	legal := []struct{ from, to EpisodeStatus }{
		{EpisodeDraft, EpisodeScripted},
		{EpisodeScripted, EpisodeEdited},
		{EpisodeEdited, EpisodeVoiced},
		{EpisodeVoiced, EpisodePublished},
		{EpisodeDraft, EpisodeFailed},
		{EpisodeScripted, EpisodeFailed},
		{EpisodeEdited, EpisodeFailed},
		{EpisodeVoiced, EpisodeFailed},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to EpisodeStatus }{
		{EpisodeDraft, EpisodeEdited},
		{EpisodeDraft, EpisodeVoiced},
		{EpisodeScripted, EpisodeDraft},
		{EpisodeVoiced, EpisodeScripted},
		{EpisodePublished, EpisodeFailed},
		{EpisodePublished, EpisodeVoiced},
		{EpisodeFailed, EpisodeDraft},
		{EpisodeFailed, EpisodePublished},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEpisodeStatusTerminal(t *testing.T) {
	assert.True(t, EpisodePublished.IsTerminal())
	assert.True(t, EpisodeFailed.IsTerminal())
	assert.False(t, EpisodeDraft.IsTerminal())
	assert.False(t, EpisodeVoiced.IsTerminal())
}
