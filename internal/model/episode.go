// SPDX-License-Identifier: MIT

package model

import "time"

// EpisodeStatus represents the state of an episode in the generation
// pipeline. State progresses monotonically; Published and Failed are
// terminal.
type EpisodeStatus string

const (
	// EpisodeDraft indicates the episode row exists but has no script yet.
	EpisodeDraft EpisodeStatus = "draft"

	// EpisodeScripted indicates the writer produced a script.
	EpisodeScripted EpisodeStatus = "scripted"

	// EpisodeEdited indicates the edit pass completed (possibly degraded).
	EpisodeEdited EpisodeStatus = "edited"

	// EpisodeVoiced indicates audio synthesis succeeded. Retriable for
	// publishing.
	EpisodeVoiced EpisodeStatus = "voiced"

	// EpisodePublished indicates platform URLs were stored. Terminal.
	EpisodePublished EpisodeStatus = "published"

	// EpisodeFailed indicates a pipeline stage failed. Terminal.
	EpisodeFailed EpisodeStatus = "failed"
)

// String returns the string representation of the episode status.
func (s EpisodeStatus) String() string {
	return string(s)
}

// IsValid checks whether the episode status is one of the defined constants.
func (s EpisodeStatus) IsValid() bool {
	switch s {
	case EpisodeDraft, EpisodeScripted, EpisodeEdited, EpisodeVoiced, EpisodePublished, EpisodeFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the episode status is final.
func (s EpisodeStatus) IsTerminal() bool {
	switch s {
	case EpisodePublished, EpisodeFailed:
		return true
	default:
		return false
	}
}

// rank orders the forward path of the state machine.
func (s EpisodeStatus) rank() int {
	switch s {
	case EpisodeDraft:
		return 0
	case EpisodeScripted:
		return 1
	case EpisodeEdited:
		return 2
	case EpisodeVoiced:
		return 3
	case EpisodePublished:
		return 4
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// Any non-terminal state may transition to Failed.
func (s EpisodeStatus) CanTransitionTo(next EpisodeStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == EpisodeFailed {
		return true
	}
	return next.rank() == s.rank()+1
}

// EpisodeMetadata holds the publish-facing fields generated for an episode.
type EpisodeMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Episode is one generated podcast episode.
type Episode struct {
	ID      string
	GroupID string

	// SnapshotCollectionID is set before status leaves draft.
	SnapshotCollectionID string

	Status        EpisodeStatus
	Script        string
	EditedScript  string
	Metadata      EpisodeMetadata
	FailureReason string
	DegradedEdit  bool
	PublishURLs   []string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt time.Time
}

// AudioFile is the synthesized audio for an episode. One-to-one with
// Episode once the episode reaches voiced.
type AudioFile struct {
	ID              string
	EpisodeID       string
	StoragePath     string
	DurationSeconds float64
	ByteSize        int64
	Format          string
	CreatedAt       time.Time
}
