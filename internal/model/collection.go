// SPDX-License-Identifier: MIT

package model

import "time"

// CollectionStatus represents the lifecycle state of an article collection.
type CollectionStatus string

const (
	// CollectionBuilding indicates the collection is accepting new articles.
	CollectionBuilding CollectionStatus = "building"

	// CollectionReady is an advisory marker; the canonical readiness check
	// happens at generation time.
	CollectionReady CollectionStatus = "ready"

	// CollectionSnapshot indicates the collection is frozen and bound to an
	// episode. Terminal.
	CollectionSnapshot CollectionStatus = "snapshot"

	// CollectionExpired indicates an empty stale building collection that
	// was swept. Terminal.
	CollectionExpired CollectionStatus = "expired"
)

// String returns the string representation of the collection status.
func (s CollectionStatus) String() string {
	return string(s)
}

// IsValid checks whether the collection status is one of the defined constants.
func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionBuilding, CollectionReady, CollectionSnapshot, CollectionExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is final.
func (s CollectionStatus) IsTerminal() bool {
	switch s {
	case CollectionSnapshot, CollectionExpired:
		return true
	default:
		return false
	}
}

// Collection is an append-only container of articles. Exactly one building
// collection exists per active group; snapshots are immutable.
type Collection struct {
	ID        string
	Name      string
	Status    CollectionStatus
	CreatedAt time.Time

	// LinkedEpisodeID is set iff Status is CollectionSnapshot.
	LinkedEpisodeID string

	// ParentCollectionID links a successor to the snapshot it replaced.
	ParentCollectionID string

	// GroupIDs are the owning groups (many-to-many).
	GroupIDs []string
}
