// SPDX-License-Identifier: MIT

package model

import "time"

// Bucket is a cadence release window.
type Bucket string

const (
	// BucketDaily targets one episode per 24 hours.
	BucketDaily Bucket = "daily"

	// BucketThreeDay targets one episode per 72 hours.
	BucketThreeDay Bucket = "3-day"

	// BucketWeekly targets one episode per 168 hours.
	BucketWeekly Bucket = "weekly"
)

// String returns the string representation of the bucket.
func (b Bucket) String() string {
	return string(b)
}

// IsValid checks whether the bucket is one of the defined constants.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketDaily, BucketThreeDay, BucketWeekly:
		return true
	default:
		return false
	}
}

// Window returns the release window length of the bucket.
func (b Bucket) Window() time.Duration {
	switch b {
	case BucketDaily:
		return 24 * time.Hour
	case BucketThreeDay:
		return 72 * time.Hour
	case BucketWeekly:
		return 168 * time.Hour
	default:
		return 0
	}
}

// Next returns the next longer bucket and whether one exists. Escalation
// only lengthens, never compresses.
func (b Bucket) Next() (Bucket, bool) {
	switch b {
	case BucketDaily:
		return BucketThreeDay, true
	case BucketThreeDay:
		return BucketWeekly, true
	default:
		return b, false
	}
}

// BucketFromSchedule maps a group schedule string to its preferred bucket.
// Unknown schedules fall back to daily.
func BucketFromSchedule(schedule string) Bucket {
	b := Bucket(schedule)
	if b.IsValid() {
		return b
	}
	return BucketDaily
}
