// Package bucket classifies assignments into time buckets relative to a
// reference instant. Classification is pure: the same inputs always
// produce the same bucket.
package bucket

import (
	"fmt"
	"time"
)

// UpcomingWindow is how far ahead a due date may be and still count as
// upcoming. Anything beyond it is future.
const UpcomingWindow = 7 * 24 * time.Hour

// Bucket is the time classification of an assignment.
type Bucket string

const (
	Past     Bucket = "past"
	Undated  Bucket = "undated"
	Upcoming Bucket = "upcoming"
	Future   Bucket = "future"
	// Ungraded is not a time bucket: it is a secondary tag selectable in
	// preferences. See Ungraded() and Set.Matches.
	UngradedTag Bucket = "ungraded"
)

// All lists every selectable bucket, in preference-display order.
var All = []Bucket{Past, Undated, Upcoming, Future, UngradedTag}

// Valid reports whether b is a known bucket name.
func Valid(b Bucket) bool {
	switch b {
	case Past, Undated, Upcoming, Future, UngradedTag:
		return true
	}
	return false
}

// Parse converts a preference string into a Bucket.
func Parse(s string) (Bucket, error) {
	b := Bucket(s)
	if !Valid(b) {
		return "", fmt.Errorf("unknown bucket %q", s)
	}
	return b, nil
}

// Classify maps a due timestamp to its time bucket. An assignment with
// no due date is always undated, regardless of points.
func Classify(dueAt *time.Time, now time.Time) Bucket {
	if dueAt == nil {
		return Undated
	}
	switch {
	case dueAt.Before(now):
		return Past
	case dueAt.Before(now.Add(UpcomingWindow)):
		return Upcoming
	default:
		return Future
	}
}

// Ungraded reports whether the ungraded tag applies: a due date exists
// but points possible is absent or zero. It overlaps the time buckets
// rather than replacing them, so an assignment can be both upcoming and
// ungraded for filtering purposes.
func Ungraded(dueAt *time.Time, points *float64) bool {
	if dueAt == nil {
		return false
	}
	return points == nil || *points == 0
}

// Set is a selection of buckets used to filter assignments.
type Set map[Bucket]bool

// NewSet builds a Set from bucket names, rejecting unknown ones.
func NewSet(names []string) (Set, error) {
	s := make(Set, len(names))
	for _, n := range names {
		b, err := Parse(n)
		if err != nil {
			return nil, err
		}
		s[b] = true
	}
	return s, nil
}

// DefaultSet selects every bucket.
func DefaultSet() Set {
	s := make(Set, len(All))
	for _, b := range All {
		s[b] = true
	}
	return s
}

// Matches reports whether an assignment with the given due date and
// points passes the filter: its time bucket is selected, or the
// ungraded tag is selected and applies.
func (s Set) Matches(dueAt *time.Time, points *float64, now time.Time) bool {
	if len(s) == 0 {
		return false
	}
	if s[Classify(dueAt, now)] {
		return true
	}
	return s[UngradedTag] && Ungraded(dueAt, points)
}

// Names returns the selected bucket names in stable order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for _, b := range All {
		if s[b] {
			names = append(names, string(b))
		}
	}
	return names
}
