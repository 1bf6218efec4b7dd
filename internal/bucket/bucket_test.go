package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(f float64) *float64 { return &f }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		dueAt *time.Time
		want  Bucket
	}{
		{"no due date", nil, Undated},
		{"due yesterday", timePtr(now.Add(-24 * time.Hour)), Past},
		{"due one second ago", timePtr(now.Add(-time.Second)), Past},
		{"due in an hour", timePtr(now.Add(time.Hour)), Upcoming},
		{"due just inside the window", timePtr(now.Add(UpcomingWindow - time.Second)), Upcoming},
		{"due exactly at the window edge", timePtr(now.Add(UpcomingWindow)), Future},
		{"due next month", timePtr(now.Add(30 * 24 * time.Hour)), Future},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.dueAt, now))
		})
	}
}

func TestClassify_DueExactlyNow(t *testing.T) {
	// A due date equal to now is not before now, so it is upcoming.
	assert.Equal(t, Upcoming, Classify(timePtr(now), now))
}

func TestUngraded(t *testing.T) {
	due := timePtr(now.Add(time.Hour))

	assert.True(t, Ungraded(due, nil))
	assert.True(t, Ungraded(due, floatPtr(0)))
	assert.False(t, Ungraded(due, floatPtr(10)))

	// Undated assignments are never tagged ungraded, whatever the points.
	assert.False(t, Ungraded(nil, nil))
	assert.False(t, Ungraded(nil, floatPtr(0)))
}

func TestParse(t *testing.T) {
	for _, b := range All {
		got, err := Parse(string(b))
		assert.NoError(t, err)
		assert.Equal(t, b, got)
	}

	_, err := Parse("overdue")
	assert.Error(t, err)
}

func TestNewSet_RejectsUnknown(t *testing.T) {
	_, err := NewSet([]string{"past", "someday"})
	assert.Error(t, err)
}

func TestSetMatches(t *testing.T) {
	pastDue := timePtr(now.Add(-48 * time.Hour))
	upcomingDue := timePtr(now.Add(time.Hour))

	onlyUpcoming, err := NewSet([]string{"upcoming"})
	assert.NoError(t, err)
	assert.True(t, onlyUpcoming.Matches(upcomingDue, floatPtr(10), now))
	assert.False(t, onlyUpcoming.Matches(pastDue, floatPtr(10), now))
	assert.False(t, onlyUpcoming.Matches(nil, floatPtr(10), now))

	// Selecting the ungraded tag admits assignments outside the selected
	// time buckets when the tag applies.
	upcomingPlusUngraded, err := NewSet([]string{"upcoming", "ungraded"})
	assert.NoError(t, err)
	assert.True(t, upcomingPlusUngraded.Matches(pastDue, floatPtr(0), now))
	assert.False(t, upcomingPlusUngraded.Matches(pastDue, floatPtr(10), now))

	// The tag alone never admits undated work; that needs the undated
	// bucket itself.
	onlyUngraded, err := NewSet([]string{"ungraded"})
	assert.NoError(t, err)
	assert.False(t, onlyUngraded.Matches(nil, nil, now))
	assert.True(t, onlyUngraded.Matches(pastDue, nil, now))
}

func TestSetMatches_Empty(t *testing.T) {
	var empty Set
	assert.False(t, empty.Matches(timePtr(now.Add(time.Hour)), nil, now))
}

func TestDefaultSet(t *testing.T) {
	s := DefaultSet()
	assert.ElementsMatch(t, []string{"past", "undated", "upcoming", "future", "ungraded"}, s.Names())

	// Everything passes the default filter.
	assert.True(t, s.Matches(nil, nil, now))
	assert.True(t, s.Matches(timePtr(now.Add(-time.Hour)), floatPtr(5), now))
	assert.True(t, s.Matches(timePtr(now.Add(100*24*time.Hour)), floatPtr(5), now))
}

func TestNames_StableOrder(t *testing.T) {
	s, err := NewSet([]string{"future", "past"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"past", "future"}, s.Names())
}
