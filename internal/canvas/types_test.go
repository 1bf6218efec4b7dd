package canvas

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEffectiveDate(t *testing.T) {
	due := time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC)
	lock := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a    Assignment
		want *time.Time
	}{
		{"due date wins", Assignment{DueAt: timePtr(due), LockAt: timePtr(lock), CreatedAt: timePtr(created)}, timePtr(due)},
		{"lock date fallback", Assignment{LockAt: timePtr(lock), CreatedAt: timePtr(created)}, timePtr(lock)},
		{"created date fallback", Assignment{CreatedAt: timePtr(created)}, timePtr(created)},
		{"all absent", Assignment{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.EffectiveDate())
		})
	}
}

func TestPlainDescription_StripsHTML(t *testing.T) {
	a := Assignment{Description: `<p>Read <b>chapters 1-3</b> and answer the<br/> questions.</p>`}
	assert.Equal(t, "Read chapters 1-3 and answer the questions.", a.PlainDescription(2000))
}

func TestPlainDescription_Truncates(t *testing.T) {
	a := Assignment{Description: strings.Repeat("x", 3000)}
	got := a.PlainDescription(2000)
	assert.Len(t, []rune(got), 2000)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPlainDescription_Empty(t *testing.T) {
	a := Assignment{Description: ""}
	assert.Equal(t, "", a.PlainDescription(2000))
}

func TestPlainDescription_MultibyteSafe(t *testing.T) {
	a := Assignment{Description: strings.Repeat("é", 50)}
	got := a.PlainDescription(10)
	assert.Len(t, []rune(got), 10)
	assert.True(t, strings.HasSuffix(got, "..."))
}
