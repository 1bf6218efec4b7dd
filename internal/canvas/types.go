package canvas

import (
	"regexp"
	"strings"
	"time"
)

// Course is a Canvas course the token's user is enrolled in.
type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Assignment is a Canvas assignment as returned by the assignments
// endpoint. Assignments are fetched fresh every run and never persisted.
type Assignment struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	DueAt           *time.Time `json:"due_at"`
	LockAt          *time.Time `json:"lock_at"`
	CreatedAt       *time.Time `json:"created_at"`
	PointsPossible  *float64   `json:"points_possible"`
	CourseID        int64      `json:"course_id"`
	HTMLURL         string     `json:"html_url"`
	SubmissionTypes []string   `json:"submission_types"`
	Description     string     `json:"description"`

	// CourseName is attached after fetch; the assignments endpoint does
	// not include it.
	CourseName string `json:"-"`
}

// EffectiveDate is the date shown in Notion: the due date when present,
// otherwise the lock date, otherwise the creation date.
func (a Assignment) EffectiveDate() *time.Time {
	for _, t := range []*time.Time{a.DueAt, a.LockAt, a.CreatedAt} {
		if t != nil {
			return t
		}
	}
	return nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// PlainDescription strips HTML tags from the description and truncates
// to maxLen runes. Notion rejects rich text content over 2000 chars.
func (a Assignment) PlainDescription(maxLen int) string {
	plain := strings.TrimSpace(htmlTagPattern.ReplaceAllString(a.Description, ""))
	runes := []rune(plain)
	if len(runes) <= maxLen {
		return plain
	}
	return string(runes[:maxLen-3]) + "..."
}
