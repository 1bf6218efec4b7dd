package notion

import (
	"time"

	"github.com/jomei/notionapi"

	"cnsync/internal/canvas"
)

// Fixed property names of the target database. VerifySchema checks
// these exist with the right types before any write is attempted.
const (
	propName      = "Name"
	propDueDate   = "Due Date"
	propCourse    = "Course"
	propPoints    = "Points"
	propCanvasURL = "Canvas URL"
	propCanvasID  = "Canvas ID"
	propStatus    = "Status"
)

// Mapped is the projection of an assignment onto the fixed Notion
// property set. Reconciliation compares Mapped values field by field;
// nothing outside this set participates in the equality check.
type Mapped struct {
	Name     string
	Due      *time.Time
	Course   string
	Points   *float64
	URL      string
	CanvasID int64
	Status   string
}

// MapAssignment projects a Canvas assignment. Status is the display
// label chosen by the caller (the bucket name).
func MapAssignment(a canvas.Assignment, status string) Mapped {
	return Mapped{
		Name:     a.Name,
		Due:      a.EffectiveDate(),
		Course:   a.CourseName,
		Points:   a.PointsPossible,
		URL:      a.HTMLURL,
		CanvasID: a.ID,
		Status:   status,
	}
}

// Properties renders the Mapped value as a Notion property payload.
// A nil due date clears the Due Date property; nil points is written as
// zero so that a round trip through Notion reads back equal.
func (m Mapped) Properties() notionapi.Properties {
	props := notionapi.Properties{
		propName:      notionapi.TitleProperty{Title: richText(m.Name)},
		propCourse:    notionapi.RichTextProperty{RichText: richText(m.Course)},
		propPoints:    notionapi.NumberProperty{Number: m.pointsValue()},
		propCanvasURL: notionapi.URLProperty{URL: m.URL},
		propCanvasID:  notionapi.NumberProperty{Number: float64(m.CanvasID)},
		propStatus:    notionapi.SelectProperty{Select: notionapi.Option{Name: m.Status}},
	}
	if m.Due != nil {
		d := notionapi.Date(*m.Due)
		props[propDueDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	} else {
		props[propDueDate] = notionapi.DateProperty{}
	}
	return props
}

// MappedFromPage reads the fixed property set back out of a page
// returned by a database query. Unknown or mistyped properties read as
// zero values; VerifySchema runs before reconciliation, so that only
// happens on databases that would have been rejected anyway.
func MappedFromPage(page *notionapi.Page) Mapped {
	var m Mapped
	if tp, ok := page.Properties[propName].(*notionapi.TitleProperty); ok {
		m.Name = plainText(tp.Title)
	}
	if dp, ok := page.Properties[propDueDate].(*notionapi.DateProperty); ok {
		if dp.Date != nil && dp.Date.Start != nil {
			t := time.Time(*dp.Date.Start)
			m.Due = &t
		}
	}
	if rp, ok := page.Properties[propCourse].(*notionapi.RichTextProperty); ok {
		m.Course = plainText(rp.RichText)
	}
	if np, ok := page.Properties[propPoints].(*notionapi.NumberProperty); ok {
		v := np.Number
		m.Points = &v
	}
	if up, ok := page.Properties[propCanvasURL].(*notionapi.URLProperty); ok {
		m.URL = up.URL
	}
	if np, ok := page.Properties[propCanvasID].(*notionapi.NumberProperty); ok {
		m.CanvasID = int64(np.Number)
	}
	if sp, ok := page.Properties[propStatus].(*notionapi.SelectProperty); ok {
		m.Status = sp.Select.Name
	}
	return m
}

// Equal compares the mapped fields only. Dates compare at day
// granularity: Canvas sends instants, Notion stores calendar dates.
func (m Mapped) Equal(o Mapped) bool {
	return m.Name == o.Name &&
		dayEqual(m.Due, o.Due) &&
		m.Course == o.Course &&
		m.pointsValue() == o.pointsValue() &&
		m.URL == o.URL &&
		m.CanvasID == o.CanvasID &&
		m.Status == o.Status
}

func (m Mapped) pointsValue() float64 {
	if m.Points == nil {
		return 0
	}
	return *m.Points
}

func dayEqual(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.UTC().Format("2006-01-02") == b.UTC().Format("2006-01-02")
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: content}}}
}

func plainText(parts []notionapi.RichText) string {
	out := ""
	for _, rt := range parts {
		if rt.PlainText != "" {
			out += rt.PlainText
		} else if rt.Text != nil {
			out += rt.Text.Content
		}
	}
	return out
}
