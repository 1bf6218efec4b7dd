package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// PropertyIssue describes one required property that is missing or has
// the wrong type.
type PropertyIssue struct {
	Name string
	Want string
	Got  string // empty when the property is missing entirely
}

func (i PropertyIssue) String() string {
	if i.Got == "" {
		return fmt.Sprintf("%s: missing (want %s)", i.Name, i.Want)
	}
	return fmt.Sprintf("%s: is %s, want %s", i.Name, i.Got, i.Want)
}

// SchemaError reports required database properties that are absent or
// mistyped. It is surfaced before any write is attempted; the database
// is never modified to fit.
type SchemaError struct {
	Issues []PropertyIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "notion: database schema mismatch: " + strings.Join(parts, "; ")
}

var requiredProperties = []struct {
	name string
	typ  notionapi.PropertyConfigType
}{
	{propName, notionapi.PropertyConfigTypeTitle},
	{propDueDate, notionapi.PropertyConfigTypeDate},
	{propCourse, notionapi.PropertyConfigTypeRichText},
	{propPoints, notionapi.PropertyConfigTypeNumber},
	{propCanvasURL, notionapi.PropertyConfigTypeURL},
	{propCanvasID, notionapi.PropertyConfigTypeNumber},
	{propStatus, notionapi.PropertyConfigTypeSelect},
}

// VerifySchema fetches the database schema and checks the fixed
// property set. A *SchemaError lists every missing or mistyped
// property at once so the user can fix them in one pass.
func (c *Client) VerifySchema(ctx context.Context) error {
	db, err := c.api.Database.Get(ctx, c.databaseID)
	if err != nil {
		return mapErr(err)
	}
	return checkProperties(db.Properties)
}

func checkProperties(props notionapi.PropertyConfigs) error {
	var issues []PropertyIssue
	for _, req := range requiredProperties {
		cfg, ok := props[req.name]
		if !ok {
			issues = append(issues, PropertyIssue{Name: req.name, Want: string(req.typ)})
			continue
		}
		if got := cfg.GetType(); got != req.typ {
			issues = append(issues, PropertyIssue{Name: req.name, Want: string(req.typ), Got: string(got)})
		}
	}
	if len(issues) > 0 {
		return &SchemaError{Issues: issues}
	}
	return nil
}
