package notion

import (
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
)

func validPropertyConfigs() notionapi.PropertyConfigs {
	return notionapi.PropertyConfigs{
		propName:      notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
		propDueDate:   notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate},
		propCourse:    notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		propPoints:    notionapi.NumberPropertyConfig{Type: notionapi.PropertyConfigTypeNumber},
		propCanvasURL: notionapi.URLPropertyConfig{Type: notionapi.PropertyConfigTypeURL},
		propCanvasID:  notionapi.NumberPropertyConfig{Type: notionapi.PropertyConfigTypeNumber},
		propStatus:    notionapi.SelectPropertyConfig{Type: notionapi.PropertyConfigTypeSelect},
	}
}

func TestCheckProperties_Valid(t *testing.T) {
	assert.NoError(t, checkProperties(validPropertyConfigs()))
}

func TestCheckProperties_ExtraPropertiesIgnored(t *testing.T) {
	props := validPropertyConfigs()
	props["Notes"] = notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	assert.NoError(t, checkProperties(props))
}

func TestCheckProperties_MissingProperty(t *testing.T) {
	props := validPropertyConfigs()
	delete(props, propCanvasID)

	err := checkProperties(props)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Issues, 1)
	assert.Equal(t, propCanvasID, schemaErr.Issues[0].Name)
	assert.Equal(t, "number", schemaErr.Issues[0].Want)
	assert.Empty(t, schemaErr.Issues[0].Got)
}

func TestCheckProperties_WrongType(t *testing.T) {
	props := validPropertyConfigs()
	props[propDueDate] = notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}

	err := checkProperties(props)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Issues, 1)
	assert.Equal(t, propDueDate, schemaErr.Issues[0].Name)
	assert.Equal(t, "date", schemaErr.Issues[0].Want)
	assert.Equal(t, "rich_text", schemaErr.Issues[0].Got)
}

func TestCheckProperties_ReportsAllIssuesAtOnce(t *testing.T) {
	props := validPropertyConfigs()
	delete(props, propName)
	delete(props, propStatus)
	props[propPoints] = notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}

	err := checkProperties(props)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Issues, 3)
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Issues: []PropertyIssue{
		{Name: "Due Date", Want: "date"},
		{Name: "Points", Want: "number", Got: "rich_text"},
	}}
	assert.Contains(t, err.Error(), "Due Date: missing (want date)")
	assert.Contains(t, err.Error(), "Points: is rich_text, want number")
}
