package templates

import (
	"net/url"

	"github.com/a-h/templ"
)

// SessionParams is the view of one session.
type SessionParams struct {
	ID              string
	Filename        string
	OriginalRows    int
	Rows            int
	Columns         []string
	TemporalColumns []string
	History         []string
	Warnings        []string
	Preview         [][]string
}

// DetectionMethod is one option of the auto-detect form.
type DetectionMethod struct {
	Value string
	Label string
}

// DetectionMethods lists the auto-detect predicates in menu order.
var DetectionMethods = []DetectionMethod{
	{Value: "date-pattern", Label: "Date pattern"},
	{Value: "numeric-pattern", Label: "Numeric pattern"},
	{Value: "after-blank", Label: "First row after blanks"},
	{Value: "non-header", Label: "First non-header row"},
}

func (p SessionParams) apiPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(p.ID) + suffix
}

// ExportURL links to a download of the current table.
func (p SessionParams) ExportURL(format string) templ.SafeURL {
	return templ.URL(p.apiPath("/export?format=" + url.QueryEscape(format)))
}

// StepPath is the API path of a processing step.
func (p SessionParams) StepPath(step string) string {
	return p.apiPath("/" + step)
}
