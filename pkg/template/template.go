// Package template renders message templates against event variables.
package template

import (
	"fmt"
	"regexp"

	"github.com/vantagecrm/automation/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Rendered is the output of one render: resolved subject and body plus any
// warnings for placeholders with no value. A missing variable substitutes
// the empty string so one absent field does not block an otherwise-valid
// notification; the warning lands on the execution record instead.
type Rendered struct {
	Subject  string
	Body     string
	Warnings []string
}

// Render resolves every {{name}} placeholder in the template's subject and
// body against the variable map. Values substitute verbatim, without
// escaping. Rendering is pure: identical inputs produce identical output.
func Render(tmpl *models.Template, variables map[string]string) Rendered {
	var warnings []string

	subject := renderString(tmpl, tmpl.Subject, variables, &warnings)
	body := renderString(tmpl, tmpl.Body, variables, &warnings)

	return Rendered{
		Subject:  subject,
		Body:     body,
		Warnings: warnings,
	}
}

func renderString(tmpl *models.Template, input string, variables map[string]string, warnings *[]string) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := variables[name]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("template %s: no value for placeholder %q", tmpl.ID, name))

			return ""
		}

		return value
	})
}

// Placeholders returns the distinct placeholder names found in the
// template's subject and body, in first-appearance order. The authoring
// layer compares this against Template.Variables.
func Placeholders(tmpl *models.Template) []string {
	seen := make(map[string]bool)

	var names []string

	for _, input := range []string{tmpl.Subject, tmpl.Body} {
		for _, match := range placeholderPattern.FindAllStringSubmatch(input, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				names = append(names, match[1])
			}
		}
	}

	return names
}
