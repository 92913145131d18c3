package workflow

import (
	"strings"
	"text/template"

	ierr "github.com/freelanceops/billing/internal/errors"
)

// Render fills a text template such as "Invoice {{.invoice_number}} is overdue" with payload fields.
// Referencing a field the payload does not carry is an error.
func Render(text string, fields Fields) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("action").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Template could not be parsed").
			Mark(ierr.ErrValidation)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, fields.Strings()); err != nil {
		return "", ierr.WithError(err).
			WithHint("Template references a field the event does not carry").
			Mark(ierr.ErrValidation)
	}
	return b.String(), nil
}

// validateTemplate renders text against the zero payload of an event type
func validateTemplate(text string, schema map[string]FieldKind) error {
	fields := make(Fields, len(schema))
	for name, kind := range schema {
		fields[name] = Value{Kind: kind}
	}
	_, err := Render(text, fields)
	return err
}
