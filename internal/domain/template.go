package domain

import (
	"fmt"
	"strings"
)

// Template names a read-only set of journal support files.
type Template string

const (
	TemplateAASTeX   Template = "aastex"
	TemplateMNRAS    Template = "mnras"
	TemplateApJ      Template = "apj"
	TemplateIEEE     Template = "ieee"
	TemplateElsevier Template = "elsevier"
)

const DefaultTemplate = TemplateAASTeX

var templates = []Template{
	TemplateAASTeX,
	TemplateMNRAS,
	TemplateApJ,
	TemplateIEEE,
	TemplateElsevier,
}

// Templates returns the supported template identifiers in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

func ParseTemplate(raw string) (Template, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultTemplate, nil
	}
	for _, t := range templates {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported template: %s", raw)
}

func (t Template) String() string { return string(t) }
