package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Sentinel {{.EventLabel}}]
Alert: #{{.AlertID}}
Threat: #{{.ThreatID}} ({{.ThreatType}})
Severity: {{.Severity}}
Message: {{.Message}}
Location: {{.Location}}
Created: {{.CreatedAt}}
Status: {{.AlertStatus}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	AlertID     uint64
	ThreatID    uint64
	ThreatType  string
	Severity    int
	Message     string
	Location    string
	CreatedAt   string
	AlertStatus string
	Suggestion  string
	Event       string
	EventLabel  string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alert-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
