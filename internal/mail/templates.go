package mail

import (
	"bytes"
	"fmt"
	"text/template"
)

// TemplateCode identifies a workflow email.
type TemplateCode string

const (
	TemplateShortlist       TemplateCode = "001"
	TemplateDocumentRequest TemplateCode = "002"
	TemplateOffer           TemplateCode = "003"
)

func ParseTemplateCode(value string) (TemplateCode, bool) {
	switch TemplateCode(value) {
	case TemplateShortlist, TemplateDocumentRequest, TemplateOffer:
		return TemplateCode(value), true
	default:
		return "", false
	}
}

// Data is the union of fields referenced by the templates.
type Data struct {
	CandidateName string
	JobTitle      string
	Company       string
	Note          string
	AcceptURL     string
	DeclineURL    string
	UploadURL     string
	OfferURL      string
	LetterURL     string
	LoginEmail    string
	Password      string
}

type textTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) textTemplate {
	return textTemplate{
		subject: template.Must(template.New(name + "-subject").Parse(subject)),
		body:    template.Must(template.New(name + "-body").Parse(body)),
	}
}

var workflowTemplates = map[TemplateCode]textTemplate{
	TemplateShortlist: mustTemplate("shortlist",
		`You have been shortlisted for {{.JobTitle}}`,
		`Dear {{.CandidateName}},

Thank you for applying for the {{.JobTitle}} position at {{.Company}}. We are happy to let you know that you have been shortlisted.
{{if .Note}}
{{.Note}}
{{end}}
Please confirm whether you would like to continue with the process:

Accept: {{.AcceptURL}}
Decline: {{.DeclineURL}}

Kind regards,
{{.Company}} Hiring Team
`),
	TemplateDocumentRequest: mustTemplate("documents",
		`Documents required for your {{.JobTitle}} application`,
		`Dear {{.CandidateName}},

Thank you for confirming your interest in the {{.JobTitle}} position. To move forward we need a few documents from you (for example identification, certificates or references).
{{if .Note}}
{{.Note}}
{{end}}
Please upload them here (up to 5 files, 10 MB each):
{{.UploadURL}}

Kind regards,
{{.Company}} Hiring Team
`),
	TemplateOffer: mustTemplate("offer",
		`Your offer for {{.JobTitle}} at {{.Company}}`,
		`Dear {{.CandidateName}},

We are delighted to offer you the {{.JobTitle}} position at {{.Company}}. Your offer letter is attached and can also be viewed online:
{{.LetterURL}}
{{if .Note}}
{{.Note}}
{{end}}
Review your offer: {{.OfferURL}}
Accept: {{.AcceptURL}}
Decline: {{.DeclineURL}}

An account has been prepared for you:
Login: {{.LoginEmail}}
Password: {{.Password}}

Kind regards,
{{.Company}} Hiring Team
`),
}

var credentialsTemplate = mustTemplate("credentials",
	`Welcome to {{.Company}}`,
	`Dear {{.CandidateName}},

Thank you for accepting our offer for the {{.JobTitle}} position. Your account is ready:

Login: {{.LoginEmail}}
Password: {{.Password}}

Kind regards,
{{.Company}} Hiring Team
`)

// Render returns subject and plain-text body for a workflow template.
func Render(code TemplateCode, data Data) (string, string, error) {
	tpl, ok := workflowTemplates[code]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", code)
	}
	return tpl.render(data)
}

func RenderCredentials(data Data) (string, string, error) {
	return credentialsTemplate.render(data)
}

func (t textTemplate) render(data Data) (string, string, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
