package delivery

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"applicant-assessment-service/internal/domain"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one rendered notification.
type Message struct {
	To          string
	Role        Role
	RecordID    string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Branding is the fixed wording used in messages and certificates.
type Branding struct {
	Organization string
	TestTitle    string
}

func DefaultBranding() Branding {
	return Branding{Organization: "Generator Source", TestTitle: "Generator Technician Knowledge Test"}
}

const textBody = `{{if .Applicant}}Dear {{.R.Applicant.Name}},

Thank you for completing the {{.Title}}. Here are your results.
{{else}}Test results for applicant from {{.R.Branch}}:
{{end}}
Applicant:         {{.R.Applicant.Name}}
Branch:            {{.R.Branch}}
Test date:         {{.Date}}
Score:             {{.R.AdjustedScore}} out of {{.R.TotalQuestions}} ({{.R.Percentage}}%)
Lifelines used:    {{.R.HintsConsumed}}
Self-evaluation:   {{.R.SelfDeclaredLevel}}
Performance level: {{.R.MeasuredLevel}}
Result:            {{if .R.Passed}}PASS{{else}}NOT PASSED{{end}}

Assessment: {{.Assessment}}
{{if not .Applicant}}
Question breakdown:
{{range $i, $e := .R.Breakdown}}{{inc $i}}. [{{if $e.IsCorrect}}correct{{else if $e.Answered}}wrong{{else}}skipped{{end}}] {{$e.QuestionText}}
   answer: {{$e.ChosenLabel}} | correct: {{$e.CorrectLabel}}
{{end}}{{end}}
{{if .Applicant}}If you have any questions about your results, please contact the hiring team.
{{end}}
{{.Org}}
Contact: {{.R.Applicant.Email}} | Phone: {{.R.Applicant.Phone}}
`

const htmlBody = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>{{.Title}}</h1>
<p>Official Test Results</p>
{{if .Applicant}}<p>Dear {{.R.Applicant.Name}},</p><p>Thank you for completing the {{.Title}}. Here are your results:</p>
{{else}}<p>Test results for applicant from {{.R.Branch}}:</p>{{end}}
<p style="font-size: 48px; font-weight: bold;">{{.R.Percentage}}%</p>
<table>
<tr><td>Applicant Name:</td><td>{{.R.Applicant.Name}}</td></tr>
<tr><td>Branch:</td><td>{{.R.Branch}}</td></tr>
<tr><td>Test Date:</td><td>{{.Date}}</td></tr>
<tr><td>Score:</td><td>{{.R.AdjustedScore}} out of {{.R.TotalQuestions}} ({{.R.Percentage}}%)</td></tr>
<tr><td>Self-Evaluation:</td><td>{{.R.SelfDeclaredLevel}}</td></tr>
<tr><td>Performance Level:</td><td>{{.R.MeasuredLevel}}</td></tr>
</table>
<h3>Assessment</h3>
<p>{{.Assessment}}</p>
{{if .Applicant}}<p>If you have any questions about your results, please contact the hiring team.</p>{{end}}
<p><strong>{{.Org}}</strong><br>Contact: {{.R.Applicant.Email}} | Phone: {{.R.Applicant.Phone}}</p>
</body></html>
`

var funcs = map[string]any{"inc": func(i int) int { return i + 1 }}

var (
	textTmpl = template.Must(template.New("text").Funcs(funcs).Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// Renderer turns a stored result into per-recipient messages.
type Renderer struct {
	branding Branding
}

func NewRenderer(b Branding) *Renderer {
	return &Renderer{branding: b}
}

// Render builds the message for one recipient. Applicants get personal wording
// and no per-question breakdown; staff get the breakdown. cert is attached when non-nil.
func (r *Renderer) Render(record domain.StoredResult, to Recipient, cert *domain.Certificate) (Message, error) {
	res := record.Result
	applicant := to.Role == RoleApplicant

	subject := fmt.Sprintf("Test Results: %s - %s - %d%%", res.Applicant.Name, res.Branch, res.Percentage)
	if applicant {
		subject = fmt.Sprintf("Your %s Results - %d%%", r.branding.TestTitle, res.Percentage)
	}

	data := map[string]any{
		"R":          res,
		"Applicant":  applicant,
		"Title":      r.branding.TestTitle,
		"Org":        r.branding.Organization,
		"Date":       res.Timestamp.Format("January 2, 2006"),
		"Assessment": res.Verdict.Describe(res.SelfDeclaredLevel, res.MeasuredLevel),
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	msg := Message{
		To:       to.Address,
		Role:     to.Role,
		RecordID: record.RecordID,
		Subject:  subject,
		Text:     text.String(),
		HTML:     html.String(),
	}
	if cert != nil {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    cert.Filename,
			ContentType: cert.ContentType,
			Data:        cert.Body,
		})
	}
	return msg, nil
}
