package delivery

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	hashids "github.com/speps/go-hashids"

	"applicant-assessment-service/internal/domain"
)

const certificateText = `CERTIFICATE OF COMPLETION
{{.Title}}

This certifies that {{.Result.Applicant.Name}}
{{- if .Result.Branch}} of the {{.Result.Branch}} branch{{end}}
successfully completed the assessment on {{.Date}}
with a score of {{.Result.Percentage}}% ({{.Result.MeasuredLevel}} level).

{{.Organization}}
Serial: {{.Serial}}
{{- if .RecordID}}
Record: {{.RecordID}}
{{- end}}
`

var certificateTmpl = template.Must(template.New("certificate").Parse(certificateText))

// CertificateIssuer renders the plain-text completion certificate. Serials are
// short hashids derived from the result timestamp and score, so the same result
// always yields the same serial.
type CertificateIssuer struct {
	hasher       *hashids.HashID
	title        string
	organization string
}

func NewCertificateIssuer(salt, title, organization string) (*CertificateIssuer, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("certificate serials: %w", err)
	}
	return &CertificateIssuer{hasher: h, title: title, organization: organization}, nil
}

// Serial encodes the result timestamp and percentage.
func (c *CertificateIssuer) Serial(result domain.Result) (string, error) {
	ts := result.Timestamp.Unix()
	if ts < 0 {
		ts = 0
	}
	return c.hasher.EncodeInt64([]int64{ts, int64(result.Percentage)})
}

// Issue renders the certificate for a passing result.
func (c *CertificateIssuer) Issue(result domain.Result, recordID string) (domain.Certificate, error) {
	if !result.Passed {
		return domain.Certificate{}, domain.ErrNotEligible
	}
	serial, err := c.Serial(result)
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("encode serial: %w", err)
	}

	var buf bytes.Buffer
	err = certificateTmpl.Execute(&buf, map[string]any{
		"Title":        c.title,
		"Organization": c.organization,
		"Result":       result,
		"Date":         result.Timestamp.Format("January 2, 2006"),
		"Serial":       serial,
		"RecordID":     recordID,
	})
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("render certificate: %w", err)
	}
	return domain.Certificate{
		Serial:      serial,
		Filename:    fmt.Sprintf("certificate-%s.txt", slug(result.Applicant.Name)),
		ContentType: "text/plain; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(fields) == 0 {
		return "applicant"
	}
	return strings.Join(fields, "-")
}
