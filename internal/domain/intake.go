package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Intake field names used by IntakeProfile.
const (
	FieldName   = "name"
	FieldEmail  = "email"
	FieldPhone  = "phone"
	FieldBranch = "branch"
	FieldLevel  = "level"
)

// IntakeProfile lists the intake fields that must be bound before a session may start.
// The applicant name and the self-declared level are always required.
type IntakeProfile struct {
	required map[string]bool
}

// DefaultIntakeProfile requires every intake field.
func DefaultIntakeProfile() IntakeProfile {
	p, _ := NewIntakeProfile([]string{FieldName, FieldEmail, FieldPhone, FieldBranch, FieldLevel})
	return p
}

// NewIntakeProfile builds a profile from field names. Unknown names are rejected.
func NewIntakeProfile(fields []string) (IntakeProfile, error) {
	p := IntakeProfile{required: map[string]bool{FieldName: true, FieldLevel: true}}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FieldName, FieldEmail, FieldPhone, FieldBranch, FieldLevel:
			p.required[f] = true
		default:
			return IntakeProfile{}, fmt.Errorf("%w: unknown intake field %q", ErrValidation, f)
		}
	}
	return p, nil
}

// Requires reports whether field is mandatory.
func (p IntakeProfile) Requires(field string) bool {
	if p.required == nil {
		return field == FieldName || field == FieldLevel
	}
	return p.required[field]
}

// Missing returns the mandatory fields that are unbound, in canonical order.
func (p IntakeProfile) Missing(in Intake) []string {
	bound := map[string]bool{
		FieldName:   strings.TrimSpace(in.Applicant.Name) != "",
		FieldEmail:  strings.TrimSpace(in.Applicant.Email) != "",
		FieldPhone:  strings.TrimSpace(in.Applicant.Phone) != "",
		FieldBranch: strings.TrimSpace(in.Branch) != "",
		FieldLevel:  in.SelfDeclared.Valid(),
	}
	var missing []string
	for _, f := range []string{FieldName, FieldEmail, FieldPhone, FieldBranch, FieldLevel} {
		if p.Requires(f) && !bound[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate rejects malformed values in the bound fields. Unbound fields are
// reported by Missing, not here.
func (p IntakeProfile) Validate(in Intake) error {
	if email := strings.TrimSpace(in.Applicant.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid email %q", ErrValidation, email)
		}
	}
	return nil
}
