package delivery

import (
	"strings"
	"unicode"

	"applicant-assessment-service/internal/domain"
)

// Role decides the wording of a notification.
type Role string

const (
	RoleManager   Role = "manager"
	RoleOversight Role = "oversight"
	RoleApplicant Role = "applicant"
)

// Recipient is one address in a notification fan-out.
type Recipient struct {
	Address string
	Role    Role
}

// Router maps branches to their manager and always copies the oversight address.
type Router struct {
	managers        map[string]string
	oversight       string
	notifyApplicant bool
}

// NewRouter builds a router. Branch names match regardless of case, spacing and punctuation.
func NewRouter(managers map[string]string, oversight string, notifyApplicant bool) *Router {
	m := make(map[string]string, len(managers))
	for branch, addr := range managers {
		m[branchKey(branch)] = strings.TrimSpace(addr)
	}
	return &Router{managers: m, oversight: strings.TrimSpace(oversight), notifyApplicant: notifyApplicant}
}

// Manager returns the manager address for a branch.
func (r *Router) Manager(branch string) (string, bool) {
	addr, ok := r.managers[branchKey(branch)]
	return addr, ok && addr != ""
}

// Recipients returns the deduplicated fan-out for a result: manager, oversight,
// then applicant. The first occurrence of an address decides its role.
func (r *Router) Recipients(result domain.Result) []Recipient {
	var out []Recipient
	seen := make(map[string]bool, 3)
	add := func(addr string, role Role) {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Recipient{Address: strings.TrimSpace(addr), Role: role})
	}

	if manager, ok := r.Manager(result.Branch); ok {
		add(manager, RoleManager)
	}
	add(r.oversight, RoleOversight)
	if r.notifyApplicant {
		add(result.Applicant.Email, RoleApplicant)
	}
	return out
}

func branchKey(branch string) string {
	var b strings.Builder
	for _, field := range strings.FieldsFunc(strings.ToLower(branch), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(field)
	}
	return b.String()
}
