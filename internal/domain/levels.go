package domain

import (
	"fmt"
	"strings"
)

// SkillLevel is a tier label, either declared by the applicant or measured by scoring.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelPro          SkillLevel = "Pro"
	LevelMaster       SkillLevel = "Master"
)

// levelRanks orders every known label. Rank 0 means unknown.
var levelRanks = map[SkillLevel]int{
	LevelBeginner:     1,
	LevelIntermediate: 2,
	LevelPro:          3,
	LevelMaster:       4,
}

// Levels returns all known levels from lowest to highest.
func Levels() []SkillLevel {
	return []SkillLevel{LevelBeginner, LevelIntermediate, LevelPro, LevelMaster}
}

// Rank returns the level's position in the total tier order, or 0 if the label is unknown.
func (l SkillLevel) Rank() int {
	return levelRanks[l]
}

// Valid reports whether the level has a rank.
func (l SkillLevel) Valid() bool {
	return l.Rank() > 0
}

// ParseSkillLevel accepts any casing of a known label.
func ParseSkillLevel(raw string) (SkillLevel, error) {
	trimmed := strings.TrimSpace(raw)
	for _, l := range Levels() {
		if strings.EqualFold(trimmed, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown skill level %q", ErrValidation, raw)
}

// Verdict compares the self-declared level with the measured one.
type Verdict string

const (
	VerdictAccurate       Verdict = "Accurate"
	VerdictOverestimated  Verdict = "Overestimated"
	VerdictUnderestimated Verdict = "Underestimated"
)

// CompareLevels returns the verdict for a declared level against a measured level.
func CompareLevels(declared, measured SkillLevel) Verdict {
	switch d, m := declared.Rank(), measured.Rank(); {
	case d > m:
		return VerdictOverestimated
	case d < m:
		return VerdictUnderestimated
	default:
		return VerdictAccurate
	}
}

// Describe renders the verdict as the sentence shown to reviewers.
func (v Verdict) Describe(declared, measured SkillLevel) string {
	switch v {
	case VerdictOverestimated, VerdictUnderestimated:
		return fmt.Sprintf("Applicant rated themselves %s but performed at %s level.", declared, measured)
	default:
		return fmt.Sprintf("Self-evaluation of %s matches measured performance.", declared)
	}
}
