package scoring

import (
	"fmt"

	"applicant-assessment-service/internal/domain"
)

// Rung awards Level to every percentage at or above Min.
type Rung struct {
	Min   int               `yaml:"min" json:"min"`
	Level domain.SkillLevel `yaml:"level" json:"level"`
}

// Ladder is evaluated from its first rung to its last. A valid ladder has strictly
// descending minimums and ends with a rung at 0, so every percentage in [0,100]
// maps to exactly one level.
type Ladder []Rung

// DefaultLadder is the canonical four-tier ladder.
func DefaultLadder() Ladder {
	return Ladder{
		{Min: 90, Level: domain.LevelMaster},
		{Min: 75, Level: domain.LevelPro},
		{Min: 60, Level: domain.LevelIntermediate},
		{Min: 0, Level: domain.LevelBeginner},
	}
}

// Validate rejects ladders with gaps, overlaps or unranked labels.
func (l Ladder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("ladder has no rungs")
	}
	seen := make(map[domain.SkillLevel]bool, len(l))
	for i, r := range l {
		if r.Min < 0 || r.Min > 100 {
			return fmt.Errorf("rung %d: minimum %d outside [0,100]", i, r.Min)
		}
		if !r.Level.Valid() {
			return fmt.Errorf("rung %d: unknown level %q", i, r.Level)
		}
		if seen[r.Level] {
			return fmt.Errorf("rung %d: level %q appears twice", i, r.Level)
		}
		seen[r.Level] = true
		if i > 0 && r.Min >= l[i-1].Min {
			return fmt.Errorf("rung %d: minimum %d not below previous %d", i, r.Min, l[i-1].Min)
		}
		if i > 0 && r.Level.Rank() >= l[i-1].Level.Rank() {
			return fmt.Errorf("rung %d: level %q does not rank below %q", i, r.Level, l[i-1].Level)
		}
	}
	if last := l[len(l)-1]; last.Min != 0 {
		return fmt.Errorf("last rung must start at 0, got %d", last.Min)
	}
	return nil
}

// Classify returns the level for a percentage. Values outside [0,100] are clamped.
func (l Ladder) Classify(percentage int) domain.SkillLevel {
	percentage = clamp(percentage, 0, 100)
	for _, r := range l {
		if percentage >= r.Min {
			return r.Level
		}
	}
	// unreachable for a validated ladder
	return l[len(l)-1].Level
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
