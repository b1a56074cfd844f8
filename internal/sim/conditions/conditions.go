// Package conditions holds the per-step crafting conditions, their modifiers
// and the per-mode transition tables used to draw the next one.
package conditions

import (
	"errors"
	"fmt"
	"strings"
)

type Condition uint8

const (
	Normal Condition = iota
	Good
	Excellent
	Poor
	Centered
	Pliant
	Sturdy
	Malleable
	Primed

	NumConditions
)

var conditionNames = [NumConditions]string{
	Normal:    "NORMAL",
	Good:      "GOOD",
	Excellent: "EXCELLENT",
	Poor:      "POOR",
	Centered:  "CENTERED",
	Pliant:    "PLIANT",
	Sturdy:    "STURDY",
	Malleable: "MALLEABLE",
	Primed:    "PRIMED",
}

func (c Condition) String() string {
	if c < NumConditions {
		return conditionNames[c]
	}
	return fmt.Sprintf("Condition(%d)", uint8(c))
}

var ErrUnknownCondition = errors.New("unknown condition")

func Parse(s string) (Condition, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for c, name := range conditionNames {
		if name == s {
			return Condition(c), nil
		}
	}
	return Normal, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
}

// Modifiers are the effects a condition has on the step it is active for.
// Percentages are integers where 100 means unchanged.
type Modifiers struct {
	QualityPct    int
	ProgressPct   int
	SuccessBonus  int // percentage points added to the success rate
	DurabilityPct int
	CPPct         int
	DurationBonus uint8 // extra steps on buffs applied this step
}

var neutral = Modifiers{QualityPct: 100, ProgressPct: 100, DurabilityPct: 100, CPPct: 100}

var modifiers = func() [NumConditions]Modifiers {
	var m [NumConditions]Modifiers
	for i := range m {
		m[i] = neutral
	}
	m[Poor].QualityPct = 50
	m[Good].QualityPct = 150
	m[Excellent].QualityPct = 400
	m[Centered].SuccessBonus = 25
	m[Pliant].CPPct = 50
	m[Sturdy].DurabilityPct = 50
	m[Malleable].ProgressPct = 150
	m[Primed].DurationBonus = 2
	return m
}()

func (c Condition) Modifiers() Modifiers {
	if c < NumConditions {
		return modifiers[c]
	}
	return neutral
}

// Boosted reports whether the condition unlocks the actions gated on a good
// roll (Intensive Synthesis, Precise Touch, Tricks of the Trade).
func (c Condition) Boosted() bool {
	return c == Good || c == Excellent
}
