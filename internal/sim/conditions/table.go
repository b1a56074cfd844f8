package conditions

import (
	"errors"
	"fmt"
	"strings"

	"craftsim.ai/internal/sim/rng"
)

type Mode uint8

const (
	ModeNormal Mode = iota
	// ModeNormalQA is the normal table with the raised Good rate that
	// high-quality-aware recipes roll with.
	ModeNormalQA
	ModeExpert1
	ModeExpert2

	numModes
)

var modeNames = [numModes]string{
	ModeNormal:   "normal",
	ModeNormalQA: "normal_qa",
	ModeExpert1:  "expert1",
	ModeExpert2:  "expert2",
}

func (m Mode) String() string {
	if m < numModes {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) Expert() bool { return m == ModeExpert1 || m == ModeExpert2 }

var ErrUnknownMode = errors.New("unknown crafting mode")

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeNormal, nil
	}
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return ModeNormal, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Outcome is one weighted branch of a transition row. Weights are percent.
type Outcome struct {
	Condition Condition
	Weight    int
}

// Row is the distribution of the condition that follows a given one. Draws
// that fall past every outcome land on Rest. A row without outcomes is
// deterministic and consumes no randomness.
type Row struct {
	Outcomes []Outcome
	Rest     Condition
}

// Table is the first-order Markov chain of conditions for one mode. Tables
// are built once and never mutated, so they may be shared freely.
type Table struct {
	mode    Mode
	rows    [NumConditions]Row
	allowed [NumConditions]bool
}

func (t *Table) Mode() Mode { return t.mode }

// Initial is the condition of the first step.
func (t *Table) Initial() Condition { return Normal }

func (t *Table) Row(cur Condition) Row {
	if cur >= NumConditions {
		return t.rows[Normal]
	}
	return t.rows[cur]
}

func (t *Table) Allows(c Condition) bool {
	return c < NumConditions && t.allowed[c]
}

// Next draws the condition that follows cur.
func (t *Table) Next(cur Condition, src rng.Source) Condition {
	row := t.Row(cur)
	if len(row.Outcomes) == 0 {
		return row.Rest
	}
	r := src.Intn(100)
	for _, o := range row.Outcomes {
		if r < o.Weight {
			return o.Condition
		}
		r -= o.Weight
	}
	return row.Rest
}

var tables = [numModes]*Table{
	ModeNormal:   normalTable(ModeNormal, 20, 4),
	ModeNormalQA: normalTable(ModeNormalQA, 25, 4),
	ModeExpert1: expertTable(ModeExpert1, []Outcome{
		{Good, 12}, {Centered, 15}, {Pliant, 12}, {Sturdy, 15},
	}),
	ModeExpert2: expertTable(ModeExpert2, []Outcome{
		{Good, 12}, {Pliant, 12}, {Sturdy, 15}, {Malleable, 12}, {Primed, 12},
	}),
}

// ForMode returns the shared table of a mode.
func ForMode(m Mode) (*Table, error) {
	if m >= numModes {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	return tables[m], nil
}

// Normal recipes only roll from Normal. Good and Poor always fall back to
// Normal and Excellent is always followed by Poor.
func normalTable(m Mode, good, excellent int) *Table {
	t := &Table{mode: m}
	for c := range t.rows {
		t.rows[c] = Row{Rest: Normal}
	}
	t.rows[Normal] = Row{
		Outcomes: []Outcome{{Good, good}, {Excellent, excellent}},
		Rest:     Normal,
	}
	t.rows[Excellent] = Row{Rest: Poor}
	for _, c := range []Condition{Normal, Good, Excellent, Poor} {
		t.allowed[c] = true
	}
	return t
}

// Expert recipes draw from the same distribution whatever the current
// condition is.
func expertTable(m Mode, outcomes []Outcome) *Table {
	t := &Table{mode: m}
	row := Row{Outcomes: outcomes, Rest: Normal}
	for c := range t.rows {
		t.rows[c] = row
	}
	t.allowed[Normal] = true
	for _, o := range outcomes {
		t.allowed[o.Condition] = true
	}
	return t
}
