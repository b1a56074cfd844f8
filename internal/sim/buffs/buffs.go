// Package buffs tracks the timed, stacking and single-use modifiers attached
// to a craft. A Registry is a plain comparable value; every operation returns
// a new Registry and leaves the receiver untouched.
package buffs

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	InnerQuiet Kind = iota
	GreatStrides
	Innovation
	Veneration
	MuscleMemory
	FinalAppraisal
	WasteNot
	Manipulation
	HeartAndSoul
	TrainedPerfection
	BasicTouchCombo
	StandardTouchCombo
	ObserveCombo
	HastyTouchCombo

	NumKinds
)

// Class decides how a kind is applied and ticked.
type Class uint8

const (
	// Timed kinds last a fixed number of steps and tick on time-passing steps.
	Timed Class = iota + 1
	// Stacking kinds count stacks up to a cap and never expire.
	Stacking
	// Charge kinds hold a single use until something consumes it.
	Charge
	// Combo kinds mark the previous action for exactly one following step,
	// and decay even on steps that do not pass time.
	Combo
)

const MaxInnerQuiet = 10

type Rule struct {
	Name        string
	Class       Class
	Duration    uint8
	MaxStacks   uint8
	ProgressPct int
	QualityPct  int
}

var rules = [NumKinds]Rule{
	InnerQuiet:         {Name: "INNER_QUIET", Class: Stacking, MaxStacks: MaxInnerQuiet},
	GreatStrides:       {Name: "GREAT_STRIDES", Class: Timed, Duration: 3, QualityPct: 100},
	Innovation:         {Name: "INNOVATION", Class: Timed, Duration: 4, QualityPct: 50},
	Veneration:         {Name: "VENERATION", Class: Timed, Duration: 4, ProgressPct: 50},
	MuscleMemory:       {Name: "MUSCLE_MEMORY", Class: Timed, Duration: 5, ProgressPct: 100},
	FinalAppraisal:     {Name: "FINAL_APPRAISAL", Class: Timed, Duration: 5},
	WasteNot:           {Name: "WASTE_NOT", Class: Timed, Duration: 4},
	Manipulation:       {Name: "MANIPULATION", Class: Timed, Duration: 8},
	HeartAndSoul:       {Name: "HEART_AND_SOUL", Class: Charge, MaxStacks: 1},
	TrainedPerfection:  {Name: "TRAINED_PERFECTION", Class: Charge, MaxStacks: 1},
	BasicTouchCombo:    {Name: "BASIC_TOUCH_COMBO", Class: Combo, Duration: 1},
	StandardTouchCombo: {Name: "STANDARD_TOUCH_COMBO", Class: Combo, Duration: 1},
	ObserveCombo:       {Name: "OBSERVE_COMBO", Class: Combo, Duration: 1},
	HastyTouchCombo:    {Name: "HASTY_TOUCH_COMBO", Class: Combo, Duration: 1},
}

func (k Kind) Rule() Rule {
	if k < NumKinds {
		return rules[k]
	}
	return Rule{}
}

func (k Kind) String() string {
	if k < NumKinds {
		return rules[k].Name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Set is a bit set of kinds.
type Set uint16

func Of(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

func (s Set) With(k Kind) Set { return s | 1<<k }
func (s Set) Has(k Kind) bool { return s&(1<<k) != 0 }
func (s Set) Empty() bool     { return s == 0 }
func (s Set) Union(o Set) Set { return s | o }

// Kinds lists the members in kind order.
func (s Set) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < NumKinds; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Entry is the state of one kind. Timed and combo kinds use Remaining,
// stacking and charge kinds use Stacks. The zero Entry is inactive.
type Entry struct {
	Remaining uint8
	Stacks    uint8
}

func (e Entry) Active() bool { return e.Remaining > 0 || e.Stacks > 0 }

type Registry struct {
	entries [NumKinds]Entry
}

func (r Registry) Entry(k Kind) Entry {
	if k >= NumKinds {
		return Entry{}
	}
	return r.entries[k]
}

func (r Registry) Active(k Kind) bool   { return r.Entry(k).Active() }
func (r Registry) Stacks(k Kind) int    { return int(r.Entry(k).Stacks) }
func (r Registry) Remaining(k Kind) int { return int(r.Entry(k).Remaining) }

// WithEntry overwrites the entry of k, clamping stacks to the kind's cap.
// It exists for restoring persisted states.
func (r Registry) WithEntry(k Kind, e Entry) Registry {
	if k >= NumKinds {
		return r
	}
	if limit := rules[k].MaxStacks; e.Stacks > limit {
		e.Stacks = limit
	}
	r.entries[k] = e
	return r
}

// ActiveSet returns the kinds currently active.
func (r Registry) ActiveSet() Set {
	var s Set
	for k := Kind(0); k < NumKinds; k++ {
		if r.entries[k].Active() {
			s = s.With(k)
		}
	}
	return s
}

// Apply activates k. Timed kinds are refreshed to their duration plus bonus
// (re-applying never stacks duration), stacking kinds gain one stack up to
// their cap, charge kinds are set, and combo kinds arm for the next step.
func (r Registry) Apply(k Kind, bonus uint8) Registry {
	if k >= NumKinds {
		return r
	}
	rule := rules[k]
	switch rule.Class {
	case Timed:
		return r.ApplyFor(k, rule.Duration+bonus)
	case Combo:
		return r.ApplyFor(k, rule.Duration)
	case Stacking:
		return r.Add(k, 1)
	case Charge:
		r.entries[k] = Entry{Stacks: 1}
	}
	return r
}

// ApplyFor activates a timed or combo kind for an explicit number of steps.
func (r Registry) ApplyFor(k Kind, steps uint8) Registry {
	if k >= NumKinds {
		return r
	}
	switch rules[k].Class {
	case Timed, Combo:
		r.entries[k] = Entry{Remaining: steps}
	default:
		return r.Apply(k, 0)
	}
	return r
}

// Add adds n stacks to a stacking kind, saturating at the cap.
func (r Registry) Add(k Kind, n int) Registry {
	if k >= NumKinds || n <= 0 {
		return r
	}
	rule := rules[k]
	if rule.Class != Stacking && rule.Class != Charge {
		return r
	}
	v := int(r.entries[k].Stacks) + n
	if v > int(rule.MaxStacks) {
		v = int(rule.MaxStacks)
	}
	r.entries[k].Stacks = uint8(v)
	return r
}

// Consume clears k and returns what it held: stacks for stacking and charge
// kinds, remaining steps for timed and combo kinds.
func (r Registry) Consume(k Kind) (int, Registry) {
	if k >= NumKinds {
		return 0, r
	}
	e := r.entries[k]
	r.entries[k] = Entry{}
	switch rules[k].Class {
	case Timed, Combo:
		return int(e.Remaining), r
	default:
		return int(e.Stacks), r
	}
}

// Tick advances time by one step: every timed and combo kind not in skip
// loses one step and is removed at zero. Stacking and charge kinds are
// exempt. skip holds the kinds applied during the step being resolved.
func (r Registry) Tick(skip Set) Registry {
	return r.tick(skip, true)
}

// TickCombos decays only the combo markers, for steps that do not pass time.
func (r Registry) TickCombos(skip Set) Registry {
	return r.tick(skip, false)
}

func (r Registry) tick(skip Set, timed bool) Registry {
	for k := Kind(0); k < NumKinds; k++ {
		c := rules[k].Class
		if c != Combo && !(timed && c == Timed) {
			continue
		}
		if skip.Has(k) || r.entries[k].Remaining == 0 {
			continue
		}
		r.entries[k].Remaining--
	}
	return r
}

// Bonus is the set of percentage modifiers active for one kind of gain,
// listed in kind order.
type Bonus struct {
	Pcts [4]int
	N    int
}

func (b Bonus) Sum() int {
	s := 0
	for i := 0; i < b.N; i++ {
		s += b.Pcts[i]
	}
	return s
}

func (r Registry) ProgressBonus() Bonus {
	var b Bonus
	for k := Kind(0); k < NumKinds; k++ {
		if p := rules[k].ProgressPct; p != 0 && r.entries[k].Active() && b.N < len(b.Pcts) {
			b.Pcts[b.N] = p
			b.N++
		}
	}
	return b
}

func (r Registry) QualityBonus() Bonus {
	var b Bonus
	for k := Kind(0); k < NumKinds; k++ {
		if p := rules[k].QualityPct; p != 0 && r.entries[k].Active() && b.N < len(b.Pcts) {
			b.Pcts[b.N] = p
			b.N++
		}
	}
	return b
}

// DurabilityCostPct is the share of durability cost still charged.
func (r Registry) DurabilityCostPct() int {
	if r.Active(WasteNot) {
		return 50
	}
	return 100
}

func (r Registry) String() string {
	var parts []string
	for k := Kind(0); k < NumKinds; k++ {
		e := r.entries[k]
		if !e.Active() {
			continue
		}
		switch rules[k].Class {
		case Stacking, Charge:
			parts = append(parts, fmt.Sprintf("%s x%d", k, e.Stacks))
		default:
			parts = append(parts, fmt.Sprintf("%s %d", k, e.Remaining))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
