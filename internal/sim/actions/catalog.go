// Package actions is the fixed catalog of crafting actions. Each action is a
// Descriptor carrying its costs and a pure effect function; the catalog is
// built once and shared read-only by every simulation.
package actions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/conditions"
)

// Context is the read-only view an effect function sees: the state before
// the step, with nothing from the step itself applied yet.
type Context struct {
	Step      int
	Condition conditions.Condition
	Buffs     buffs.Registry

	Specialist            bool
	Delineations          int
	HeartAndSoulUsed      bool
	TrainedPerfectionUsed bool

	// Outleveled is true when the character is at least ten levels above
	// the recipe.
	Outleveled bool
	Expert     bool
}

// Delta is what an action proposes. Costs are base values before condition
// and buff modifiers; efficiencies are percent of the base gain. Nothing in a
// Delta has been applied: the engine owns ordering and application.
type Delta struct {
	CP          int
	Durability  int
	SuccessRate int

	Progress    int
	Quality     int
	FillQuality bool

	RestoreCP         int
	RestoreDurability int
	RestoreFull       bool

	// InnerQuiet stacks gained on success.
	InnerQuiet        int
	ConsumeInnerQuiet bool

	// Grants are applied on success. GrantSteps overrides the default
	// duration of timed grants when non-zero.
	Grants     buffs.Set
	GrantSteps uint8

	// Consumes are cleared on success.
	Consumes buffs.Set

	UseDelineation       bool
	UseHeartAndSoul      bool
	UseTrainedPerfection bool

	// Err is set when a precondition fails; the action must be rejected.
	Err error
}

// Descriptor is the immutable definition of one action.
type Descriptor struct {
	ID          ID
	Name        string
	CP          int
	Durability  int
	SuccessRate int
	Progress    int
	Quality     int

	// PassesTime is false for actions that freeze buff timers.
	PassesTime bool

	Effect func(Context) Delta
}

func (d Descriptor) base() Delta {
	return Delta{
		CP:          d.CP,
		Durability:  d.Durability,
		SuccessRate: d.SuccessRate,
		Progress:    d.Progress,
		Quality:     d.Quality,
	}
}

var table = [NumActions]Descriptor{
	Veneration:         {Name: "Veneration", CP: 18, SuccessRate: 100, PassesTime: true},
	WasteNot:           {Name: "Waste Not", CP: 56, SuccessRate: 100, PassesTime: true},
	WasteNot2:          {Name: "Waste Not II", CP: 98, SuccessRate: 100, PassesTime: true},
	GreatStrides:       {Name: "Great Strides", CP: 32, SuccessRate: 100, PassesTime: true},
	Innovation:         {Name: "Innovation", CP: 18, SuccessRate: 100, PassesTime: true},
	FinalAppraisal:     {Name: "Final Appraisal", CP: 1, SuccessRate: 100},
	Manipulation:       {Name: "Manipulation", CP: 96, SuccessRate: 100, PassesTime: true},
	MastersMend:        {Name: "Master's Mend", CP: 88, SuccessRate: 100, PassesTime: true},
	ImmaculateMend:     {Name: "Immaculate Mend", CP: 112, SuccessRate: 100, PassesTime: true},
	Observe:            {Name: "Observe", CP: 7, SuccessRate: 100, PassesTime: true},
	TricksOfTheTrade:   {Name: "Tricks of the Trade", SuccessRate: 100, PassesTime: true},
	CarefulObservation: {Name: "Careful Observation", SuccessRate: 100},
	HeartAndSoul:       {Name: "Heart and Soul", SuccessRate: 100},
	TrainedPerfection:  {Name: "Trained Perfection", SuccessRate: 100, PassesTime: true},
	DelicateSynthesis:  {Name: "Delicate Synthesis", CP: 32, Durability: 10, SuccessRate: 100, Progress: 100, Quality: 100, PassesTime: true},

	BasicSynthesis:     {Name: "Basic Synthesis", Durability: 10, SuccessRate: 100, Progress: 120, PassesTime: true},
	RapidSynthesis:     {Name: "Rapid Synthesis", Durability: 10, SuccessRate: 50, Progress: 500, PassesTime: true},
	MuscleMemory:       {Name: "Muscle Memory", CP: 6, Durability: 10, SuccessRate: 100, Progress: 300, PassesTime: true},
	CarefulSynthesis:   {Name: "Careful Synthesis", CP: 7, Durability: 10, SuccessRate: 100, Progress: 180, PassesTime: true},
	FocusedSynthesis:   {Name: "Focused Synthesis", CP: 5, Durability: 10, SuccessRate: 50, Progress: 200, PassesTime: true},
	Groundwork:         {Name: "Groundwork", CP: 18, Durability: 20, SuccessRate: 100, Progress: 360, PassesTime: true},
	IntensiveSynthesis: {Name: "Intensive Synthesis", CP: 6, Durability: 10, SuccessRate: 100, Progress: 400, PassesTime: true},
	PrudentSynthesis:   {Name: "Prudent Synthesis", CP: 18, Durability: 5, SuccessRate: 100, Progress: 180, PassesTime: true},

	BasicTouch:       {Name: "Basic Touch", CP: 18, Durability: 10, SuccessRate: 100, Quality: 100, PassesTime: true},
	HastyTouch:       {Name: "Hasty Touch", Durability: 10, SuccessRate: 60, Quality: 100, PassesTime: true},
	StandardTouch:    {Name: "Standard Touch", CP: 32, Durability: 10, SuccessRate: 100, Quality: 125, PassesTime: true},
	AdvancedTouch:    {Name: "Advanced Touch", CP: 46, Durability: 10, SuccessRate: 100, Quality: 150, PassesTime: true},
	ByregotsBlessing: {Name: "Byregot's Blessing", CP: 24, Durability: 10, SuccessRate: 100, Quality: 100, PassesTime: true},
	PreciseTouch:     {Name: "Precise Touch", CP: 18, Durability: 10, SuccessRate: 100, Quality: 150, PassesTime: true},
	PrudentTouch:     {Name: "Prudent Touch", CP: 25, Durability: 5, SuccessRate: 100, Quality: 100, PassesTime: true},
	FocusedTouch:     {Name: "Focused Touch", CP: 18, Durability: 10, SuccessRate: 50, Quality: 150, PassesTime: true},
	Reflect:          {Name: "Reflect", CP: 6, Durability: 10, SuccessRate: 100, Quality: 100, PassesTime: true},
	PreparatoryTouch: {Name: "Preparatory Touch", CP: 40, Durability: 20, SuccessRate: 100, Quality: 200, PassesTime: true},
	TrainedEye:       {Name: "Trained Eye", CP: 250, Durability: 10, SuccessRate: 100, PassesTime: true},
	TrainedFinesse:   {Name: "Trained Finesse", CP: 32, SuccessRate: 100, Quality: 100, PassesTime: true},
	DaringTouch:      {Name: "Daring Touch", Durability: 10, SuccessRate: 60, Quality: 150, PassesTime: true},
	RefinedTouch:     {Name: "Refined Touch", CP: 24, Durability: 10, SuccessRate: 100, Quality: 100, PassesTime: true},
}

// Catalog is the shared, read-only set of descriptors.
type Catalog struct {
	descs  [NumActions]Descriptor
	byName map[string]ID
	names  []string
}

var defaultCatalog = newCatalog()

// Default returns the process-wide catalog.
func Default() *Catalog { return defaultCatalog }

func newCatalog() *Catalog {
	c := &Catalog{byName: map[string]ID{}}
	for id := None + 1; id < NumActions; id++ {
		d := table[id]
		d.ID = id
		d.Effect = effectFor(d)
		c.descs[id] = d

		c.byName[normalizeName(wireNames[id])] = id
		c.byName[normalizeName(d.Name)] = id
		c.names = append(c.names, wireNames[id])
	}
	c.byName[normalizeName("waste_not_2")] = WasteNot2
	sort.Strings(c.names)
	return c
}

// Describe looks up the descriptor of id.
func (c *Catalog) Describe(id ID) (Descriptor, error) {
	if !id.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrInvalidAction, id)
	}
	return c.descs[id], nil
}

// Names lists the wire names of every action, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Parse maps a wire or display name to its ID. Case, spaces, dashes,
// underscores and apostrophes are ignored.
func (c *Catalog) Parse(name string) (ID, error) {
	if id, ok := c.byName[normalizeName(name)]; ok {
		return id, nil
	}
	return None, &UnknownNameError{Name: name, Suggestion: c.suggest(name)}
}

func (c *Catalog) suggest(name string) string {
	in := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	if in == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, cand := range c.names {
		dist := levenshtein.ComputeDistance(in, cand)
		if dist > levenshteinLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '\'', '’':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
