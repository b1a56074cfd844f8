// Package craft is the resolution engine: it validates an action against a
// State, resolves it and returns the next State. A Sim holds only immutable
// configuration and may be shared by any number of concurrent runs.
package craft

import (
	"fmt"

	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/conditions"
	"craftsim.ai/internal/sim/rng"
)

const manipulationRepair = 5

type Sim struct {
	cfg     Config
	catalog *actions.Catalog
	table   *conditions.Table

	baseProgress int
	baseQuality  int
	outleveled   bool
	expert       bool
}

func New(cfg Config) (*Sim, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	table, err := conditions.ForMode(cfg.Recipe.Mode)
	if err != nil {
		return nil, err
	}
	r, ch := cfg.Recipe, cfg.Character
	return &Sim{
		cfg:          cfg,
		catalog:      actions.Default(),
		table:        table,
		baseProgress: (ch.Craftsmanship*10/r.ProgressDivider + 2) * modifierOr100(r.ProgressModifier) / 100,
		baseQuality:  (ch.Control*10/r.QualityDivider + 35) * modifierOr100(r.QualityModifier) / 100,
		outleveled:   ch.Level >= r.Level+outlevelMargin,
		expert:       r.Mode.Expert(),
	}, nil
}

func (s *Sim) Config() Config              { return s.cfg }
func (s *Sim) Table() *conditions.Table    { return s.table }
func (s *Sim) Catalog() *actions.Catalog   { return s.catalog }
func (s *Sim) BaseProgress() int           { return s.baseProgress }
func (s *Sim) BaseQuality() int            { return s.baseQuality }
func (s *Sim) MaxProgress() int            { return s.cfg.Recipe.Progress }
func (s *Sim) MaxQuality() int             { return s.cfg.Recipe.Quality }
func (s *Sim) MaxDurability() int          { return s.cfg.Recipe.Durability }
func (s *Sim) MaxCP() int                  { return s.cfg.Character.CP }
func (s *Sim) HQChance(st State) int       { return HQChance(st.quality, s.cfg.Recipe.Quality) }
func (s *Sim) Collectability(st State) int { return Collectability(st.quality, s.cfg.Recipe.Quality) }

// NewState is the state before the first step.
func (s *Sim) NewState() State {
	st := State{
		durability: s.cfg.Recipe.Durability,
		cp:         s.cfg.Character.CP,
		condition:  s.table.Initial(),
	}
	if s.cfg.Character.Specialist {
		st.delineations = delineations
	}
	return st
}

// Restore rebuilds a State from its record, rejecting values the engine
// could never have produced for this configuration.
func (s *Sim) Restore(rec StateRecord) (State, error) {
	r := s.cfg.Recipe
	switch {
	case rec.Durability < 0 || rec.Durability > r.Durability:
		return State{}, fmt.Errorf("%w: durability %d", ErrBadRecord, rec.Durability)
	case rec.CP < 0 || rec.CP > s.cfg.Character.CP:
		return State{}, fmt.Errorf("%w: cp %d", ErrBadRecord, rec.CP)
	case rec.Progress < 0 || rec.Progress > r.Progress:
		return State{}, fmt.Errorf("%w: progress %d", ErrBadRecord, rec.Progress)
	case rec.Quality < 0 || rec.Quality > r.Quality:
		return State{}, fmt.Errorf("%w: quality %d", ErrBadRecord, rec.Quality)
	case rec.Step < 0 || rec.Delineations < 0:
		return State{}, fmt.Errorf("%w: negative counter", ErrBadRecord)
	case !s.table.Allows(conditions.Condition(rec.Condition)):
		return State{}, fmt.Errorf("%w: condition %s in mode %s", ErrBadRecord, conditions.Condition(rec.Condition), s.table.Mode())
	case rec.LastAction >= uint8(actions.NumActions):
		return State{}, fmt.Errorf("%w: last action %d", ErrBadRecord, rec.LastAction)
	case rec.Status > uint8(FailedNoProgress):
		return State{}, fmt.Errorf("%w: status %d", ErrBadRecord, rec.Status)
	}
	st := State{
		durability:            rec.Durability,
		cp:                    rec.CP,
		progress:              rec.Progress,
		quality:               rec.Quality,
		step:                  rec.Step,
		condition:             conditions.Condition(rec.Condition),
		last:                  actions.ID(rec.LastAction),
		status:                Status(rec.Status),
		delineations:          rec.Delineations,
		heartAndSoulUsed:      rec.HeartAndSoul,
		trainedPerfectionUsed: rec.Trained,
	}
	for _, b := range rec.Buffs {
		if b.Kind >= uint8(buffs.NumKinds) {
			return State{}, fmt.Errorf("%w: buff kind %d", ErrBadRecord, b.Kind)
		}
		st.buffs = st.buffs.WithEntry(buffs.Kind(b.Kind), buffs.Entry{Remaining: b.Remaining, Stacks: b.Stacks})
	}
	return st, nil
}

// plan is a validated action: everything Step needs that does not depend on
// the success roll.
type plan struct {
	desc    actions.Descriptor
	delta   actions.Delta
	mods    conditions.Modifiers
	cpCost  int
	durCost int
	rate    int

	// useTP marks that Trained Perfection absorbs this step's durability cost.
	useTP bool
}

func (s *Sim) context(st State) actions.Context {
	return actions.Context{
		Step:                  st.step,
		Condition:             st.condition,
		Buffs:                 st.buffs,
		Specialist:            s.cfg.Character.Specialist,
		Delineations:          st.delineations,
		HeartAndSoulUsed:      st.heartAndSoulUsed,
		TrainedPerfectionUsed: st.trainedPerfectionUsed,
		Outleveled:            s.outleveled,
		Expert:                s.expert,
	}
}

func (s *Sim) plan(st State, id actions.ID) (plan, error) {
	if st.status.Terminal() {
		return plan{}, fmt.Errorf("%w: %s", ErrInvalidStateTransition, st.status)
	}
	desc, err := s.catalog.Describe(id)
	if err != nil {
		return plan{}, illegal(id, err)
	}
	d := desc.Effect(s.context(st))
	if d.Err != nil {
		return plan{}, illegal(id, d.Err)
	}
	mods := st.condition.Modifiers()
	p := plan{
		desc:    desc,
		delta:   d,
		mods:    mods,
		cpCost:  ceilDiv(d.CP*mods.CPPct, 100),
		durCost: ceilDiv(d.Durability*st.buffs.DurabilityCostPct()*mods.DurabilityPct, 100*100),
		rate:    clampPct(d.SuccessRate + mods.SuccessBonus),
	}
	if p.durCost > 0 && st.buffs.Active(buffs.TrainedPerfection) {
		p.durCost = 0
		p.useTP = true
	}
	if p.cpCost > st.cp {
		return plan{}, illegal(id, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCP, p.cpCost, st.cp))
	}
	if p.durCost > st.durability {
		return plan{}, illegal(id, fmt.Errorf("%w: need %d, have %d", ErrInsufficientDurability, p.durCost, st.durability))
	}
	return p, nil
}

// Check reports whether id is a legal move in st without resolving it.
func (s *Sim) Check(st State, id actions.ID) error {
	_, err := s.plan(st, id)
	return err
}

// Legal lists the actions that pass Check, in ID order.
func (s *Sim) Legal(st State) []actions.ID {
	if st.status.Terminal() {
		return nil
	}
	var out []actions.ID
	for _, id := range actions.All() {
		if _, err := s.plan(st, id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Preview is what a legal action would do if it succeeded.
type Preview struct {
	CPCost       int
	DurCost      int
	SuccessRate  int
	ProgressGain int
	QualityGain  int
}

// Preview evaluates id against st without a random draw.
func (s *Sim) Preview(st State, id actions.ID) (Preview, error) {
	p, err := s.plan(st, id)
	if err != nil {
		return Preview{}, err
	}
	pg, qg := s.gains(st, p)
	return Preview{
		CPCost:       p.cpCost,
		DurCost:      p.durCost,
		SuccessRate:  p.rate,
		ProgressGain: pg,
		QualityGain:  qg,
	}, nil
}

// gains computes the raw progress and quality a successful p adds to st,
// before Final Appraisal and clamping. Buff reads use st, the state before
// the step, so an action never sees its own Inner Quiet stacks.
func (s *Sim) gains(st State, p plan) (progress, quality int) {
	d := p.delta
	if d.Progress > 0 {
		v := s.baseProgress * p.mods.ProgressPct / 100
		v = v * d.Progress / 100
		progress = s.withBonus(v, st.buffs.ProgressBonus())
	}
	if d.Quality > 0 {
		iq := st.buffs.Stacks(buffs.InnerQuiet)
		v := s.baseQuality * p.mods.QualityPct / 100
		eff := d.Quality * (100 + 10*iq) / 100
		v = v * eff / 100
		quality = s.withBonus(v, st.buffs.QualityBonus())
	}
	if d.FillQuality {
		quality = s.cfg.Recipe.Quality - st.quality
	}
	return progress, quality
}

func (s *Sim) withBonus(v int, b buffs.Bonus) int {
	if s.cfg.Stacking == StackingMultiplicative {
		for i := 0; i < b.N; i++ {
			v = v * (100 + b.Pcts[i]) / 100
		}
		return v
	}
	return v * (100 + b.Sum()) / 100
}

// Step resolves id against st. On error the returned state is st and src
// has not been drawn from.
func (s *Sim) Step(st State, id actions.ID, src rng.Source) (State, Outcome, error) {
	p, err := s.plan(st, id)
	if err != nil {
		return st, Outcome{}, err
	}
	d := p.delta
	r := s.cfg.Recipe
	next := st
	out := Outcome{CPCost: p.cpCost, DurCost: p.durCost}

	switch {
	case p.rate >= 100:
		out.Success = true
	case p.rate <= 0:
		out.Success = false
	default:
		out.Success = src.Intn(100) < p.rate
	}

	next.cp -= p.cpCost
	next.durability -= p.durCost
	if p.useTP {
		_, next.buffs = next.buffs.Consume(buffs.TrainedPerfection)
	}
	manipulating := st.buffs.Active(buffs.Manipulation)

	var fresh buffs.Set
	if out.Success {
		pg, qg := s.gains(st, p)
		if d.Progress > 0 {
			if next.buffs.Active(buffs.MuscleMemory) {
				_, next.buffs = next.buffs.Consume(buffs.MuscleMemory)
			}
			if next.buffs.Active(buffs.FinalAppraisal) && next.progress+pg >= r.Progress {
				pg = max(0, r.Progress-1-next.progress)
				_, next.buffs = next.buffs.Consume(buffs.FinalAppraisal)
			}
			next.progress += pg
			out.ProgressGain = pg
		}
		if d.Quality > 0 && next.buffs.Active(buffs.GreatStrides) {
			_, next.buffs = next.buffs.Consume(buffs.GreatStrides)
		}
		next.quality += qg
		out.QualityGain = qg

		if d.ConsumeInnerQuiet {
			out.Consumed, next.buffs = next.buffs.Consume(buffs.InnerQuiet)
		}
		next.buffs = next.buffs.Add(buffs.InnerQuiet, d.InnerQuiet)

		if d.RestoreCP > 0 {
			next.cp = min(next.cp+d.RestoreCP, s.cfg.Character.CP)
		}
		if d.RestoreDurability > 0 {
			next.durability = min(next.durability+d.RestoreDurability, r.Durability)
		}
		if d.RestoreFull {
			next.durability = r.Durability
		}

		for _, k := range d.Grants.Kinds() {
			rule := k.Rule()
			if rule.Class == buffs.Timed {
				steps := rule.Duration
				if d.GrantSteps != 0 {
					steps = d.GrantSteps
				}
				next.buffs = next.buffs.ApplyFor(k, steps+p.mods.DurationBonus)
			} else {
				next.buffs = next.buffs.Apply(k, 0)
			}
			fresh = fresh.With(k)
		}
		for _, k := range d.Consumes.Kinds() {
			_, next.buffs = next.buffs.Consume(k)
		}
		if d.UseDelineation {
			next.delineations--
		}
		if d.UseHeartAndSoul {
			next.heartAndSoulUsed = true
		}
		if d.UseTrainedPerfection {
			next.trainedPerfectionUsed = true
		}
	}

	if p.desc.PassesTime {
		next.buffs = next.buffs.Tick(fresh)
	} else {
		next.buffs = next.buffs.TickCombos(fresh)
	}

	if manipulating && !fresh.Has(buffs.Manipulation) && p.desc.PassesTime &&
		next.durability > 0 && next.progress < r.Progress {
		before := next.durability
		next.durability = min(next.durability+manipulationRepair, r.Durability)
		out.Repaired = next.durability - before
	}

	next.progress = min(next.progress, r.Progress)
	next.quality = min(next.quality, r.Quality)
	next.durability = max(next.durability, 0)

	switch {
	case next.progress >= r.Progress:
		next.status = Completed
	case next.durability == 0 && next.progress == 0:
		next.status = FailedNoProgress
	case next.durability == 0:
		next.status = FailedDurability
	}

	if next.status == InProgress {
		next.condition = s.table.Next(st.condition, src)
	}
	next.last = id
	next.step++

	out.Status = next.status
	out.Progress = next.progress
	out.Quality = next.quality
	switch {
	case next.status == Completed:
		out.Kind = Succeeded
	case next.status.Failed():
		out.Kind = Failed
	default:
		out.Kind = Continued
	}
	return next, out, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clampPct(v int) int {
	return min(max(v, 0), 100)
}
