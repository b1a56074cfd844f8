package craft

import (
	"errors"
	"testing"

	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/conditions"
	"craftsim.ai/internal/sim/rng"
)

// testConfig gives base progress 309 and base quality 374.
func testConfig() Config {
	return Config{
		Recipe: Recipe{
			Level:           90,
			Durability:      80,
			Progress:        1000,
			Quality:         10000,
			ProgressDivider: 130,
			QualityDivider:  115,
			Mode:            conditions.ModeNormal,
		},
		Character: Character{Craftsmanship: 4000, Control: 3900, CP: 500, Level: 90},
	}
}

func newSim(t *testing.T, cfg Config) *Sim {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// fixed answers every draw with the same value, reduced into range.
type fixed int

func (f fixed) Intn(n int) int { return min(int(f), n-1) }

// calm keeps a normal recipe on the Normal condition and fails every
// uncertain roll.
const calm = fixed(99)

func mustStep(t *testing.T, s *Sim, st State, id actions.ID, src rng.Source) (State, Outcome) {
	t.Helper()
	next, out, err := s.Step(st, id, src)
	if err != nil {
		t.Fatalf("Step(%s) at %s: %v", id, st, err)
	}
	return next, out
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Recipe.Durability = 0
	if _, err := New(cfg); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("zero durability: err=%v", err)
	}
	cfg = testConfig()
	cfg.Recipe.QualityDivider = 0
	if _, err := New(cfg); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("zero divider: err=%v", err)
	}
	cfg = testConfig()
	cfg.Recipe.Mode = conditions.Mode(42)
	if _, err := New(cfg); !errors.Is(err, conditions.ErrUnknownMode) {
		t.Fatalf("unknown mode: err=%v", err)
	}
}

func TestNew_BaseValues(t *testing.T) {
	s := newSim(t, testConfig())
	if s.BaseProgress() != 309 || s.BaseQuality() != 374 {
		t.Fatalf("base progress=%d quality=%d", s.BaseProgress(), s.BaseQuality())
	}
	cfg := testConfig()
	cfg.Recipe.ProgressModifier = 80
	cfg.Recipe.QualityModifier = 70
	s = newSim(t, cfg)
	if s.BaseProgress() != 247 || s.BaseQuality() != 261 {
		t.Fatalf("modified base progress=%d quality=%d", s.BaseProgress(), s.BaseQuality())
	}
}

func TestNewState(t *testing.T) {
	s := newSim(t, testConfig())
	st := s.NewState()
	if st.Durability() != 80 || st.CP() != 500 || st.Progress() != 0 || st.Quality() != 0 ||
		st.Step() != 0 || st.Condition() != conditions.Normal || st.Status() != InProgress ||
		st.LastAction() != actions.None || st.Buffs() != (buffs.Registry{}) {
		t.Fatalf("unexpected initial state %s", st)
	}
	if st.Delineations() != 0 {
		t.Fatalf("non specialist has delineations")
	}
	cfg := testConfig()
	cfg.Character.Specialist = true
	if got := newSim(t, cfg).NewState().Delineations(); got != 3 {
		t.Fatalf("specialist delineations=%d", got)
	}
}

func TestStep_ProgressAndQualityArithmetic(t *testing.T) {
	s := newSim(t, testConfig())
	script := &rng.Script{Draws: []int{99, 99, 99}}

	st, out := mustStep(t, s, s.NewState(), actions.BasicSynthesis, script)
	if out.ProgressGain != 370 || st.Progress() != 370 || st.Durability() != 70 {
		t.Fatalf("basic synthesis: gain=%d state=%s", out.ProgressGain, st)
	}
	if script.Used() != 1 {
		t.Fatalf("certain action drew %d values, want only the condition draw", script.Used())
	}

	st, out = mustStep(t, s, st, actions.BasicTouch, script)
	if out.QualityGain != 374 || st.Buffs().Stacks(buffs.InnerQuiet) != 1 {
		t.Fatalf("first touch: gain=%d state=%s", out.QualityGain, st)
	}
	// The second touch reads the single stack left by the first.
	st, out = mustStep(t, s, st, actions.BasicTouch, script)
	if out.QualityGain != 411 || st.Buffs().Stacks(buffs.InnerQuiet) != 2 {
		t.Fatalf("second touch: gain=%d state=%s", out.QualityGain, st)
	}
	if st.Step() != 3 || st.LastAction() != actions.BasicTouch || st.CP() != 500-36 {
		t.Fatalf("bookkeeping: %s", st)
	}
}

func TestStep_ConditionModifiers(t *testing.T) {
	s := newSim(t, testConfig())

	good := s.NewState()
	good.condition = conditions.Good
	_, out := mustStep(t, s, good, actions.BasicTouch, calm)
	if out.QualityGain != 561 {
		t.Fatalf("good touch gain=%d want 561", out.QualityGain)
	}

	pliant := s.NewState()
	pliant.condition = conditions.Pliant
	st, out := mustStep(t, s, pliant, actions.GreatStrides, calm)
	if out.CPCost != 16 || st.CP() != 484 {
		t.Fatalf("pliant great strides cost=%d cp=%d", out.CPCost, st.CP())
	}

	sturdy := s.NewState()
	sturdy.condition = conditions.Sturdy
	st, out = mustStep(t, s, sturdy, actions.BasicSynthesis, calm)
	if out.DurCost != 5 || st.Durability() != 75 {
		t.Fatalf("sturdy cost=%d durability=%d", out.DurCost, st.Durability())
	}

	// Waste Not and Sturdy together halve twice and round up.
	sturdy.buffs = sturdy.buffs.Apply(buffs.WasteNot, 0)
	_, out = mustStep(t, s, sturdy, actions.BasicSynthesis, calm)
	if out.DurCost != 3 {
		t.Fatalf("sturdy+waste not cost=%d want 3", out.DurCost)
	}

	centered := s.NewState()
	centered.condition = conditions.Centered
	p, err := s.Preview(centered, actions.RapidSynthesis)
	if err != nil || p.SuccessRate != 75 {
		t.Fatalf("centered rate=%d err=%v", p.SuccessRate, err)
	}

	primed := s.NewState()
	primed.condition = conditions.Primed
	st, _ = mustStep(t, s, primed, actions.Innovation, calm)
	if st.Buffs().Remaining(buffs.Innovation) != 6 {
		t.Fatalf("primed innovation remaining=%d want 6", st.Buffs().Remaining(buffs.Innovation))
	}
}

func TestStep_RejectionLeavesStateUntouched(t *testing.T) {
	s := newSim(t, testConfig())
	st := s.NewState()
	st.cp = 0
	st.durability = 5
	st.step = 4
	st.progress = 120
	st.quality = 300

	rejected := 0
	for _, id := range actions.All() {
		if s.Check(st, id) == nil {
			// Only the free, durability-neutral buff fits in this state.
			if id != actions.TrainedPerfection {
				t.Fatalf("%s accepted with no cp and 5 durability", id)
			}
			continue
		}
		rejected++
		script := &rng.Script{}
		next, out, err := s.Step(st, id, script)
		if err == nil {
			t.Fatalf("%s: Check rejected but Step accepted", id)
		}
		if next != st || out != (Outcome{}) || script.Used() != 0 {
			t.Fatalf("%s rejected but state=%s draws=%d", id, next, script.Used())
		}
		if !errors.Is(err, actions.ErrInvalidAction) {
			t.Fatalf("%s: err=%v does not match ErrInvalidAction", id, err)
		}
		var ae *ActionError
		if !errors.As(err, &ae) || ae.Action != id {
			t.Fatalf("%s: err=%v is not an ActionError", id, err)
		}
	}
	if rejected != len(actions.All())-1 {
		t.Fatalf("rejected=%d of %d", rejected, len(actions.All()))
	}

	// The accepted one resolves with a single condition draw.
	script := &rng.Script{Draws: []int{99}}
	next, _, err := s.Step(st, actions.TrainedPerfection, script)
	if err != nil || next.Step() != st.Step()+1 || script.Used() != 1 {
		t.Fatalf("trained perfection: err=%v step=%d draws=%d", err, next.Step(), script.Used())
	}
}

func TestStep_InsufficientDurability(t *testing.T) {
	s := newSim(t, testConfig())
	st := s.NewState()
	st, _ = mustStep(t, s, st, actions.BasicSynthesis, calm)
	st.durability = 10
	before := st

	next, _, err := s.Step(st, actions.Groundwork, &rng.Script{})
	if !errors.Is(err, ErrInsufficientDurability) || !errors.Is(err, actions.ErrInvalidAction) {
		t.Fatalf("err=%v", err)
	}
	if next.Durability() != before.Durability() || next.CP() != before.CP() ||
		next.Progress() != before.Progress() || next.Quality() != before.Quality() ||
		next.Condition() != before.Condition() || next.Step() != before.Step() || next != before {
		t.Fatalf("state changed: %s -> %s", before, next)
	}

	st.cp = 10
	if _, _, err := s.Step(st, actions.GreatStrides, &rng.Script{}); !errors.Is(err, ErrInsufficientCP) {
		t.Fatalf("insufficient cp err=%v", err)
	}
}

func TestStep_FailedRollsChangeNothingButResources(t *testing.T) {
	s := newSim(t, testConfig())
	st := s.NewState()
	seq := []actions.ID{actions.RapidSynthesis, actions.HastyTouch}
	for i := 0; !st.Status().Terminal(); i++ {
		prevDur, prevCP := st.Durability(), st.CP()
		var out Outcome
		st, out = mustStep(t, s, st, seq[i%len(seq)], calm)
		if out.Success || out.ProgressGain != 0 || out.QualityGain != 0 {
			t.Fatalf("step %d succeeded: %+v", i, out)
		}
		if st.Progress() != 0 || st.Quality() != 0 || st.Buffs().Stacks(buffs.InnerQuiet) != 0 {
			t.Fatalf("step %d changed progress or quality: %s", i, st)
		}
		if st.Durability() >= prevDur || st.CP() > prevCP {
			t.Fatalf("step %d resources did not fall: %s", i, st)
		}
	}
	if st.Status() != FailedNoProgress || st.Durability() != 0 || st.Step() != 8 {
		t.Fatalf("final %s", st)
	}
}

func TestStep_CompletionBeatsBreaking(t *testing.T) {
	s := newSim(t, testConfig())
	st := s.NewState()
	st.durability = 10
	st.progress = 900

	next, out := mustStep(t, s, st, actions.BasicSynthesis, &rng.Script{})
	if next.Status() != Completed || out.Kind != Succeeded || next.Progress() != 1000 || next.Durability() != 0 {
		t.Fatalf("want completed at zero durability, got %s (%+v)", next, out)
	}
	if next.Condition() != st.Condition() {
		t.Fatalf("condition redrawn on a finished craft")
	}

	_, _, err := s.Step(next, actions.BasicTouch, &rng.Script{})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("step after completion err=%v", err)
	}
	if legal := s.Legal(next); legal != nil {
		t.Fatalf("legal actions on a finished craft: %v", legal)
	}

	st.progress = 100
	broken, out := mustStep(t, s, st, actions.BasicSynthesis, &rng.Script{})
	if broken.Status() != FailedDurability || out.Kind != Failed {
		t.Fatalf("want failed durability, got %s", broken)
	}
}

func TestStep_InnerQuietCapAndConsume(t *testing.T) {
	cfg := testConfig()
	cfg.Recipe.Durability = 200
	cfg.Recipe.Quality = 100000
	cfg.Character.CP = 1000
	s := newSim(t, cfg)

	st := s.NewState()
	for i := 0; i < 11; i++ {
		st, _ = mustStep(t, s, st, actions.BasicTouch, calm)
	}
	if st.Buffs().Stacks(buffs.InnerQuiet) != buffs.MaxInnerQuiet {
		t.Fatalf("inner quiet=%d", st.Buffs().Stacks(buffs.InnerQuiet))
	}
	st, out := mustStep(t, s, st, actions.ByregotsBlessing, calm)
	if out.Consumed != 10 {
		t.Fatalf("consumed=%d want 10", out.Consumed)
	}
	if st.Buffs().Active(buffs.InnerQuiet) {
		t.Fatalf("inner quiet survived byregot: %s", st.Buffs())
	}
	// 300% efficiency doubled by ten stacks.
	if out.QualityGain != 2244 {
		t.Fatalf("byregot gain=%d want 2244", out.QualityGain)
	}
	if err := s.Check(st, actions.ByregotsBlessing); !errors.Is(err, actions.ErrInnerQuietRequired) {
		t.Fatalf("second byregot err=%v", err)
	}
}

func TestStep_GreatStridesExpiresAfterThreeTicks(t *testing.T) {
	s := newSim(t, testConfig())
	st, _ := mustStep(t, s, s.NewState(), actions.GreatStrides, calm)
	if st.Buffs().Remaining(buffs.GreatStrides) != 3 {
		t.Fatalf("remaining after apply=%d", st.Buffs().Remaining(buffs.GreatStrides))
	}
	for i := 0; i < 3; i++ {
		if !st.Buffs().Active(buffs.GreatStrides) {
			t.Fatalf("great strides gone before tick %d", i+1)
		}
		st, _ = mustStep(t, s, st, actions.Observe, calm)
	}
	if st.Buffs().Remaining(buffs.GreatStrides) != 0 || st.Buffs().Active(buffs.GreatStrides) {
		t.Fatalf("great strides still active: %s", st.Buffs())
	}
	_, out := mustStep(t, s, st, actions.BasicTouch, calm)
	if out.QualityGain != 374 {
		t.Fatalf("fourth action gain=%d, want unbuffed 374", out.QualityGain)
	}

	st, _ = mustStep(t, s, s.NewState(), actions.GreatStrides, calm)
	st, out = mustStep(t, s, st, actions.BasicTouch, calm)
	if out.QualityGain != 748 || st.Buffs().Active(buffs.GreatStrides) {
		t.Fatalf("buffed touch gain=%d buffs=%s", out.QualityGain, st.Buffs())
	}
}

func TestStep_StackingModes(t *testing.T) {
	for _, tc := range []struct {
		stacking Stacking
		want     int
	}{
		{StackingAdditive, 935},
		{StackingMultiplicative, 1122},
	} {
		cfg := testConfig()
		cfg.Stacking = tc.stacking
		s := newSim(t, cfg)
		st := s.NewState()
		st, _ = mustStep(t, s, st, actions.Innovation, calm)
		st, _ = mustStep(t, s, st, actions.GreatStrides, calm)
		_, out := mustStep(t, s, st, actions.BasicTouch, calm)
		if out.QualityGain != tc.want {
			t.Fatalf("%s: gain=%d want %d", tc.stacking, out.QualityGain, tc.want)
		}
	}
}

func TestStep_Manipulation(t *testing.T) {
	s := newSim(t, testConfig())
	st, out := mustStep(t, s, s.NewState(), actions.Manipulation, calm)
	if out.Repaired != 0 || st.Buffs().Remaining(buffs.Manipulation) != 8 {
		t.Fatalf("manipulation repaired on its own step: %+v %s", out, st.Buffs())
	}
	st, out = mustStep(t, s, st, actions.BasicSynthesis, calm)
	if out.Repaired != 5 || st.Durability() != 75 {
		t.Fatalf("repair=%d durability=%d", out.Repaired, st.Durability())
	}
	st, out = mustStep(t, s, st, actions.Observe, calm)
	if out.Repaired != 5 || st.Durability() != 80 {
		t.Fatalf("repair capped wrong: %d durability=%d", out.Repaired, st.Durability())
	}

	// A finishing step is not repaired.
	st.progress = 900
	st, out = mustStep(t, s, st, actions.BasicSynthesis, calm)
	if st.Status() != Completed || out.Repaired != 0 {
		t.Fatalf("finished craft repaired: %+v", out)
	}
}

func TestStep_FinalAppraisal(t *testing.T) {
	s := newSim(t, testConfig())
	st, _ := mustStep(t, s, s.NewState(), actions.Veneration, calm)
	st.progress = 900
	st, _ = mustStep(t, s, st, actions.FinalAppraisal, calm)
	if st.Buffs().Remaining(buffs.Veneration) != 4 {
		t.Fatalf("final appraisal passed time: %s", st.Buffs())
	}
	st, out := mustStep(t, s, st, actions.BasicSynthesis, calm)
	if st.Progress() != 999 || out.ProgressGain != 99 || st.Status() != InProgress {
		t.Fatalf("final appraisal did not hold: %s", st)
	}
	if st.Buffs().Active(buffs.FinalAppraisal) {
		t.Fatalf("final appraisal not consumed")
	}
}

func TestStep_Combos(t *testing.T) {
	s := newSim(t, testConfig())
	st, _ := mustStep(t, s, s.NewState(), actions.BasicTouch, calm)
	p, err := s.Preview(st, actions.StandardTouch)
	if err != nil || p.CPCost != 18 {
		t.Fatalf("combo standard touch cost=%d err=%v", p.CPCost, err)
	}
	broken, _ := mustStep(t, s, st, actions.FinalAppraisal, calm)
	if p, _ := s.Preview(broken, actions.StandardTouch); p.CPCost != 32 {
		t.Fatalf("combo survived an interrupting action, cost=%d", p.CPCost)
	}
	if err := s.Check(st, actions.DaringTouch); !errors.Is(err, actions.ErrComboRequired) {
		t.Fatalf("daring touch err=%v", err)
	}
}

func TestStep_AdvancedTouchChainsOnlyFromStandard(t *testing.T) {
	s := newSim(t, testConfig())
	observed, _ := mustStep(t, s, s.NewState(), actions.Observe, calm)
	if p, err := s.Preview(observed, actions.AdvancedTouch); err != nil || p.CPCost != 46 {
		t.Fatalf("advanced touch after observe cost=%d err=%v", p.CPCost, err)
	}
	if p, err := s.Preview(observed, actions.FocusedTouch); err != nil || p.SuccessRate != 100 {
		t.Fatalf("focused touch after observe rate=%d err=%v", p.SuccessRate, err)
	}

	st, _ := mustStep(t, s, s.NewState(), actions.BasicTouch, calm)
	st, _ = mustStep(t, s, st, actions.StandardTouch, calm)
	if p, err := s.Preview(st, actions.AdvancedTouch); err != nil || p.CPCost != 18 {
		t.Fatalf("chained advanced touch cost=%d err=%v", p.CPCost, err)
	}
}

func TestStep_TrainedPerfection(t *testing.T) {
	s := newSim(t, testConfig())
	st, _ := mustStep(t, s, s.NewState(), actions.TrainedPerfection, calm)
	st, out := mustStep(t, s, st, actions.PreparatoryTouch, calm)
	if out.DurCost != 0 || st.Durability() != 80 || st.Buffs().Active(buffs.TrainedPerfection) {
		t.Fatalf("trained perfection: cost=%d %s", out.DurCost, st)
	}
	if err := s.Check(st, actions.TrainedPerfection); !errors.Is(err, actions.ErrUnavailable) {
		t.Fatalf("second trained perfection err=%v", err)
	}
}

func TestStep_Determinism(t *testing.T) {
	s := newSim(t, testConfig())
	seq := []actions.ID{
		actions.Reflect, actions.Manipulation, actions.HastyTouch, actions.HastyTouch,
		actions.PreciseTouch, actions.Innovation, actions.RapidSynthesis, actions.BasicTouch,
		actions.StandardTouch, actions.RapidSynthesis, actions.CarefulSynthesis, actions.RapidSynthesis,
	}
	run := func() State {
		src := rng.New(7)
		st := s.NewState()
		for _, id := range seq {
			next, _, err := s.Step(st, id, src)
			if err == nil {
				st = next
			}
			if st.Status().Terminal() {
				break
			}
		}
		return st
	}
	a, b := run(), run()
	if a != b || a.Digest() != b.Digest() {
		t.Fatalf("runs diverged:\n%s\n%s", a, b)
	}
	if a.Step() == 0 {
		t.Fatalf("nothing resolved")
	}
}

func TestLegal(t *testing.T) {
	s := newSim(t, testConfig())
	legal := map[actions.ID]bool{}
	for _, id := range s.Legal(s.NewState()) {
		legal[id] = true
	}
	for _, id := range []actions.ID{actions.MuscleMemory, actions.Reflect, actions.BasicSynthesis, actions.StandardTouch} {
		if !legal[id] {
			t.Fatalf("%s should be legal on the first step", id)
		}
	}
	for _, id := range []actions.ID{actions.ByregotsBlessing, actions.IntensiveSynthesis, actions.TrainedEye, actions.CarefulObservation, actions.DaringTouch} {
		if legal[id] {
			t.Fatalf("%s should not be legal on the first step", id)
		}
	}
}

func TestPreview_DoesNotDraw(t *testing.T) {
	s := newSim(t, testConfig())
	p, err := s.Preview(s.NewState(), actions.DelicateSynthesis)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.ProgressGain != 309 || p.QualityGain != 374 || p.CPCost != 32 || p.DurCost != 10 || p.SuccessRate != 100 {
		t.Fatalf("preview=%+v", p)
	}
}

func TestRecordRestore(t *testing.T) {
	cfg := testConfig()
	cfg.Character.Specialist = true
	s := newSim(t, cfg)
	st := s.NewState()
	for _, id := range []actions.ID{actions.Reflect, actions.Innovation, actions.CarefulObservation, actions.BasicTouch} {
		st, _ = mustStep(t, s, st, id, calm)
	}
	got, err := s.Restore(st.Record())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got != st || got.Digest() != st.Digest() {
		t.Fatalf("restored %s want %s", got, st)
	}

	rec := st.Record()
	rec.Durability = 81
	if _, err := s.Restore(rec); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("over max durability err=%v", err)
	}
	rec = st.Record()
	rec.Condition = uint8(conditions.Primed)
	if _, err := s.Restore(rec); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("condition outside mode err=%v", err)
	}
}

func TestDigest_ChangesWithState(t *testing.T) {
	s := newSim(t, testConfig())
	a := s.NewState()
	b, _ := mustStep(t, s, a, actions.Observe, calm)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignored a step")
	}
	if len(a.Digest()) != 64 {
		t.Fatalf("digest len=%d", len(a.Digest()))
	}
}
