package actions

import (
	"errors"
	"testing"

	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/conditions"
)

func TestDefault_EveryActionBound(t *testing.T) {
	c := Default()
	for _, id := range All() {
		d, err := c.Describe(id)
		if err != nil {
			t.Fatalf("Describe(%s): %v", id, err)
		}
		if d.ID != id || d.Effect == nil || d.Name == "" {
			t.Fatalf("descriptor %s incomplete: %+v", id, d)
		}
		if d.SuccessRate <= 0 || d.SuccessRate > 100 {
			t.Fatalf("descriptor %s success rate %d", id, d.SuccessRate)
		}
	}
	if len(All()) != int(NumActions)-1 {
		t.Fatalf("All() len=%d", len(All()))
	}
}

func TestDescribe_Unknown(t *testing.T) {
	for _, id := range []ID{None, NumActions, ID(200)} {
		if _, err := Default().Describe(id); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("Describe(%d) err=%v want ErrInvalidAction", id, err)
		}
	}
}

func TestParse(t *testing.T) {
	c := Default()
	cases := map[string]ID{
		"basic_synthesis":    BasicSynthesis,
		"Basic Synthesis":    BasicSynthesis,
		"BYREGOTS_BLESSING":  ByregotsBlessing,
		"Byregot's Blessing": ByregotsBlessing,
		"waste-not-ii":       WasteNot2,
		"waste_not_2":        WasteNot2,
		"Waste Not II":       WasteNot2,
	}
	for in, want := range cases {
		got, err := c.Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q)=%s,%v want %s", in, got, err, want)
		}
	}

	_, err := c.Parse("basic synthesys")
	var unk *UnknownNameError
	if !errors.As(err, &unk) || !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected UnknownNameError wrapping ErrInvalidAction, got %v", err)
	}
	if unk.Suggestion != "basic_synthesis" {
		t.Fatalf("suggestion=%q want basic_synthesis", unk.Suggestion)
	}
	_, err = c.Parse("xyzzy")
	if !errors.As(err, &unk) || unk.Suggestion != "" {
		t.Fatalf("expected no suggestion for far name, got %v", err)
	}
}

func describe(t *testing.T, id ID) Descriptor {
	t.Helper()
	d, err := Default().Describe(id)
	if err != nil {
		t.Fatalf("Describe(%s): %v", id, err)
	}
	return d
}

func TestEffects_Preconditions(t *testing.T) {
	normal := Context{Condition: conditions.Normal}
	later := Context{Step: 3, Condition: conditions.Normal}
	good := Context{Step: 3, Condition: conditions.Good}

	cases := []struct {
		name string
		id   ID
		ctx  Context
		want error
	}{
		{"muscle memory late", MuscleMemory, later, ErrFirstStepOnly},
		{"muscle memory first", MuscleMemory, normal, nil},
		{"reflect late", Reflect, later, ErrFirstStepOnly},
		{"intensive normal", IntensiveSynthesis, later, ErrConditionRequired},
		{"intensive good", IntensiveSynthesis, good, nil},
		{"precise normal", PreciseTouch, later, ErrConditionRequired},
		{"tricks excellent", TricksOfTheTrade, Context{Condition: conditions.Excellent}, nil},
		{"byregot without iq", ByregotsBlessing, later, ErrInnerQuietRequired},
		{"finesse below cap", TrainedFinesse, Context{Buffs: buffs.Registry{}.Add(buffs.InnerQuiet, 9)}, ErrInnerQuietRequired},
		{"finesse at cap", TrainedFinesse, Context{Buffs: buffs.Registry{}.Add(buffs.InnerQuiet, 10)}, nil},
		{"daring without hasty", DaringTouch, later, ErrComboRequired},
		{"daring after hasty", DaringTouch, Context{Buffs: buffs.Registry{}.Apply(buffs.HastyTouchCombo, 0)}, nil},
		{"prudent under waste not", PrudentTouch, Context{Buffs: buffs.Registry{}.Apply(buffs.WasteNot, 0)}, ErrWasteNotActive},
		{"careful observation non specialist", CarefulObservation, normal, ErrSpecialistOnly},
		{"careful observation spent", CarefulObservation, Context{Specialist: true}, ErrUnavailable},
		{"careful observation ok", CarefulObservation, Context{Specialist: true, Delineations: 1}, nil},
		{"heart and soul used", HeartAndSoul, Context{Specialist: true, HeartAndSoulUsed: true}, ErrUnavailable},
		{"trained perfection used", TrainedPerfection, Context{TrainedPerfectionUsed: true}, ErrUnavailable},
		{"trained eye underleveled", TrainedEye, normal, ErrLevelTooLow},
		{"trained eye expert", TrainedEye, Context{Outleveled: true, Expert: true}, ErrExpertRecipe},
		{"trained eye ok", TrainedEye, Context{Outleveled: true}, nil},
	}
	for _, tc := range cases {
		d := describe(t, tc.id).Effect(tc.ctx)
		if !errors.Is(d.Err, tc.want) || (tc.want == nil && d.Err != nil) {
			t.Fatalf("%s: err=%v want %v", tc.name, d.Err, tc.want)
		}
	}
}

func TestEffects_HeartAndSoulUnlocksBoosted(t *testing.T) {
	ctx := Context{Step: 2, Condition: conditions.Normal, Buffs: buffs.Registry{}.Apply(buffs.HeartAndSoul, 0)}
	d := describe(t, IntensiveSynthesis).Effect(ctx)
	if d.Err != nil || !d.Consumes.Has(buffs.HeartAndSoul) {
		t.Fatalf("intensive under heart and soul: err=%v consumes=%v", d.Err, d.Consumes)
	}
	ctx.Condition = conditions.Good
	d = describe(t, IntensiveSynthesis).Effect(ctx)
	if d.Consumes.Has(buffs.HeartAndSoul) {
		t.Fatalf("heart and soul spent on a good condition")
	}
}

func TestEffects_Combos(t *testing.T) {
	afterBasic := Context{Buffs: buffs.Registry{}.Apply(buffs.BasicTouchCombo, 0)}
	d := describe(t, StandardTouch).Effect(afterBasic)
	if d.CP != 18 || !d.Grants.Has(buffs.StandardTouchCombo) {
		t.Fatalf("standard touch combo: cp=%d grants=%v", d.CP, d.Grants)
	}
	if d := describe(t, StandardTouch).Effect(Context{}); d.CP != 32 || d.Grants.Has(buffs.StandardTouchCombo) {
		t.Fatalf("standard touch without combo: cp=%d", d.CP)
	}
	afterStandard := Context{Buffs: buffs.Registry{}.Apply(buffs.StandardTouchCombo, 0)}
	if d := describe(t, AdvancedTouch).Effect(afterStandard); d.CP != 18 {
		t.Fatalf("advanced touch combo cp=%d", d.CP)
	}
	if d := describe(t, RefinedTouch).Effect(afterBasic); d.InnerQuiet != 2 {
		t.Fatalf("refined touch combo iq=%d", d.InnerQuiet)
	}
	afterObserve := Context{Buffs: buffs.Registry{}.Apply(buffs.ObserveCombo, 0)}
	if d := describe(t, FocusedSynthesis).Effect(afterObserve); d.SuccessRate != 100 {
		t.Fatalf("focused synthesis after observe rate=%d", d.SuccessRate)
	}
	if d := describe(t, FocusedTouch).Effect(Context{}); d.SuccessRate != 50 {
		t.Fatalf("focused touch cold rate=%d", d.SuccessRate)
	}
}

func TestEffects_ByregotScalesWithInnerQuiet(t *testing.T) {
	ctx := Context{Buffs: buffs.Registry{}.Add(buffs.InnerQuiet, 10)}
	d := describe(t, ByregotsBlessing).Effect(ctx)
	if d.Quality != 300 || !d.ConsumeInnerQuiet {
		t.Fatalf("byregot quality=%d consume=%v", d.Quality, d.ConsumeInnerQuiet)
	}
}

func TestEffects_Pure(t *testing.T) {
	ctx := Context{Step: 0, Condition: conditions.Good, Buffs: buffs.Registry{}.Add(buffs.InnerQuiet, 4)}
	before := ctx
	for _, id := range All() {
		a := describe(t, id).Effect(ctx)
		b := describe(t, id).Effect(ctx)
		if a != b {
			t.Fatalf("%s effect not deterministic", id)
		}
	}
	if ctx != before {
		t.Fatalf("context mutated")
	}
}
