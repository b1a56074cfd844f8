package actions

import (
	"fmt"

	"craftsim.ai/internal/sim/buffs"
)

const (
	comboTouchCP    = 18
	mastersMendHeal = 30
	tricksCP        = 20
	wasteNot2Steps  = 8
)

// effectFor binds the effect function of one descriptor. The switch is
// exhaustive over ID; newCatalog panics on a missing case so adding an
// action without an effect cannot go unnoticed.
func effectFor(d Descriptor) func(Context) Delta {
	switch d.ID {
	case Veneration:
		return grant(d, buffs.Veneration)
	case WasteNot:
		return grant(d, buffs.WasteNot)
	case WasteNot2:
		return func(Context) Delta {
			out := d.base()
			out.Grants = buffs.Of(buffs.WasteNot)
			out.GrantSteps = wasteNot2Steps
			return out
		}
	case GreatStrides:
		return grant(d, buffs.GreatStrides)
	case Innovation:
		return grant(d, buffs.Innovation)
	case FinalAppraisal:
		return grant(d, buffs.FinalAppraisal)
	case Manipulation:
		return grant(d, buffs.Manipulation)
	case MastersMend:
		return func(Context) Delta {
			out := d.base()
			out.RestoreDurability = mastersMendHeal
			return out
		}
	case ImmaculateMend:
		return func(Context) Delta {
			out := d.base()
			out.RestoreFull = true
			return out
		}
	case Observe:
		return grant(d, buffs.ObserveCombo)
	case TricksOfTheTrade:
		return func(c Context) Delta {
			out := boosted(d, c)
			out.RestoreCP = tricksCP
			return out
		}
	case CarefulObservation:
		return func(c Context) Delta {
			out := d.base()
			switch {
			case !c.Specialist:
				out.Err = ErrSpecialistOnly
			case c.Delineations <= 0:
				out.Err = ErrUnavailable
			}
			out.UseDelineation = true
			return out
		}
	case HeartAndSoul:
		return func(c Context) Delta {
			out := d.base()
			switch {
			case !c.Specialist:
				out.Err = ErrSpecialistOnly
			case c.HeartAndSoulUsed:
				out.Err = ErrUnavailable
			}
			out.Grants = buffs.Of(buffs.HeartAndSoul)
			out.UseHeartAndSoul = true
			return out
		}
	case TrainedPerfection:
		return func(c Context) Delta {
			out := d.base()
			if c.TrainedPerfectionUsed {
				out.Err = ErrUnavailable
			}
			out.Grants = buffs.Of(buffs.TrainedPerfection)
			out.UseTrainedPerfection = true
			return out
		}
	case DelicateSynthesis:
		return touch(d, 1)

	case BasicSynthesis, RapidSynthesis, CarefulSynthesis, Groundwork:
		return func(Context) Delta { return d.base() }
	case MuscleMemory:
		return func(c Context) Delta {
			out := d.base()
			if c.Step != 0 {
				out.Err = ErrFirstStepOnly
			}
			out.Grants = buffs.Of(buffs.MuscleMemory)
			return out
		}
	case FocusedSynthesis:
		return focused(d)
	case IntensiveSynthesis:
		return func(c Context) Delta { return boosted(d, c) }
	case PrudentSynthesis:
		return prudent(d, 0)

	case BasicTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			out.Grants = buffs.Of(buffs.BasicTouchCombo)
			return out
		}
	case HastyTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			out.Grants = buffs.Of(buffs.HastyTouchCombo)
			return out
		}
	case StandardTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			if c.Buffs.Active(buffs.BasicTouchCombo) {
				out.CP = comboTouchCP
				out.Grants = buffs.Of(buffs.StandardTouchCombo)
			}
			return out
		}
	case AdvancedTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			if c.Buffs.Active(buffs.StandardTouchCombo) {
				out.CP = comboTouchCP
			}
			return out
		}
	case ByregotsBlessing:
		return func(c Context) Delta {
			out := d.base()
			iq := c.Buffs.Stacks(buffs.InnerQuiet)
			if iq == 0 {
				out.Err = ErrInnerQuietRequired
			}
			out.Quality = d.Quality + 20*iq
			out.ConsumeInnerQuiet = true
			return out
		}
	case PreciseTouch:
		return func(c Context) Delta {
			out := boosted(d, c)
			out.InnerQuiet = 2
			return out
		}
	case PrudentTouch:
		return prudent(d, 1)
	case FocusedTouch:
		return func(c Context) Delta {
			out := focused(d)(c)
			out.InnerQuiet = 1
			return out
		}
	case Reflect:
		return func(c Context) Delta {
			out := touch(d, 2)(c)
			if c.Step != 0 {
				out.Err = ErrFirstStepOnly
			}
			return out
		}
	case PreparatoryTouch:
		return touch(d, 2)
	case TrainedEye:
		return func(c Context) Delta {
			out := d.base()
			switch {
			case c.Step != 0:
				out.Err = ErrFirstStepOnly
			case c.Expert:
				out.Err = ErrExpertRecipe
			case !c.Outleveled:
				out.Err = ErrLevelTooLow
			}
			out.FillQuality = true
			return out
		}
	case TrainedFinesse:
		return func(c Context) Delta {
			out := d.base()
			if c.Buffs.Stacks(buffs.InnerQuiet) < buffs.MaxInnerQuiet {
				out.Err = ErrInnerQuietRequired
			}
			return out
		}
	case DaringTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			if !c.Buffs.Active(buffs.HastyTouchCombo) {
				out.Err = ErrComboRequired
			}
			return out
		}
	case RefinedTouch:
		return func(c Context) Delta {
			out := touch(d, 1)(c)
			if c.Buffs.Active(buffs.BasicTouchCombo) {
				out.InnerQuiet = 2
			}
			return out
		}
	}
	panic(fmt.Sprintf("actions: no effect bound for %s", d.ID))
}

func grant(d Descriptor, k buffs.Kind) func(Context) Delta {
	return func(Context) Delta {
		out := d.base()
		out.Grants = buffs.Of(k)
		return out
	}
}

// touch is the shape shared by quality actions that build Inner Quiet.
func touch(d Descriptor, iq int) func(Context) Delta {
	return func(Context) Delta {
		out := d.base()
		out.InnerQuiet = iq
		return out
	}
}

// boosted gates an action on a Good or Excellent condition. Heart and Soul
// lifts the gate and is spent only when it was actually needed.
func boosted(d Descriptor, c Context) Delta {
	out := d.base()
	if c.Condition.Boosted() {
		return out
	}
	if c.Buffs.Active(buffs.HeartAndSoul) {
		out.Consumes = buffs.Of(buffs.HeartAndSoul)
		return out
	}
	out.Err = ErrConditionRequired
	return out
}

func focused(d Descriptor) func(Context) Delta {
	return func(c Context) Delta {
		out := d.base()
		if c.Buffs.Active(buffs.ObserveCombo) {
			out.SuccessRate = 100
		}
		return out
	}
}

func prudent(d Descriptor, iq int) func(Context) Delta {
	return func(c Context) Delta {
		out := d.base()
		out.InnerQuiet = iq
		if c.Buffs.Active(buffs.WasteNot) {
			out.Err = ErrWasteNotActive
		}
		return out
	}
}
