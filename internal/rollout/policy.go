package rollout

import (
	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/rng"
)

// Policy picks actions for a run. Implementations must not keep per-run
// state: one value is shared by every worker.
type Policy interface {
	Name() string
	// Choose returns the action for turn (the number of actions tried so far
	// in this run, rejected ones included) or false when it has nothing left.
	Choose(sim *craft.Sim, st craft.State, turn int, src rng.Source) (actions.ID, bool)
}

// Sequence plays a fixed macro in order. Like an in-game macro, a step that
// is not usable at its turn is skipped.
type Sequence []actions.ID

func (Sequence) Name() string { return "sequence" }

func (m Sequence) Choose(_ *craft.Sim, _ craft.State, turn int, _ rng.Source) (actions.ID, bool) {
	if turn >= len(m) {
		return actions.None, false
	}
	return m[turn], true
}

// Random draws uniformly among the legal actions of the current state.
// Actions listed in Exclude are never chosen.
type Random struct {
	Exclude []actions.ID
}

func (Random) Name() string { return "random" }

func (p Random) Choose(sim *craft.Sim, st craft.State, _ int, src rng.Source) (actions.ID, bool) {
	legal := sim.Legal(st)
	if len(p.Exclude) > 0 {
		kept := legal[:0]
		for _, id := range legal {
			if !p.excluded(id) {
				kept = append(kept, id)
			}
		}
		legal = kept
	}
	if len(legal) == 0 {
		return actions.None, false
	}
	return legal[src.Intn(len(legal))], true
}

func (p Random) excluded(id actions.ID) bool {
	for _, x := range p.Exclude {
		if x == id {
			return true
		}
	}
	return false
}
