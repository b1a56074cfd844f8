package session

import (
	"errors"
	"fmt"
	"sort"

	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/rng"
)

var ErrDigestMismatch = errors.New("digest mismatch")

// Replay re-resolves the logged steps of snap's run on top of snap and checks
// each resulting digest against the log. Entries of other runs and entries
// before the snapshot are ignored; the remaining steps must be contiguous.
func Replay(sim *craft.Sim, snap snapshot.RunV1, entries []StepLogEntry) (craft.State, int, error) {
	st, err := sim.Restore(snap.State)
	if err != nil {
		return st, 0, err
	}
	if st.Digest() != snap.Digest {
		return st, 0, fmt.Errorf("%w: snapshot of %s at step %d", ErrDigestMismatch, snap.Header.RunID, st.Step())
	}

	var mine []StepLogEntry
	for _, e := range entries {
		if e.RunID == snap.Header.RunID && e.Step >= st.Step() {
			mine = append(mine, e)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Step < mine[j].Step })

	src := rng.Restore(snap.RNGState)
	replayed := 0
	for _, e := range mine {
		if e.Step != st.Step() {
			return st, replayed, fmt.Errorf("run %s: expected step %d in log, found %d", snap.Header.RunID, st.Step(), e.Step)
		}
		id, err := sim.Catalog().Parse(e.Action)
		if err != nil {
			return st, replayed, fmt.Errorf("step %d: %w", e.Step, err)
		}
		next, out, err := sim.Step(st, id, src)
		if err != nil {
			return st, replayed, fmt.Errorf("step %d: %w", e.Step, err)
		}
		if out.Success != e.Success {
			return st, replayed, fmt.Errorf("%w: step %d success=%v logged=%v", ErrDigestMismatch, e.Step, out.Success, e.Success)
		}
		if d := next.Digest(); d != e.Digest {
			return st, replayed, fmt.Errorf("%w: step %d got %s logged %s", ErrDigestMismatch, e.Step, d, e.Digest)
		}
		st = next
		replayed++
	}
	return st, replayed, nil
}
