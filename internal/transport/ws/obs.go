package ws

import (
	"craftsim.ai/internal/protocol"
	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/session"
)

// Observe renders the session's current state. last describes the action
// that led to it, or is nil for the opening observation.
func Observe(sess *session.Session, last *protocol.OutcomeObs) protocol.ObsMsg {
	st := sess.State()
	reg := st.Buffs()
	obs := protocol.ObsMsg{
		Type:             protocol.TypeObs,
		ProtocolVersion:  protocol.Version,
		RunID:            sess.RunID(),
		Step:             st.Step(),
		Condition:        st.Condition().String(),
		Progress:         st.Progress(),
		Quality:          st.Quality(),
		Durability:       st.Durability(),
		CP:               st.CP(),
		Buffs:            []protocol.BuffObs{},
		Status:           st.Status().String(),
		HQChance:         sess.Sim().HQChance(st),
		Digest:           st.Digest(),
		Delineations:     st.Delineations(),
		HeartAndSoulUsed: st.HeartAndSoulUsed(),
		Legal:            []string{},
		Last:             last,
	}
	for k := buffs.Kind(0); k < buffs.NumKinds; k++ {
		e := reg.Entry(k)
		if !e.Active() {
			continue
		}
		obs.Buffs = append(obs.Buffs, protocol.BuffObs{Kind: k.String(), Remaining: int(e.Remaining), Stacks: int(e.Stacks)})
	}
	if !sess.Done() {
		for _, id := range sess.Legal() {
			obs.Legal = append(obs.Legal, id.String())
		}
	}
	return obs
}
