package craft

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/buffs"
	"craftsim.ai/internal/sim/conditions"
)

type Status uint8

const (
	InProgress Status = iota
	Completed
	FailedDurability
	// FailedNoProgress is a durability failure with nothing crafted at all.
	FailedNoProgress
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "IN_PROGRESS"
	case Completed:
		return "COMPLETED"
	case FailedDurability:
		return "FAILED_DURABILITY"
	case FailedNoProgress:
		return "FAILED_NO_PROGRESS"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) Terminal() bool { return s != InProgress }
func (s Status) Failed() bool   { return s == FailedDurability || s == FailedNoProgress }

// State is the value threaded through every step. It is comparable, so two
// states are equal exactly when == says so.
type State struct {
	durability int
	cp         int
	progress   int
	quality    int
	step       int
	condition  conditions.Condition
	buffs      buffs.Registry
	last       actions.ID
	status     Status

	delineations          int
	heartAndSoulUsed      bool
	trainedPerfectionUsed bool
}

func (s State) Durability() int                 { return s.durability }
func (s State) CP() int                         { return s.cp }
func (s State) Progress() int                   { return s.progress }
func (s State) Quality() int                    { return s.quality }
func (s State) Step() int                       { return s.step }
func (s State) Condition() conditions.Condition { return s.condition }
func (s State) Buffs() buffs.Registry           { return s.buffs }
func (s State) LastAction() actions.ID          { return s.last }
func (s State) Status() Status                  { return s.status }
func (s State) Delineations() int               { return s.delineations }
func (s State) HeartAndSoulUsed() bool          { return s.heartAndSoulUsed }
func (s State) TrainedPerfectionUsed() bool     { return s.trainedPerfectionUsed }

func (s State) String() string {
	return fmt.Sprintf("step=%d %s dur=%d cp=%d progress=%d quality=%d cond=%s buffs=%s",
		s.step, s.status, s.durability, s.cp, s.progress, s.quality, s.condition, s.buffs)
}

// Digest is a stable sha256 over every field, used to verify replays.
func (s State) Digest() string {
	h := sha256.New()
	w := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		h.Write(b[:])
	}
	w(uint64(int64(s.durability)))
	w(uint64(int64(s.cp)))
	w(uint64(int64(s.progress)))
	w(uint64(int64(s.quality)))
	w(uint64(int64(s.step)))
	w(uint64(s.condition))
	w(uint64(s.last))
	w(uint64(s.status))
	w(uint64(int64(s.delineations)))
	w(boolU64(s.heartAndSoulUsed))
	w(boolU64(s.trainedPerfectionUsed))
	for k := buffs.Kind(0); k < buffs.NumKinds; k++ {
		e := s.buffs.Entry(k)
		w(uint64(e.Remaining)<<8 | uint64(e.Stacks))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// OutcomeKind tags the result of a legal step.
type OutcomeKind uint8

const (
	Continued OutcomeKind = iota
	Succeeded
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Continued:
		return "CONTINUED"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
}

// Outcome describes one resolved step.
type Outcome struct {
	Kind     OutcomeKind
	Status   Status
	Progress int
	Quality  int

	// Success is the result of the success roll.
	Success      bool
	ProgressGain int
	QualityGain  int
	CPCost       int
	DurCost      int

	// Consumed is the Inner Quiet count spent by a finishing touch.
	Consumed int
	// Repaired is the durability restored by Manipulation at end of step.
	Repaired int
}

// StateRecord is the exported form of a State for persistence. Restore it
// with Sim.Restore.
type StateRecord struct {
	Durability   int
	CP           int
	Progress     int
	Quality      int
	Step         int
	Condition    uint8
	LastAction   uint8
	Status       uint8
	Delineations int
	HeartAndSoul bool
	Trained      bool
	Buffs        []BuffRecord
}

type BuffRecord struct {
	Kind      uint8
	Remaining uint8
	Stacks    uint8
}

func (s State) Record() StateRecord {
	rec := StateRecord{
		Durability:   s.durability,
		CP:           s.cp,
		Progress:     s.progress,
		Quality:      s.quality,
		Step:         s.step,
		Condition:    uint8(s.condition),
		LastAction:   uint8(s.last),
		Status:       uint8(s.status),
		Delineations: s.delineations,
		HeartAndSoul: s.heartAndSoulUsed,
		Trained:      s.trainedPerfectionUsed,
	}
	for k := buffs.Kind(0); k < buffs.NumKinds; k++ {
		if e := s.buffs.Entry(k); e.Active() {
			rec.Buffs = append(rec.Buffs, BuffRecord{Kind: uint8(k), Remaining: e.Remaining, Stacks: e.Stacks})
		}
	}
	return rec
}
