// Package session drives one craft from start to finish for a single owner:
// it keeps the state, the random stream and the action history, and reports
// every resolved step to the attached loggers.
package session

import (
	"errors"
	"fmt"
	"time"

	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/rng"
)

var (
	ErrStepLimit = errors.New("step limit reached")
	ErrFinished  = errors.New("session finished")
)

type StepLogger interface {
	WriteStep(entry StepLogEntry) error
}

type RunRecorder interface {
	RecordRun(run RunRecord)
}

type StepLogEntry struct {
	RunID         string `json:"run_id"`
	Step          int    `json:"step"`
	Action        string `json:"action"`
	Condition     string `json:"condition"`
	Success       bool   `json:"success"`
	ProgressGain  int    `json:"progress_gain,omitempty"`
	QualityGain   int    `json:"quality_gain,omitempty"`
	Progress      int    `json:"progress"`
	Quality       int    `json:"quality"`
	Durability    int    `json:"durability"`
	CP            int    `json:"cp"`
	NextCondition string `json:"next_condition"`
	Status        string `json:"status"`
	Digest        string `json:"digest"`
}

type RunRecord struct {
	RunID       string `json:"run_id"`
	RecipeID    string `json:"recipe_id"`
	CharacterID string `json:"character_id"`
	Seed        int64  `json:"seed"`
	Status      string `json:"status"`
	Steps       int    `json:"steps"`
	Progress    int    `json:"progress"`
	Quality     int    `json:"quality"`
	HQChance    int    `json:"hq_chance"`
	Digest      string `json:"digest"`
	EndedAt     string `json:"ended_at"`
}

type Options struct {
	RunID       string
	RecipeID    string
	CharacterID string
	Seed        int64

	// Catalog digests recorded in snapshots.
	RecipesDigest    string
	CharactersDigest string

	// MaxSteps bounds the number of resolved steps; 0 means no bound.
	MaxSteps int
	// SnapshotEvery emits a snapshot every N resolved steps; 0 disables it.
	SnapshotEvery int
}

// Session is owned by one goroutine; it is not safe for concurrent use.
type Session struct {
	opts    Options
	sim     *craft.Sim
	src     *rng.SplitMix
	state   craft.State
	history []actions.ID
	done    bool

	loggers   []StepLogger
	runs      RunRecorder
	snapshots chan<- snapshot.RunV1
}

func New(sim *craft.Sim, opts Options) *Session {
	return &Session{
		opts:  opts,
		sim:   sim,
		src:   rng.New(opts.Seed),
		state: sim.NewState(),
	}
}

// Resume continues a run from a snapshot taken by Snapshot.
func Resume(sim *craft.Sim, snap snapshot.RunV1, opts Options) (*Session, error) {
	st, err := sim.Restore(snap.State)
	if err != nil {
		return nil, err
	}
	if st.Digest() != snap.Digest {
		return nil, fmt.Errorf("snapshot %s: digest mismatch", snap.Header.RunID)
	}
	history := make([]actions.ID, 0, len(snap.History))
	for _, name := range snap.History {
		id, err := sim.Catalog().Parse(name)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.Header.RunID, err)
		}
		history = append(history, id)
	}
	opts.RunID = snap.Header.RunID
	opts.Seed = snap.Seed
	if opts.RecipeID == "" {
		opts.RecipeID = snap.RecipeID
	}
	if opts.CharacterID == "" {
		opts.CharacterID = snap.CharacterID
	}
	if opts.RecipesDigest == "" {
		opts.RecipesDigest = snap.RecipesDigest
	}
	if opts.CharactersDigest == "" {
		opts.CharactersDigest = snap.CharactersDigest
	}
	return &Session{
		opts:    opts,
		sim:     sim,
		src:     rng.Restore(snap.RNGState),
		state:   st,
		history: history,
		done:    st.Status().Terminal(),
	}, nil
}

func (s *Session) AddLogger(l StepLogger) {
	if l != nil {
		s.loggers = append(s.loggers, l)
	}
}

func (s *Session) SetRunRecorder(r RunRecorder)                 { s.runs = r }
func (s *Session) SetSnapshotSink(ch chan<- snapshot.RunV1)     { s.snapshots = ch }
func (s *Session) RunID() string                                { return s.opts.RunID }
func (s *Session) Sim() *craft.Sim                              { return s.sim }
func (s *Session) State() craft.State                           { return s.state }
func (s *Session) Done() bool                                   { return s.done }
func (s *Session) Legal() []actions.ID                          { return s.sim.Legal(s.state) }
func (s *Session) Preview(id actions.ID) (craft.Preview, error) { return s.sim.Preview(s.state, id) }

func (s *Session) History() []actions.ID {
	out := make([]actions.ID, len(s.history))
	copy(out, s.history)
	return out
}

// ActName parses a wire or display name and resolves it.
func (s *Session) ActName(name string) (craft.Outcome, error) {
	id, err := s.sim.Catalog().Parse(name)
	if err != nil {
		return craft.Outcome{}, err
	}
	return s.Act(id)
}

// Act resolves id against the current state. Illegal moves return the
// engine's error and leave the session untouched.
func (s *Session) Act(id actions.ID) (craft.Outcome, error) {
	if s.done {
		return craft.Outcome{}, ErrFinished
	}
	if s.opts.MaxSteps > 0 && s.state.Step() >= s.opts.MaxSteps {
		return craft.Outcome{}, ErrStepLimit
	}
	prev := s.state
	next, out, err := s.sim.Step(prev, id, s.src)
	if err != nil {
		return out, err
	}
	s.state = next
	s.history = append(s.history, id)

	entry := StepLogEntry{
		RunID:         s.opts.RunID,
		Step:          prev.Step(),
		Action:        id.String(),
		Condition:     prev.Condition().String(),
		Success:       out.Success,
		ProgressGain:  out.ProgressGain,
		QualityGain:   out.QualityGain,
		Progress:      next.Progress(),
		Quality:       next.Quality(),
		Durability:    next.Durability(),
		CP:            next.CP(),
		NextCondition: next.Condition().String(),
		Status:        next.Status().String(),
		Digest:        next.Digest(),
	}
	for _, l := range s.loggers {
		_ = l.WriteStep(entry)
	}

	if n := s.opts.SnapshotEvery; n > 0 && next.Step()%n == 0 {
		s.Checkpoint()
	}
	if next.Status().Terminal() {
		s.finish()
	}
	return out, nil
}

// Close ends the session. A craft abandoned mid-way is recorded with its
// in-progress status.
func (s *Session) Close() {
	if !s.done {
		s.finish()
	}
}

func (s *Session) finish() {
	s.done = true
	if s.runs == nil {
		return
	}
	s.runs.RecordRun(RunRecord{
		RunID:       s.opts.RunID,
		RecipeID:    s.opts.RecipeID,
		CharacterID: s.opts.CharacterID,
		Seed:        s.opts.Seed,
		Status:      s.state.Status().String(),
		Steps:       s.state.Step(),
		Progress:    s.state.Progress(),
		Quality:     s.state.Quality(),
		HQChance:    s.sim.HQChance(s.state),
		Digest:      s.state.Digest(),
		EndedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Checkpoint hands a snapshot of the current step to the snapshot sink.
func (s *Session) Checkpoint() {
	if s.snapshots == nil {
		return
	}
	// Drop when the writer falls behind.
	select {
	case s.snapshots <- s.Snapshot():
	default:
	}
}

// Snapshot captures the session so it can be resumed or replayed from here.
func (s *Session) Snapshot() snapshot.RunV1 {
	history := make([]string, len(s.history))
	for i, id := range s.history {
		history[i] = id.String()
	}
	return snapshot.RunV1{
		Header:      snapshot.Header{Version: snapshot.Version, RunID: s.opts.RunID, Step: s.state.Step()},
		Seed:        s.opts.Seed,
		RNGState:    s.src.State(),
		RecipeID:    s.opts.RecipeID,
		CharacterID: s.opts.CharacterID,
		Config:      s.sim.Config(),

		RecipesDigest:    s.opts.RecipesDigest,
		CharactersDigest: s.opts.CharactersDigest,

		State:   s.state.Record(),
		Digest:  s.state.Digest(),
		History: history,
	}
}
