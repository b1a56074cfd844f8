package indexdb

import (
	"testing"

	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/session"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqStep, step: session.StepLogEntry{RunID: "r", Step: 0}}

	_ = s.WriteStep(session.StepLogEntry{RunID: "r", Step: 1})
	s.RecordRun(session.RunRecord{RunID: "r"})
	s.RecordSnapshot("/tmp/r-1.snap.zst", snapshot.RunV1{})

	st := s.Stats()
	if st.DropStepTotal != 1 {
		t.Fatalf("DropStepTotal=%d want=1", st.DropStepTotal)
	}
	if st.DropRunTotal != 1 {
		t.Fatalf("DropRunTotal=%d want=1", st.DropRunTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteStep(session.StepLogEntry{}); err != nil {
		t.Fatalf("WriteStep on nil: %v", err)
	}
	s.RecordRun(session.RunRecord{})
	if st := s.Stats(); st != (Stats{}) {
		t.Fatalf("nil stats=%+v", st)
	}
}
