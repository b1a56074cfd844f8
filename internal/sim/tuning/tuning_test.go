package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"craftsim.ai/internal/sim/craft"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("got %+v want defaults", got)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "stacking: multiplicative\nrollout:\n  workers: 3\n  max_steps: 40\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Rollout.Workers != 3 || got.Rollout.MaxSteps != 40 {
		t.Fatalf("rollout=%+v", got.Rollout)
	}
	// Untouched keys keep their defaults.
	if got.Rollout.Runs != 1000 || got.Session.MaxQueue != 8 {
		t.Fatalf("defaults lost: %+v", got)
	}
	if m, _ := got.StackingMode(); m != craft.StackingMultiplicative {
		t.Fatalf("stacking=%s", m)
	}
}

func TestLoad_RejectsBadStacking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("stacking: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_RepoTuning(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ProtocolVersion == "" {
		t.Fatalf("missing protocol_version")
	}
}

func TestDigest(t *testing.T) {
	a, b := Defaults(), Defaults()
	if a.Digest() != b.Digest() || len(a.Digest()) != 64 {
		t.Fatalf("digest not stable: %s %s", a.Digest(), b.Digest())
	}
	b.Stacking = "multiplicative"
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignores stacking")
	}
}
