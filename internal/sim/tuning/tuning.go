package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"craftsim.ai/internal/sim/craft"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	// Stacking is "additive" or "multiplicative"; see craft.Stacking.
	Stacking string `yaml:"stacking" json:"stacking"`

	Rollout Rollout `yaml:"rollout" json:"rollout"`
	Session Session `yaml:"session" json:"session"`
}

type Rollout struct {
	Workers  int   `yaml:"workers" json:"workers"` // 0 = GOMAXPROCS
	Runs     int   `yaml:"runs" json:"runs"`
	MaxSteps int   `yaml:"max_steps" json:"max_steps"`
	Seed     int64 `yaml:"seed" json:"seed"`
}

type Session struct {
	MaxSteps       int `yaml:"max_steps" json:"max_steps"`
	MaxQueue       int `yaml:"max_queue" json:"max_queue"`
	IdleTimeoutSec int `yaml:"idle_timeout_sec" json:"idle_timeout_sec"`
	SnapshotEvery  int `yaml:"snapshot_every_steps" json:"snapshot_every_steps"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Stacking:        "additive",
		Rollout: Rollout{
			Runs:     1000,
			MaxSteps: 60,
			Seed:     1,
		},
		Session: Session{
			MaxSteps:       100,
			MaxQueue:       8,
			IdleTimeoutSec: 60,
		},
	}
}

// Load reads a tuning file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if _, err := t.StackingMode(); err != nil {
		return err
	}
	switch {
	case t.Rollout.Workers < 0:
		return fmt.Errorf("rollout.workers must be >= 0")
	case t.Rollout.MaxSteps <= 0:
		return fmt.Errorf("rollout.max_steps must be > 0")
	case t.Session.MaxSteps <= 0:
		return fmt.Errorf("session.max_steps must be > 0")
	case t.Session.MaxQueue <= 0:
		return fmt.Errorf("session.max_queue must be > 0")
	}
	return nil
}

func (t Tuning) StackingMode() (craft.Stacking, error) {
	return craft.ParseStacking(t.Stacking)
}

// Digest hashes the canonical JSON form of the effective values.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
