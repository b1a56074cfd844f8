package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"craftsim.ai/internal/persistence/indexdb"
	"craftsim.ai/internal/rollout"
)

func testOptions(t *testing.T) options {
	t.Helper()
	return options{
		ConfigDir:   filepath.Join("..", "..", "configs"),
		RecipeID:    "practice_ingot",
		CharacterID: "crafter_90",
		Macro:       "basic_synthesis, basic_synthesis, basic_synthesis",
		Runs:        16,
		Workers:     4,
		Seed:        3,
	}
}

func TestRun_JSONSummary(t *testing.T) {
	o := testOptions(t)
	o.JSON = true
	var out bytes.Buffer
	if err := run(context.Background(), o, &out, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	var sum rollout.Summary
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if sum.Policy != "sequence" || sum.Runs != 16 || sum.Completed != 16 || sum.SuccessRate != 1 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestRun_TextAndIndex(t *testing.T) {
	o := testOptions(t)
	o.IndexPath = filepath.Join(t.TempDir(), "craft.sqlite")
	var out bytes.Buffer
	if err := run(context.Background(), o, &out, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "completed=16 ") {
		t.Fatalf("output:\n%s", out.String())
	}

	db, err := indexdb.OpenSQLiteReadOnly(o.IndexPath)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()
	counts, err := indexdb.StatusCounts(context.Background(), db, "practice_ingot")
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts["COMPLETED"] != 16 {
		t.Fatalf("counts=%v", counts)
	}
}

func TestBuildPolicy(t *testing.T) {
	o := testOptions(t)
	o.Policy = "sequence"
	o.Macro = ""
	if _, err := buildPolicy(nil, o); err == nil {
		t.Fatalf("sequence without macro accepted")
	}
	o.Policy = "greedy"
	if _, err := buildPolicy(nil, o); err == nil {
		t.Fatalf("unknown policy accepted")
	}
	o.Policy = ""
	p, err := buildPolicy(nil, o)
	if err != nil || p.Name() != "random" {
		t.Fatalf("default policy=%v err=%v", p, err)
	}
}
