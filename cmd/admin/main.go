package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/craft"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the snapshot files under the data dir, optionally for one run.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (optional)")
	_ = fs.Parse(args)

	files, err := listSnapshots(*dataDir, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f.Path))
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (uses its latest snapshot)")
	snapPath := fs.String("path", "", "snapshot path (optional; overrides -run)")
	verify := fs.Bool("verify", false, "restore the state and check its digest")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -path")
			os.Exit(2)
		}
		path = latestSnapshot(*dataDir, *runID)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found for run", *runID)
		os.Exit(2)
	}

	info, err := inspectSnapshot(path, *verify)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	printJSON(info)
}

type snapshotInfo struct {
	Path        string   `json:"path"`
	RunID       string   `json:"run_id"`
	Step        int      `json:"step"`
	Seed        int64    `json:"seed"`
	RecipeID    string   `json:"recipe_id,omitempty"`
	CharacterID string   `json:"character_id,omitempty"`
	Mode        string   `json:"mode"`
	Stacking    string   `json:"stacking"`
	Progress    int      `json:"progress"`
	Quality     int      `json:"quality"`
	Durability  int      `json:"durability"`
	CP          int      `json:"cp"`
	Condition   string   `json:"condition"`
	Status      string   `json:"status"`
	Digest      string   `json:"digest"`
	Verified    bool     `json:"verified,omitempty"`
	History     []string `json:"history,omitempty"`
}

func inspectSnapshot(path string, verify bool) (snapshotInfo, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return snapshotInfo{}, err
	}
	sim, err := craft.New(snap.Config)
	if err != nil {
		return snapshotInfo{}, fmt.Errorf("config: %w", err)
	}
	st, err := sim.Restore(snap.State)
	if err != nil {
		return snapshotInfo{}, fmt.Errorf("restore: %w", err)
	}
	info := snapshotInfo{
		Path:        path,
		RunID:       snap.Header.RunID,
		Step:        snap.Header.Step,
		Seed:        snap.Seed,
		RecipeID:    snap.RecipeID,
		CharacterID: snap.CharacterID,
		Mode:        snap.Config.Recipe.Mode.String(),
		Stacking:    snap.Config.Stacking.String(),
		Progress:    st.Progress(),
		Quality:     st.Quality(),
		Durability:  st.Durability(),
		CP:          st.CP(),
		Condition:   st.Condition().String(),
		Status:      st.Status().String(),
		Digest:      snap.Digest,
		History:     snap.History,
	}
	if verify {
		if d := st.Digest(); d != snap.Digest {
			return info, fmt.Errorf("digest mismatch: restored %s, snapshot %s", d, snap.Digest)
		}
		info.Verified = true
	}
	return info, nil
}

type snapshotFile struct {
	Path  string
	RunID string
	Step  int
}

// listSnapshots parses <run>-<step>.snap.zst names under dataDir/snapshots.
func listSnapshots(dataDir, runID string) ([]snapshotFile, error) {
	dir := filepath.Join(dataDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []snapshotFile
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		i := strings.LastIndexByte(base, '-')
		if i <= 0 {
			continue
		}
		step, err := strconv.Atoi(base[i+1:])
		if err != nil {
			continue
		}
		if runID != "" && base[:i] != runID {
			continue
		}
		out = append(out, snapshotFile{Path: filepath.Join(dir, name), RunID: base[:i], Step: step})
	}
	return out, nil
}

func latestSnapshot(dataDir, runID string) string {
	files, err := listSnapshots(dataDir, runID)
	if err != nil {
		return ""
	}
	var best string
	bestStep := -1
	for _, f := range files {
		if f.Step > bestStep {
			bestStep = f.Step
			best = f.Path
		}
	}
	return best
}
