package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "craftsim.ai/internal/persistence/log"
	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/session"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		dataDir   = flag.String("data", "./data", "data dir containing events/steps-*.jsonl.zst")
		configDir = flag.String("configs", "", "config directory to compare catalog digests against (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot run=%s step=%d recipe=%s character=%s seed=%d\n",
		snap.Header.RunID, snap.Header.Step, snap.RecipeID, snap.CharacterID, snap.Seed)

	if *configDir != "" {
		cats, err := catalogs.Load(*configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		for _, w := range digestWarnings(snap, cats) {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	entries, err := persistlog.ReadSteps(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read steps:", err)
		os.Exit(1)
	}

	st, n, err := replay(snap, entries)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d steps final_step=%d status=%s progress=%d quality=%d\n",
		n, st.Step(), st.Status(), st.Progress(), st.Quality())
}

func replay(snap snapshot.RunV1, entries []session.StepLogEntry) (craft.State, int, error) {
	sim, err := craft.New(snap.Config)
	if err != nil {
		return craft.State{}, 0, fmt.Errorf("snapshot config: %w", err)
	}
	return session.Replay(sim, snap, entries)
}

// digestWarnings reports catalogs that changed since the snapshot was taken.
// The replay itself only depends on the config embedded in the snapshot.
func digestWarnings(snap snapshot.RunV1, cats *catalogs.Catalogs) []string {
	var out []string
	if snap.RecipesDigest != "" && snap.RecipesDigest != cats.Recipes.Digest {
		out = append(out, fmt.Sprintf("recipes.json digest %s differs from snapshot %s", cats.Recipes.Digest, snap.RecipesDigest))
	}
	if snap.CharactersDigest != "" && snap.CharactersDigest != cats.Characters.Digest {
		out = append(out, fmt.Sprintf("characters.json digest %s differs from snapshot %s", cats.Characters.Digest, snap.CharactersDigest))
	}
	return out
}
