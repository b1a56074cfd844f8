package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"craftsim.ai/internal/persistence/indexdb"
	"craftsim.ai/internal/rollout"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/tuning"
)

type options struct {
	ConfigDir   string
	TuningPath  string
	RecipeID    string
	CharacterID string
	Macro       string
	Policy      string
	Runs        int
	Workers     int
	MaxSteps    int
	Seed        int64
	IndexPath   string
	JSON        bool
}

func main() {
	logger := log.New(os.Stderr, "[rollout] ", log.LstdFlags|log.Lmicroseconds)

	var o options
	flag.StringVar(&o.ConfigDir, "configs", "./configs", "config directory")
	flag.StringVar(&o.TuningPath, "tuning", "", "tuning.yaml path (default: <configs>/tuning.yaml)")
	flag.StringVar(&o.RecipeID, "recipe", "practice_ingot", "recipe id")
	flag.StringVar(&o.CharacterID, "character", "crafter_90", "character id")
	flag.StringVar(&o.Macro, "macro", "", "comma separated actions, or @path to a macro file")
	flag.StringVar(&o.Policy, "policy", "", "sequence|random (default: sequence when -macro is set)")
	flag.IntVar(&o.Runs, "runs", 0, "number of runs (default from tuning)")
	flag.IntVar(&o.Workers, "workers", -1, "worker goroutines (default from tuning, 0 = GOMAXPROCS)")
	flag.IntVar(&o.MaxSteps, "max_steps", 0, "per-run step limit (default from tuning)")
	flag.Int64Var(&o.Seed, "seed", 0, "base seed (default from tuning)")
	flag.StringVar(&o.IndexPath, "index", "", "sqlite index to record runs into (optional)")
	flag.BoolVar(&o.JSON, "json", false, "print the summary as JSON")
	flag.Parse()

	ctx, stop := signalContext()
	defer stop()

	if err := run(ctx, o, os.Stdout, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, o options, stdout io.Writer, logger *log.Logger) error {
	cats, err := catalogs.Load(o.ConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	tunePath := o.TuningPath
	if tunePath == "" {
		tunePath = filepath.Join(o.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tunePath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	stacking, err := tune.StackingMode()
	if err != nil {
		return err
	}
	cfg, err := cats.Config(o.RecipeID, o.CharacterID, stacking)
	if err != nil {
		return err
	}
	sim, err := craft.New(cfg)
	if err != nil {
		return err
	}

	p, err := buildPolicy(sim, o)
	if err != nil {
		return err
	}

	ropts := rollout.Options{
		Runs:        tune.Rollout.Runs,
		Workers:     tune.Rollout.Workers,
		MaxSteps:    tune.Rollout.MaxSteps,
		Seed:        tune.Rollout.Seed,
		RunPrefix:   fmt.Sprintf("rollout_%d", time.Now().Unix()),
		RecipeID:    o.RecipeID,
		CharacterID: o.CharacterID,
	}
	if o.Runs > 0 {
		ropts.Runs = o.Runs
	}
	if o.Workers >= 0 {
		ropts.Workers = o.Workers
	}
	if o.MaxSteps > 0 {
		ropts.MaxSteps = o.MaxSteps
	}
	if o.Seed != 0 {
		ropts.Seed = o.Seed
	}

	if o.IndexPath != "" {
		idx, err := indexdb.OpenSQLite(o.IndexPath)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() {
			st := idx.Stats()
			if st.DropRunTotal > 0 {
				logger.Printf("index dropped %d run records", st.DropRunTotal)
			}
			_ = idx.Close()
		}()
		if err := idx.UpsertCatalogs(o.ConfigDir, cats, tune); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		ropts.Recorder = idx
	}

	start := time.Now()
	sum, _, err := rollout.Run(ctx, sim, p, ropts)
	if err != nil {
		return err
	}
	logger.Printf("%d runs in %s", sum.Runs, time.Since(start).Round(time.Millisecond))

	if o.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(stdout, o.RecipeID, o.CharacterID, sum)
	return nil
}

func buildPolicy(sim *craft.Sim, o options) (rollout.Policy, error) {
	policy := o.Policy
	if policy == "" {
		policy = "random"
		if o.Macro != "" {
			policy = "sequence"
		}
	}
	switch policy {
	case "random":
		return rollout.Random{}, nil
	case "sequence", "macro":
		if o.Macro == "" {
			return nil, errors.New("policy sequence needs -macro")
		}
		text := o.Macro
		if strings.HasPrefix(text, "@") {
			b, err := os.ReadFile(strings.TrimPrefix(text, "@"))
			if err != nil {
				return nil, fmt.Errorf("read macro: %w", err)
			}
			text = string(b)
		}
		return rollout.ParseMacro(sim.Catalog(), text)
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}

func printSummary(w io.Writer, recipeID, characterID string, s rollout.Summary) {
	fmt.Fprintf(w, "recipe=%s character=%s policy=%s runs=%d\n", recipeID, characterID, s.Policy, s.Runs)
	fmt.Fprintf(w, "completed=%d failed_durability=%d failed_no_progress=%d unfinished=%d success_rate=%.3f\n",
		s.Completed, s.FailedDurability, s.FailedNoProgress, s.Unfinished, s.SuccessRate)
	fmt.Fprintf(w, "quality mean=%.1f min=%d p10=%d p50=%d p90=%d max=%d maxed=%d\n",
		s.MeanQuality, s.MinQuality, s.P10Quality, s.P50Quality, s.P90Quality, s.MaxQuality, s.MaxedQuality)
	fmt.Fprintf(w, "hq_chance mean=%.1f%% steps mean=%.1f\n", s.MeanHQChance, s.MeanSteps)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
