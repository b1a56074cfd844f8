// Package rollout evaluates a policy over many independent seeded runs.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/rng"
	"craftsim.ai/internal/sim/session"
)

const defaultMaxSteps = 100

type Options struct {
	Runs     int
	Workers  int // 0 uses GOMAXPROCS
	MaxSteps int
	Seed     int64

	// RunPrefix names runs <prefix>-<index> in records.
	RunPrefix   string
	RecipeID    string
	CharacterID string
	// Recorder receives every finished run; it must be safe for concurrent use.
	Recorder session.RunRecorder
}

type Result struct {
	Index    int    `json:"index"`
	Seed     int64  `json:"seed"`
	Status   string `json:"status"`
	Steps    int    `json:"steps"`
	Progress int    `json:"progress"`
	Quality  int    `json:"quality"`
	HQChance int    `json:"hq_chance"`
	Rejected int    `json:"rejected,omitempty"`
}

type Summary struct {
	Policy string `json:"policy"`
	Runs   int    `json:"runs"`

	Completed        int `json:"completed"`
	FailedDurability int `json:"failed_durability"`
	FailedNoProgress int `json:"failed_no_progress"`
	Unfinished       int `json:"unfinished"`

	SuccessRate  float64 `json:"success_rate"`
	MaxedQuality int     `json:"maxed_quality"`
	MeanQuality  float64 `json:"mean_quality"`
	MinQuality   int     `json:"min_quality"`
	MaxQuality   int     `json:"max_quality"`
	P10Quality   int     `json:"p10_quality"`
	P50Quality   int     `json:"p50_quality"`
	P90Quality   int     `json:"p90_quality"`
	MeanHQChance float64 `json:"mean_hq_chance"`
	MeanSteps    float64 `json:"mean_steps"`
}

// Run plays opts.Runs independent crafts with p. Run i draws from its own
// stream seeded with rng.Derive(opts.Seed, i), so results do not depend on
// the number of workers. Quality statistics cover completed runs only.
func Run(ctx context.Context, sim *craft.Sim, p Policy, opts Options) (Summary, []Result, error) {
	if opts.Runs <= 0 {
		return Summary{}, nil, fmt.Errorf("rollout: runs must be positive, got %d", opts.Runs)
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.RunPrefix == "" {
		opts.RunPrefix = "rollout"
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > opts.Runs {
		workers = opts.Runs
	}

	results := make([]Result, opts.Runs)
	idxCh := make(chan int, opts.Runs)
	for i := 0; i < opts.Runs; i++ {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				if ctx.Err() != nil {
					return
				}
				results[i] = playOne(sim, p, opts, i)
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return Summary{}, nil, err
	}
	return Summarize(p.Name(), sim.MaxQuality(), results), results, nil
}

func playOne(sim *craft.Sim, p Policy, opts Options, i int) Result {
	seed := rng.Derive(opts.Seed, uint64(i))
	s := session.New(sim, session.Options{
		RunID:       fmt.Sprintf("%s-%d", opts.RunPrefix, i),
		RecipeID:    opts.RecipeID,
		CharacterID: opts.CharacterID,
		Seed:        seed,
		MaxSteps:    opts.MaxSteps,
	})
	if opts.Recorder != nil {
		s.SetRunRecorder(opts.Recorder)
	}
	// The policy draws from its own stream so the craft stream is the same
	// whatever the policy does with it.
	policySrc := rng.New(rng.Derive(seed, 1))

	res := Result{Index: i, Seed: seed}
	maxTurns := 4 * opts.MaxSteps
	for turn := 0; turn < maxTurns && !s.Done(); turn++ {
		id, ok := p.Choose(sim, s.State(), turn, policySrc)
		if !ok {
			break
		}
		if _, err := s.Act(id); err != nil {
			if errors.Is(err, session.ErrStepLimit) {
				break
			}
			res.Rejected++
		}
	}
	s.Close()

	st := s.State()
	res.Status = st.Status().String()
	res.Steps = st.Step()
	res.Progress = st.Progress()
	res.Quality = st.Quality()
	res.HQChance = sim.HQChance(st)
	return res
}

// Summarize aggregates per-run results.
func Summarize(policy string, maxQuality int, results []Result) Summary {
	sum := Summary{Policy: policy, Runs: len(results)}
	if len(results) == 0 {
		return sum
	}

	var qualities []int
	var totalSteps, totalHQ int
	for _, r := range results {
		totalSteps += r.Steps
		switch r.Status {
		case craft.Completed.String():
			sum.Completed++
			qualities = append(qualities, r.Quality)
			totalHQ += r.HQChance
			if r.Quality >= maxQuality {
				sum.MaxedQuality++
			}
		case craft.FailedDurability.String():
			sum.FailedDurability++
		case craft.FailedNoProgress.String():
			sum.FailedNoProgress++
		default:
			sum.Unfinished++
		}
	}
	sum.SuccessRate = float64(sum.Completed) / float64(sum.Runs)
	sum.MeanSteps = float64(totalSteps) / float64(sum.Runs)
	if len(qualities) == 0 {
		return sum
	}

	sort.Ints(qualities)
	total := 0
	for _, q := range qualities {
		total += q
	}
	sum.MeanQuality = float64(total) / float64(len(qualities))
	sum.MeanHQChance = float64(totalHQ) / float64(len(qualities))
	sum.MinQuality = qualities[0]
	sum.MaxQuality = qualities[len(qualities)-1]
	sum.P10Quality = percentile(qualities, 10)
	sum.P50Quality = percentile(qualities, 50)
	sum.P90Quality = percentile(qualities, 90)
	return sum
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []int, p int) int {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
