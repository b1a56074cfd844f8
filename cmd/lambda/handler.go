package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"craftsim.ai/internal/config"
	"craftsim.ai/internal/rollout"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/tuning"
)

const maxRuns = 20000

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type lambdaEnv struct {
	ConfigDir string `env:"CRAFTSIM_CONFIGS" envDefault:"./configs"`
}

type evaluateRequest struct {
	RecipeID    string `json:"recipe_id"`
	CharacterID string `json:"character_id"`

	// Inline definitions take precedence over the catalog ids.
	Recipe    *catalogs.RecipeDef    `json:"recipe,omitempty"`
	Character *catalogs.CharacterDef `json:"character,omitempty"`

	Macro    string `json:"macro"`
	Policy   string `json:"policy"`
	Runs     int    `json:"runs"`
	Seed     int64  `json:"seed"`
	MaxSteps int    `json:"max_steps"`
}

type evaluateResult struct {
	RecipeID    string          `json:"recipe_id,omitempty"`
	CharacterID string          `json:"character_id,omitempty"`
	Summary     rollout.Summary `json:"summary"`
	TimeMs      int64           `json:"timeMs"`
}

type deps struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
}

var (
	depsOnce sync.Once
	depsVal  deps
	depsErr  error
)

func loadDeps() (deps, error) {
	depsOnce.Do(func() {
		var env lambdaEnv
		if err := config.ParseEnv(&env); err != nil {
			depsErr = err
			return
		}
		cats, err := catalogs.Load(env.ConfigDir)
		if err != nil {
			depsErr = err
			return
		}
		tune, err := tuning.Load(filepath.Join(env.ConfigDir, "tuning.yaml"))
		if err != nil {
			depsErr = err
			return
		}
		depsVal = deps{cats: cats, tune: tune}
	})
	return depsVal, depsErr
}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	d, err := loadDeps()
	if err != nil {
		return errResp(500, "load configs: "+err.Error())
	}
	return evaluate(ctx, d, event)
}

func evaluate(ctx context.Context, d deps, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req evaluateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	if req.Runs <= 0 {
		req.Runs = d.tune.Rollout.Runs
	}
	if req.Runs > maxRuns {
		return errResp(400, fmt.Sprintf("runs must be at most %d", maxRuns))
	}

	cfg, err := requestConfig(d, req)
	if err != nil {
		if errors.Is(err, catalogs.ErrUnknownRecipe) || errors.Is(err, catalogs.ErrUnknownCharacter) {
			return errResp(404, err.Error())
		}
		return errResp(400, err.Error())
	}
	sim, err := craft.New(cfg)
	if err != nil {
		return errResp(400, err.Error())
	}

	var p rollout.Policy
	switch req.Policy {
	case "random":
		p = rollout.Random{}
	case "", "sequence":
		if req.Macro == "" {
			return errResp(400, "missing macro")
		}
		seq, err := rollout.ParseMacro(sim.Catalog(), req.Macro)
		if err != nil {
			return errResp(400, "macro: "+err.Error())
		}
		p = seq
	default:
		return errResp(400, fmt.Sprintf("unknown policy %q", req.Policy))
	}

	seed := req.Seed
	if seed == 0 {
		seed = d.tune.Rollout.Seed
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = d.tune.Rollout.MaxSteps
	}

	start := time.Now()
	sum, _, err := rollout.Run(ctx, sim, p, rollout.Options{
		Runs:     req.Runs,
		Workers:  d.tune.Rollout.Workers,
		MaxSteps: maxSteps,
		Seed:     seed,
	})
	if err != nil {
		return errResp(500, err.Error())
	}

	resp := evaluateResult{
		RecipeID:    req.RecipeID,
		CharacterID: req.CharacterID,
		Summary:     sum,
		TimeMs:      time.Since(start).Milliseconds(),
	}
	respJSON, _ := json.Marshal(resp)
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func requestConfig(d deps, req evaluateRequest) (craft.Config, error) {
	stacking, err := d.tune.StackingMode()
	if err != nil {
		return craft.Config{}, err
	}
	cfg := craft.Config{Stacking: stacking}

	switch {
	case req.Recipe != nil:
		r, err := req.Recipe.Recipe()
		if err != nil {
			return cfg, err
		}
		cfg.Recipe = r
	case req.RecipeID != "":
		rd, ok := d.cats.Recipes.ByID[req.RecipeID]
		if !ok {
			return cfg, fmt.Errorf("%w: %q", catalogs.ErrUnknownRecipe, req.RecipeID)
		}
		r, err := rd.Recipe()
		if err != nil {
			return cfg, err
		}
		cfg.Recipe = r
	default:
		return cfg, errors.New("missing recipe_id or recipe")
	}

	switch {
	case req.Character != nil:
		cfg.Character = req.Character.Character()
	case req.CharacterID != "":
		cd, ok := d.cats.Characters.ByID[req.CharacterID]
		if !ok {
			return cfg, fmt.Errorf("%w: %q", catalogs.ErrUnknownCharacter, req.CharacterID)
		}
		cfg.Character = cd.Character()
	default:
		return cfg, errors.New("missing character_id or character")
	}
	return cfg, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}
