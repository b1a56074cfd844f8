package indexdb

import (
	"context"
	"database/sql"
	"fmt"
)

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	RecipeID string
	Status   string
	Limit    int
}

// OpenSQLiteReadOnly opens an existing index for queries without starting
// the writer.
func OpenSQLiteReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

func ListRuns(ctx context.Context, db *sql.DB, f RunFilter) ([]RunRow, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, recipe_id, character_id, seed, status, steps, progress, quality, hq_chance, digest, ended_at
		FROM runs
		WHERE (? = '' OR recipe_id = ?) AND (? = '' OR status = ?)
		ORDER BY ended_at DESC, run_id
		LIMIT ?`,
		f.RecipeID, f.RecipeID, f.Status, f.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.RecipeID, &r.CharacterID, &r.Seed, &r.Status, &r.Steps,
			&r.Progress, &r.Quality, &r.HQChance, &r.Digest, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func ListSteps(ctx context.Context, db *sql.DB, runID string) ([]StepRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT step, action, condition, success, progress, quality, durability, cp, status, digest
		FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StepRow
	for rows.Next() {
		var r StepRow
		if err := rows.Scan(&r.Step, &r.Action, &r.Condition, &r.Success, &r.Progress, &r.Quality,
			&r.Durability, &r.CP, &r.Status, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusCounts groups finished runs by status, optionally for one recipe.
func StatusCounts(ctx context.Context, db *sql.DB, recipeID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM runs
		WHERE (? = '' OR recipe_id = ?)
		GROUP BY status`, recipeID, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ListSnapshots returns snapshot files in step order, optionally for one run.
func ListSnapshots(ctx context.Context, db *sql.DB, runID string) ([]SnapshotRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, step, path, seed, digest FROM snapshots
		WHERE (? = '' OR run_id = ?)
		ORDER BY run_id, step`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.RunID, &r.Step, &r.Path, &r.Seed, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type RunRow struct {
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

type StepRow struct {
	Step       int    `json:"step"`
	Action     string `json:"action"`
	Condition  string `json:"condition"`
	Success    bool   `json:"success"`
	Progress   int    `json:"progress"`
	Quality    int    `json:"quality"`
	Durability int    `json:"durability"`
	CP         int    `json:"cp"`
	Status     string `json:"status"`
	Digest     string `json:"digest"`
}

type SnapshotRow struct {
	RunID  string `json:"run_id"`
	Step   int    `json:"step"`
	Path   string `json:"path"`
	Seed   int64  `json:"seed"`
	Digest string `json:"digest"`
}
