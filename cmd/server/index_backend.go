package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"craftsim.ai/internal/persistence/indexdb"
	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/session"
	"craftsim.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	session.StepLogger
	session.RunRecorder
	Close() error
	Stats() indexdb.Stats
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.RunV1)
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "craft.sqlite")
}

func openRuntimeIndex(dataDir, backend string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath(dataDir))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported CRAFTSIM_INDEX_BACKEND: %s", backend)
	}
}
