package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"craftsim.ai/internal/persistence/indexdb"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/tuning"
	"craftsim.ai/internal/transport/ws"
)

type sessionCounter interface {
	Active() int
}

func metricsHandler(srv sessionCounter, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP craftsim_sessions_active Open websocket craft sessions.\n")
		fmt.Fprintf(rw, "# TYPE craftsim_sessions_active gauge\n")
		fmt.Fprintf(rw, "craftsim_sessions_active %d\n", srv.Active())

		if idx == nil {
			return
		}
		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP craftsim_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE craftsim_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "craftsim_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "craftsim_index_queue_capacity %d\n", st.QueueCapacity)

		fmt.Fprintf(rw, "# HELP craftsim_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE craftsim_index_dropped_total counter\n")
		fmt.Fprintf(rw, "craftsim_index_dropped_total{kind=%q} %d\n", "step", st.DropStepTotal)
		fmt.Fprintf(rw, "craftsim_index_dropped_total{kind=%q} %d\n", "run", st.DropRunTotal)
		fmt.Fprintf(rw, "craftsim_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
	}
}

func stateHandler(srv *ws.Server, idx runtimeIndex, cats *catalogs.Catalogs, tune tuning.Tuning) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			Sessions         int            `json:"sessions"`
			Recipes          []string       `json:"recipes"`
			Characters       []string       `json:"characters"`
			RecipesDigest    string         `json:"recipes_digest"`
			CharactersDigest string         `json:"characters_digest"`
			Tuning           tuning.Tuning  `json:"tuning"`
			TuningDigest     string         `json:"tuning_digest"`
			Index            *indexdb.Stats `json:"index,omitempty"`
		}{
			Sessions:         srv.Active(),
			Recipes:          cats.RecipeIDs(),
			Characters:       cats.CharacterIDs(),
			RecipesDigest:    cats.Recipes.Digest,
			CharactersDigest: cats.Characters.Digest,
			Tuning:           tune,
			TuningDigest:     tune.Digest(),
		}
		if idx != nil {
			st := idx.Stats()
			resp.Index = &st
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
