package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"craftsim.ai/internal/config"
	persistlog "craftsim.ai/internal/persistence/log"
	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/protocol"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/session"
	"craftsim.ai/internal/sim/tuning"
	"craftsim.ai/internal/transport/ws"
)

// serverEnv supplies flag defaults; flags still win when given.
type serverEnv struct {
	Addr            string `env:"CRAFTSIM_ADDR"              envDefault:":8080"`
	ConfigDir       string `env:"CRAFTSIM_CONFIGS"           envDefault:"./configs"`
	DataDir         string `env:"CRAFTSIM_DATA"              envDefault:"./data"`
	TuningPath      string `env:"CRAFTSIM_TUNING"`
	IndexBackend    string `env:"CRAFTSIM_INDEX_BACKEND"     envDefault:"sqlite"`
	EnableAdminHTTP bool   `env:"CRAFTSIM_ENABLE_ADMIN_HTTP" envDefault:"true"`
	EnablePprofHTTP bool   `env:"CRAFTSIM_ENABLE_PPROF_HTTP" envDefault:"false"`
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	var envCfg serverEnv
	if err := config.ParseEnv(&envCfg); err != nil {
		logger.Fatalf("%v", err)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address")
		configDir  = flag.String("configs", envCfg.ConfigDir, "config directory")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the run index (step logs are still written)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if tune.ProtocolVersion != protocol.Version {
		logger.Printf("tuning protocol_version=%s; server speaks %s", tune.ProtocolVersion, protocol.Version)
	}
	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(*dataDir, envCfg.IndexBackend, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	stepLog := persistlog.NewStepLogger(*dataDir)
	runLog := persistlog.NewRunLogger(*dataDir)
	defer stepLog.Close()
	defer runLog.Close()

	loggers := []session.StepLogger{stepLog}
	runs := multiRunRecorder{runLog}
	if idx != nil {
		loggers = append(loggers, idx)
		runs = append(runs, idx)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.RunV1, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshotPath(*dataDir, snap.Header)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	wsSrv, err := ws.NewServer(ws.Config{
		Catalogs:     cats,
		Tuning:       tune,
		TuningDigest: tune.Digest(),
		Loggers:      loggers,
		Runs:         runs,
		Snapshots:    snapCh,
	}, logger)
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(wsSrv, idx))
	if envCfg.EnableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", stateHandler(wsSrv, idx, cats, tune))
	} else {
		logger.Printf("admin endpoints disabled (CRAFTSIM_ENABLE_ADMIN_HTTP=false)")
	}
	if envCfg.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s recipes=%d characters=%d stacking=%s", *addr, len(cats.Recipes.ByID), len(cats.Characters.ByID), tune.Stacking)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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

func snapshotPath(dataDir string, h snapshot.Header) string {
	return filepath.Join(dataDir, "snapshots", fmt.Sprintf("%s-%d.snap.zst", h.RunID, h.Step))
}

type multiRunRecorder []session.RunRecorder

func (m multiRunRecorder) RecordRun(run session.RunRecord) {
	for _, r := range m {
		if r != nil {
			r.RecordRun(run)
		}
	}
}
