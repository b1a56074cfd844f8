package main

import (
	"io"
	"log"
	"math/rand"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"craftsim.ai/internal/rollout"
	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/tuning"
	"craftsim.ai/internal/transport/ws"
)

func dialServer(t *testing.T) *websocket.Conn {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	srv, err := ws.NewServer(ws.Config{Catalogs: cats, Tuning: tuning.Defaults()}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPlay_Macro(t *testing.T) {
	conn := dialServer(t)
	seed := int64(4)
	macro := rollout.Sequence{actions.ByregotsBlessing, actions.BasicSynthesis, actions.BasicSynthesis, actions.BasicSynthesis}
	final, err := play(conn, botConfig{Name: "t", RecipeID: "practice_ingot", CharacterID: "crafter_90", Seed: &seed, Macro: macro}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if final.Status != "COMPLETED" || final.Step != 3 || final.Progress != 1000 {
		t.Fatalf("final=%+v", final)
	}
}

func TestPlay_RandomEndsTheCraft(t *testing.T) {
	conn := dialServer(t)
	seed := int64(8)
	final, err := play(conn, botConfig{Name: "t", RecipeID: "practice_ingot", CharacterID: "crafter_90", Seed: &seed, Rand: rand.New(rand.NewSource(1))}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if final.Status == "IN_PROGRESS" && final.Step < 100 {
		t.Fatalf("random play stopped early: %+v", final)
	}
}
