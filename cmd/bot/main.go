package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"craftsim.ai/internal/config"
	"craftsim.ai/internal/protocol"
	"craftsim.ai/internal/rollout"
	"craftsim.ai/internal/sim/actions"
)

type botEnv struct {
	URL         string `env:"CRAFTSIM_BOT_URL"       envDefault:"ws://localhost:8080/v1/ws"`
	Name        string `env:"CRAFTSIM_BOT_NAME"      envDefault:"bot"`
	RecipeID    string `env:"CRAFTSIM_BOT_RECIPE"    envDefault:"practice_ingot"`
	CharacterID string `env:"CRAFTSIM_BOT_CHARACTER" envDefault:"crafter_90"`
}

type botConfig struct {
	Name        string
	RecipeID    string
	CharacterID string
	Seed        *int64

	// Macro is played in order when set; otherwise the bot picks uniformly
	// among the legal actions of each observation.
	Macro rollout.Sequence
	Rand  *rand.Rand
}

func main() {
	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var envCfg botEnv
	if err := config.ParseEnv(&envCfg); err != nil {
		logger.Fatalf("%v", err)
	}
	var (
		url       = flag.String("url", envCfg.URL, "ws url")
		name      = flag.String("name", envCfg.Name, "client name")
		recipe    = flag.String("recipe", envCfg.RecipeID, "recipe id")
		character = flag.String("character", envCfg.CharacterID, "character id")
		seed      = flag.Int64("seed", -1, "craft seed (negative lets the server pick)")
		macro     = flag.String("macro", "", "comma separated actions, or @path to a macro file (default: random legal actions)")
	)
	flag.Parse()

	cfg := botConfig{
		Name:        *name,
		RecipeID:    *recipe,
		CharacterID: *character,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if *seed >= 0 {
		cfg.Seed = seed
	}
	if m := strings.TrimSpace(*macro); m != "" {
		text := m
		if strings.HasPrefix(m, "@") {
			b, err := os.ReadFile(strings.TrimPrefix(m, "@"))
			if err != nil {
				logger.Fatalf("read macro: %v", err)
			}
			text = string(b)
		}
		seq, err := rollout.ParseMacro(actions.Default(), text)
		if err != nil {
			logger.Fatalf("parse macro: %v", err)
		}
		cfg.Macro = seq
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	final, err := play(conn, cfg, logger)
	if err != nil {
		logger.Fatalf("play: %v", err)
	}
	logger.Printf("done run=%s step=%d status=%s progress=%d quality=%d hq=%d%%",
		final.RunID, final.Step, final.Status, final.Progress, final.Quality, final.HQChance)
}

// play runs one craft over conn and returns the last observation.
func play(conn *websocket.Conn, cfg botConfig, logger *log.Logger) (protocol.ObsMsg, error) {
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      cfg.Name,
		RecipeID:        cfg.RecipeID,
		CharacterID:     cfg.CharacterID,
		Seed:            cfg.Seed,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return protocol.ObsMsg{}, fmt.Errorf("send HELLO: %w", err)
	}

	var last protocol.ObsMsg
	turn := 0
	next := func() (string, bool) {
		if cfg.Macro != nil {
			if turn >= len(cfg.Macro) {
				return "", false
			}
			id := cfg.Macro[turn]
			turn++
			return id.String(), true
		}
		if len(last.Legal) == 0 {
			return "", false
		}
		return last.Legal[cfg.Rand.Intn(len(last.Legal))], true
	}
	act := func() (bool, error) {
		name, ok := next()
		if !ok {
			return false, nil
		}
		return true, conn.WriteJSON(protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			Step:            last.Step,
			Action:          name,
		})
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return last, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME run_id=%s recipe=%s mode=%s seed=%d", w.RunID, w.Recipe.ID, w.Recipe.Mode, w.Seed)

		case protocol.TypeObs:
			if err := json.Unmarshal(msg, &last); err != nil {
				return last, err
			}
			if last.Status != "IN_PROGRESS" {
				return last, nil
			}
			more, err := act()
			if err != nil {
				return last, err
			}
			if !more {
				return last, nil
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
			switch e.Code {
			case protocol.ErrInvalidAction, protocol.ErrNoResource:
				// A macro step that is not usable now is skipped.
				more, err := act()
				if err != nil {
					return last, err
				}
				if !more {
					return last, nil
				}
			case protocol.ErrStepLimit, protocol.ErrTerminal:
				return last, nil
			default:
				return last, errors.New(e.Code + ": " + e.Message)
			}
		}
	}
}
