package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"craftsim.ai/internal/persistence/snapshot"
	"craftsim.ai/internal/protocol"
	"craftsim.ai/internal/sim/actions"
	"craftsim.ai/internal/sim/catalogs"
	"craftsim.ai/internal/sim/craft"
	"craftsim.ai/internal/sim/session"
	"craftsim.ai/internal/sim/tuning"
)

type Config struct {
	Catalogs     *catalogs.Catalogs
	Tuning       tuning.Tuning
	TuningDigest string

	// Optional sinks shared by every session.
	Loggers   []session.StepLogger
	Runs      session.RunRecorder
	Snapshots chan<- snapshot.RunV1

	// Seed draws a seed when HELLO carries none. Defaults to the clock.
	Seed func() int64
}

type Server struct {
	cfg      Config
	stacking craft.Stacking
	log      *log.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	sims map[string]*craft.Sim

	seq    atomic.Uint64
	active atomic.Int64
}

func NewServer(cfg Config, logger *log.Logger) (*Server, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("ws: nil catalogs")
	}
	stacking, err := cfg.Tuning.StackingMode()
	if err != nil {
		return nil, err
	}
	if cfg.Seed == nil {
		cfg.Seed = func() int64 { return time.Now().UnixNano() }
	}
	s := &Server{
		cfg:      cfg,
		stacking: stacking,
		log:      logger,
		sims:     map[string]*craft.Sim{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s, nil
}

// Active reports the number of open sessions.
func (s *Server) Active() int { return int(s.active.Load()) }

// sim returns the shared simulator for a recipe/character pair.
func (s *Server) sim(recipeID, characterID string) (*craft.Sim, error) {
	key := recipeID + "/" + characterID
	s.mu.Lock()
	defer s.mu.Unlock()
	if sim, ok := s.sims[key]; ok {
		return sim, nil
	}
	cfg, err := s.cfg.Catalogs.Config(recipeID, characterID, s.stacking)
	if err != nil {
		return nil, err
	}
	sim, err := craft.New(cfg)
	if err != nil {
		return nil, err
	}
	s.sims[key] = sim
	return sim, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		s.active.Add(1)
		defer s.active.Add(-1)
		defer sess.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		maxQ := s.cfg.Tuning.Session.MaxQueue
		if maxQ <= 0 {
			maxQ = 8
		}
		out := make(chan []byte, maxQ)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		send := func(v any) bool {
			b, err := json.Marshal(v)
			if err != nil {
				return false
			}
			select {
			case out <- b:
				return true
			default:
				// The client stopped reading; drop the connection.
				return false
			}
		}

		idle := time.Duration(s.cfg.Tuning.Session.IdleTimeoutSec) * time.Second
		if idle <= 0 {
			idle = 60 * time.Second
		}

		// Reader loop.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !send(s.dispatch(sess, msg)) {
				break
			}
		}

		st := sess.State()
		s.log.Printf("session %s closed at step %d status=%s", sess.RunID(), st.Step(), st.Status())
	}
}

// dispatch answers one client message.
func (s *Server) dispatch(sess *session.Session, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg(sess, protocol.ErrProtoBadRequest, "malformed json", "")
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(sess, protocol.ErrProtoVersion, "bad protocol_version", "")
	}
	switch base.Type {
	case protocol.TypeAct:
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			return errorMsg(sess, protocol.ErrProtoBadRequest, "bad ACT: "+err.Error(), "")
		}
		return s.handleAct(sess, act)
	case protocol.TypePreview:
		var req protocol.PreviewReqMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg(sess, protocol.ErrProtoBadRequest, "bad PREVIEW: "+err.Error(), "")
		}
		return s.handlePreview(sess, req)
	default:
		return errorMsg(sess, protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type), "")
	}
}

func (s *Server) handleAct(sess *session.Session, act protocol.ActMsg) any {
	if sess.Done() {
		return errorMsg(sess, protocol.ErrTerminal, "craft already finished", "")
	}
	if act.Step != sess.State().Step() {
		return errorMsg(sess, protocol.ErrStale, fmt.Sprintf("act for step %d, craft is at step %d", act.Step, sess.State().Step()), "")
	}
	id, err := sess.Sim().Catalog().Parse(act.Action)
	if err != nil {
		return actionError(sess, err)
	}
	out, err := sess.Act(id)
	if err != nil {
		return actionError(sess, err)
	}
	return Observe(sess, &protocol.OutcomeObs{
		Action:       id.String(),
		Success:      out.Success,
		ProgressGain: out.ProgressGain,
		QualityGain:  out.QualityGain,
		CPCost:       out.CPCost,
		DurCost:      out.DurCost,
		Repaired:     out.Repaired,
	})
}

func (s *Server) handlePreview(sess *session.Session, req protocol.PreviewReqMsg) any {
	id, err := sess.Sim().Catalog().Parse(req.Action)
	if err != nil {
		return actionError(sess, err)
	}
	p, err := sess.Preview(id)
	if err != nil {
		return actionError(sess, err)
	}
	return protocol.PreviewMsg{
		Type:            protocol.TypePreview,
		ProtocolVersion: protocol.Version,
		Step:            sess.State().Step(),
		Action:          id.String(),
		CPCost:          p.CPCost,
		DurabilityCost:  p.DurCost,
		SuccessRate:     p.SuccessRate,
		ProgressGain:    p.ProgressGain,
		QualityGain:     p.QualityGain,
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session.Session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}

	sim, err := s.sim(hello.RecipeID, hello.CharacterID)
	if err != nil {
		code := protocol.ErrBadRequest
		if errors.Is(err, catalogs.ErrUnknownRecipe) || errors.Is(err, catalogs.ErrUnknownCharacter) {
			code = protocol.ErrNotFound
		}
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: err.Error()})
		closeWith(conn, "no session")
		return nil
	}

	seed := s.cfg.Seed()
	if hello.Seed != nil {
		seed = *hello.Seed
	}
	cats := s.cfg.Catalogs
	sess := session.New(sim, session.Options{
		RunID:            fmt.Sprintf("run_%d_%d", time.Now().UTC().Unix(), s.seq.Add(1)),
		RecipeID:         hello.RecipeID,
		CharacterID:      hello.CharacterID,
		Seed:             seed,
		RecipesDigest:    cats.Recipes.Digest,
		CharactersDigest: cats.Characters.Digest,
		MaxSteps:         s.cfg.Tuning.Session.MaxSteps,
		SnapshotEvery:    s.cfg.Tuning.Session.SnapshotEvery,
	})
	for _, l := range s.cfg.Loggers {
		sess.AddLogger(l)
	}
	if s.cfg.Runs != nil {
		sess.SetRunRecorder(s.cfg.Runs)
	}
	if s.cfg.Snapshots != nil {
		sess.SetSnapshotSink(s.cfg.Snapshots)
		// The starting point of every run, for replay.
		sess.Checkpoint()
	}

	cfg := sim.Config()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RunID:           sess.RunID(),
		Seed:            seed,
		Recipe: protocol.RecipeParams{
			ID:           hello.RecipeID,
			Level:        cfg.Recipe.Level,
			Mode:         cfg.Recipe.Mode.String(),
			Durability:   cfg.Recipe.Durability,
			Progress:     cfg.Recipe.Progress,
			Quality:      cfg.Recipe.Quality,
			BaseProgress: sim.BaseProgress(),
			BaseQuality:  sim.BaseQuality(),
		},
		Character: protocol.CharacterParams{
			ID:         hello.CharacterID,
			Level:      cfg.Character.Level,
			CP:         cfg.Character.CP,
			Specialist: cfg.Character.Specialist,
		},
		Stacking: cfg.Stacking.String(),
		MaxSteps: s.cfg.Tuning.Session.MaxSteps,
		Actions:  sim.Catalog().Names(),
		Catalogs: protocol.CatalogDigests{
			RecipesDigest:    cats.Recipes.Digest,
			CharactersDigest: cats.Characters.Digest,
			TuningDigest:     s.cfg.TuningDigest,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	if err := writeJSON(conn, Observe(sess, nil)); err != nil {
		return nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}
	s.log.Printf("session %s opened by %s recipe=%s character=%s seed=%d", sess.RunID(), hello.ClientName, hello.RecipeID, hello.CharacterID, seed)
	return sess
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func errorMsg(sess *session.Session, code, message, suggestion string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
		Suggestion:      suggestion,
		Step:            sess.State().Step(),
	}
}

// ErrorCode maps a session or engine error onto a protocol error code.
func ErrorCode(err error) string {
	var unknown *actions.UnknownNameError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknown):
		return protocol.ErrUnknownAction
	case errors.Is(err, craft.ErrInsufficientCP), errors.Is(err, craft.ErrInsufficientDurability):
		return protocol.ErrNoResource
	case errors.Is(err, session.ErrFinished), errors.Is(err, craft.ErrInvalidStateTransition):
		return protocol.ErrTerminal
	case errors.Is(err, session.ErrStepLimit):
		return protocol.ErrStepLimit
	case errors.Is(err, actions.ErrInvalidAction):
		return protocol.ErrInvalidAction
	default:
		return protocol.ErrInternal
	}
}

func actionError(sess *session.Session, err error) protocol.ErrorMsg {
	suggestion := ""
	var unknown *actions.UnknownNameError
	if errors.As(err, &unknown) {
		suggestion = unknown.Suggestion
	}
	return errorMsg(sess, ErrorCode(err), err.Error(), suggestion)
}
