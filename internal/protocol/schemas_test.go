package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"craftsim.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// validateMsg round-trips v through JSON so the schema sees what goes on the wire.
func validateMsg(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemas_ValidateMessages(t *testing.T) {
	seed := int64(1337)
	validateMsg(t, compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version,
		ClientName: "bot1", RecipeID: "practice_ingot", CharacterID: "crafter_90", Seed: &seed,
	})

	validateMsg(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version,
		RunID: "run_1", Seed: seed,
		Recipe: protocol.RecipeParams{
			ID: "practice_ingot", Level: 90, Mode: "normal", Durability: 80, Progress: 1000, Quality: 3000,
			BaseProgress: 309, BaseQuality: 374,
		},
		Character: protocol.CharacterParams{ID: "crafter_90", Level: 90, CP: 500},
		Stacking:  "additive",
		Actions:   []string{"basic_synthesis"},
		Catalogs:  protocol.CatalogDigests{RecipesDigest: "deadbeef", CharactersDigest: "deadbeef"},
	})

	validateMsg(t, compile(t, "act.schema.json"), protocol.ActMsg{
		Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Step: 3, Action: "basic_touch",
	})

	validateMsg(t, compile(t, "obs.schema.json"), protocol.ObsMsg{
		Type: protocol.TypeObs, ProtocolVersion: protocol.Version, RunID: "run_1", Step: 1,
		Condition: "GOOD", Progress: 370, Durability: 70, CP: 500, Status: "IN_PROGRESS", HQChance: 1,
		Buffs:  []protocol.BuffObs{{Kind: "INNER_QUIET", Stacks: 1}, {Kind: "VENERATION", Remaining: 3}},
		Digest: "abc", Legal: []string{"basic_synthesis"},
		Last:   &protocol.OutcomeObs{Action: "basic_synthesis", Success: true, ProgressGain: 370, DurCost: 10},
	})

	validateMsg(t, compile(t, "error.schema.json"), protocol.ErrorMsg{
		Type: protocol.TypeError, ProtocolVersion: protocol.Version,
		Code: protocol.ErrUnknownAction, Message: "unknown action", Suggestion: "basic_synthesis",
	})
}

func TestSchemas_RejectBadAct(t *testing.T) {
	s := compile(t, "act.schema.json")
	var doc any
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","step":-1,"action":""}`), &doc)
	if err := s.Validate(doc); err == nil {
		t.Fatalf("expected invalid ACT")
	}
}
