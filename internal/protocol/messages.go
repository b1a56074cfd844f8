package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	RecipeID        string `json:"recipe_id"`
	CharacterID     string `json:"character_id"`

	// Seed is drawn by the server when absent.
	Seed *int64 `json:"seed,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RunID           string          `json:"run_id"`
	Seed            int64           `json:"seed"`
	Recipe          RecipeParams    `json:"recipe"`
	Character       CharacterParams `json:"character"`
	Stacking        string          `json:"stacking"`
	MaxSteps        int             `json:"max_steps,omitempty"`
	Actions         []string        `json:"actions"`
	Catalogs        CatalogDigests  `json:"catalogs"`
}

type RecipeParams struct {
	ID           string `json:"id"`
	Level        int    `json:"level"`
	Mode         string `json:"mode"`
	Durability   int    `json:"durability"`
	Progress     int    `json:"progress"`
	Quality      int    `json:"quality"`
	BaseProgress int    `json:"base_progress"`
	BaseQuality  int    `json:"base_quality"`
}

type CharacterParams struct {
	ID         string `json:"id"`
	Level      int    `json:"level"`
	CP         int    `json:"cp"`
	Specialist bool   `json:"specialist,omitempty"`
}

type CatalogDigests struct {
	RecipesDigest    string `json:"recipes_digest"`
	CharactersDigest string `json:"characters_digest"`
	TuningDigest     string `json:"tuning_digest,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Suggestion      string `json:"suggestion,omitempty"`
	Step            int    `json:"step"`
}
