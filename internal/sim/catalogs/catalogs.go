package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"craftsim.ai/internal/sim/conditions"
	"craftsim.ai/internal/sim/craft"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	ErrUnknownRecipe    = errors.New("unknown recipe")
	ErrUnknownCharacter = errors.New("unknown character")
)

type Catalogs struct {
	Recipes    RecipeCatalog
	Characters CharacterCatalog
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string
}

// RecipeDef is one recipes.json entry. Every number is supplied as-is; the
// simulator never derives recipe constants from game tables.
type RecipeDef struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	Level            int    `json:"level"`
	Durability       int    `json:"durability"`
	Progress         int    `json:"progress"`
	Quality          int    `json:"quality"`
	ProgressDivider  int    `json:"progress_divider"`
	QualityDivider   int    `json:"quality_divider"`
	ProgressModifier int    `json:"progress_modifier,omitempty"`
	QualityModifier  int    `json:"quality_modifier,omitempty"`
	Mode             string `json:"mode,omitempty"`
}

type CharacterCatalog struct {
	ByID   map[string]CharacterDef
	Digest string
}

type CharacterDef struct {
	ID            string `json:"id"`
	Level         int    `json:"level"`
	Craftsmanship int    `json:"craftsmanship"`
	Control       int    `json:"control"`
	CP            int    `json:"cp"`
	Specialist    bool   `json:"specialist,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadCharacters(filepath.Join(configDir, "characters.json"), &c.Characters); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func validate(name string, raw []byte) error {
	src, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
	if err != nil {
		return err
	}
	sch, err := jsonschema.CompileString(name+".schema.json", string(src))
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", name, err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return sch.Validate(doc)
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	if err := validate("recipes", raw); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	for _, r := range defs {
		if _, dup := out.ByID[r.ID]; dup {
			return fmt.Errorf("recipes.json: duplicate id %q", r.ID)
		}
		if _, err := conditions.ParseMode(r.Mode); err != nil {
			return fmt.Errorf("recipes.json: %s: %w", r.ID, err)
		}
		out.ByID[r.ID] = r
	}
	return nil
}

func loadCharacters(path string, out *CharacterCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	if err := validate("characters", raw); err != nil {
		return fmt.Errorf("characters.json: %w", err)
	}

	var defs []CharacterDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("characters.json: %w", err)
	}
	out.ByID = map[string]CharacterDef{}
	for _, ch := range defs {
		if _, dup := out.ByID[ch.ID]; dup {
			return fmt.Errorf("characters.json: duplicate id %q", ch.ID)
		}
		out.ByID[ch.ID] = ch
	}
	return nil
}

func (r RecipeDef) Recipe() (craft.Recipe, error) {
	mode, err := conditions.ParseMode(r.Mode)
	if err != nil {
		return craft.Recipe{}, err
	}
	return craft.Recipe{
		Level:            r.Level,
		Durability:       r.Durability,
		Progress:         r.Progress,
		Quality:          r.Quality,
		ProgressDivider:  r.ProgressDivider,
		QualityDivider:   r.QualityDivider,
		ProgressModifier: r.ProgressModifier,
		QualityModifier:  r.QualityModifier,
		Mode:             mode,
	}, nil
}

func (c CharacterDef) Character() craft.Character {
	return craft.Character{
		Craftsmanship: c.Craftsmanship,
		Control:       c.Control,
		CP:            c.CP,
		Level:         c.Level,
		Specialist:    c.Specialist,
	}
}

// Config assembles the craft configuration of a recipe and character pair.
func (c *Catalogs) Config(recipeID, characterID string, stacking craft.Stacking) (craft.Config, error) {
	rd, ok := c.Recipes.ByID[recipeID]
	if !ok {
		return craft.Config{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, recipeID)
	}
	cd, ok := c.Characters.ByID[characterID]
	if !ok {
		return craft.Config{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, characterID)
	}
	recipe, err := rd.Recipe()
	if err != nil {
		return craft.Config{}, err
	}
	return craft.Config{Recipe: recipe, Character: cd.Character(), Stacking: stacking}, nil
}

func (c *Catalogs) RecipeIDs() []string {
	ids := make([]string, 0, len(c.Recipes.ByID))
	for id := range c.Recipes.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalogs) CharacterIDs() []string {
	ids := make([]string, 0, len(c.Characters.ByID))
	for id := range c.Characters.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
