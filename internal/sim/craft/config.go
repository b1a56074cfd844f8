package craft

import (
	"fmt"
	"strings"

	"craftsim.ai/internal/sim/conditions"
)

// Recipe carries the recipe-level constants. They come from outside the
// simulator and are never derived here.
type Recipe struct {
	Level      int
	Durability int
	Progress   int
	Quality    int

	ProgressDivider int
	QualityDivider  int
	// Level-difference corrections in percent. Zero is read as 100.
	ProgressModifier int
	QualityModifier  int

	Mode conditions.Mode
}

type Character struct {
	Craftsmanship int
	Control       int
	CP            int
	Level         int
	Specialist    bool
}

// Stacking selects how percentage buffs combine on one gain.
type Stacking uint8

const (
	// StackingAdditive sums the active percentages and applies them once.
	StackingAdditive Stacking = iota
	// StackingMultiplicative applies each percentage in turn, truncating
	// after every stage.
	StackingMultiplicative
)

func (s Stacking) String() string {
	switch s {
	case StackingAdditive:
		return "additive"
	case StackingMultiplicative:
		return "multiplicative"
	}
	return fmt.Sprintf("Stacking(%d)", uint8(s))
}

func ParseStacking(s string) (Stacking, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additive":
		return StackingAdditive, nil
	case "multiplicative":
		return StackingMultiplicative, nil
	}
	return StackingAdditive, fmt.Errorf("%w: stacking %q", ErrBadConfig, s)
}

type Config struct {
	Recipe    Recipe
	Character Character
	Stacking  Stacking
}

const (
	outlevelMargin = 10
	delineations   = 3
)

func (c Config) validate() error {
	r, ch := c.Recipe, c.Character
	switch {
	case r.Durability <= 0:
		return fmt.Errorf("%w: recipe durability %d", ErrBadConfig, r.Durability)
	case r.Progress <= 0:
		return fmt.Errorf("%w: recipe progress %d", ErrBadConfig, r.Progress)
	case r.Quality < 0:
		return fmt.Errorf("%w: recipe quality %d", ErrBadConfig, r.Quality)
	case r.ProgressDivider <= 0 || r.QualityDivider <= 0:
		return fmt.Errorf("%w: dividers must be positive (%d, %d)", ErrBadConfig, r.ProgressDivider, r.QualityDivider)
	case r.ProgressModifier < 0 || r.QualityModifier < 0:
		return fmt.Errorf("%w: negative level modifier", ErrBadConfig)
	case ch.CP < 0 || ch.Craftsmanship < 0 || ch.Control < 0:
		return fmt.Errorf("%w: negative character stat", ErrBadConfig)
	case c.Stacking > StackingMultiplicative:
		return fmt.Errorf("%w: stacking %s", ErrBadConfig, c.Stacking)
	}
	if _, err := conditions.ForMode(r.Mode); err != nil {
		return err
	}
	return nil
}

func modifierOr100(v int) int {
	if v == 0 {
		return 100
	}
	return v
}
