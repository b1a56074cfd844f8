package actions

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAction = errors.New("invalid action")

	// Precondition failures reported through Delta.Err.
	ErrComboRequired      = errors.New("combo requirement not met")
	ErrConditionRequired  = errors.New("requires a good or excellent condition")
	ErrFirstStepOnly      = errors.New("only usable on the first step")
	ErrLevelTooLow        = errors.New("character level too low")
	ErrSpecialistOnly     = errors.New("specialist only")
	ErrUnavailable        = errors.New("no uses left")
	ErrWasteNotActive     = errors.New("unusable under waste not")
	ErrInnerQuietRequired = errors.New("not enough inner quiet")
	ErrExpertRecipe       = errors.New("unusable on expert recipes")
)

// UnknownNameError is returned by Catalog.Parse. Suggestion is the closest
// known wire name, or empty when nothing is close.
type UnknownNameError struct {
	Name       string
	Suggestion string
}

func (e *UnknownNameError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown action %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown action %q", e.Name)
}

func (e *UnknownNameError) Unwrap() error { return ErrInvalidAction }
