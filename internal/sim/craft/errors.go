package craft

import (
	"errors"
	"fmt"

	"craftsim.ai/internal/sim/actions"
)

var (
	ErrBadConfig              = errors.New("bad craft config")
	ErrInvalidStateTransition = errors.New("craft already finished")
	ErrInsufficientCP         = errors.New("insufficient cp")
	ErrInsufficientDurability = errors.New("insufficient durability")
	ErrBadRecord              = errors.New("bad state record")
)

// ActionError is an illegal move. It matches actions.ErrInvalidAction and the
// specific reason under errors.Is.
type ActionError struct {
	Action actions.ID
	Reason error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("invalid action %s: %v", e.Action, e.Reason)
}

func (e *ActionError) Unwrap() []error {
	return []error{actions.ErrInvalidAction, e.Reason}
}

func illegal(id actions.ID, reason error) error {
	return &ActionError{Action: id, Reason: reason}
}
