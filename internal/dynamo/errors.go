package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a NaN or infinite parameter value.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter (NaN or Inf)")

	// ErrUnknownParameter indicates a parameter name the active model does not define.
	ErrUnknownParameter = errors.New("dynamo: unknown parameter")

	// ErrUnknownModel indicates an unrecognised model name.
	ErrUnknownModel = errors.New("dynamo: unknown model")

	// ErrNotRunning indicates a tick was requested while the session is paused.
	ErrNotRunning = errors.New("dynamo: session is not running")

	// ErrInvalidState indicates a state with non-finite components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// ParameterError wraps a parameter rejection with the offending field.
type ParameterError struct {
	Model   ModelKind
	Name    string
	Value   float64
	Wrapped error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%g: %v", e.Model, e.Name, e.Value, e.Wrapped)
}

func (e *ParameterError) Unwrap() error {
	return e.Wrapped
}
