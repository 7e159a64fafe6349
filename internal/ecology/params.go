package ecology

import (
	"fmt"

	"github.com/san-kum/popdyn/internal/dynamo"
)

// Params is the parameter set of one model. Implemented only by
// *Competition and *PredatorPrey.
type Params interface {
	dynamo.System
	dynamo.Configurable
	Initial() dynamo.State
	Clone() Params
	params()
}

// Defaults returns the canonical parameter set for kind.
func Defaults(kind dynamo.ModelKind) (Params, error) {
	switch kind {
	case dynamo.Competition:
		return DefaultCompetition(), nil
	case dynamo.PredatorPrey:
		return DefaultPredatorPrey(), nil
	}
	return nil, fmt.Errorf("%w: %v", dynamo.ErrUnknownModel, kind)
}

// ParamNames lists the fields of kind in display order.
func ParamNames(kind dynamo.ModelKind) []string {
	switch kind {
	case dynamo.Competition:
		return []string{"r1", "r2", "K1", "K2", "a12", "a21", "N1_0", "N2_0"}
	case dynamo.PredatorPrey:
		return []string{"r1", "r2", "a", "b", "N1_0", "N2_0"}
	}
	return nil
}

// Validate reports the first field of p that is NaN or infinite.
func Validate(p Params) error {
	values := p.GetParams()
	for _, name := range ParamNames(p.Kind()) {
		v := values[name]
		if !dynamo.IsFinite(v) {
			return &dynamo.ParameterError{Model: p.Kind(), Name: name, Value: v, Wrapped: dynamo.ErrInvalidParameter}
		}
	}
	return nil
}

// ApplyAll sets every entry of values on a copy of p. Nothing is applied
// unless every name is known and every value is finite.
func ApplyAll(p Params, values map[string]float64) (Params, error) {
	known := p.GetParams()
	for name, v := range values {
		if _, ok := known[name]; !ok {
			return nil, &dynamo.ParameterError{Model: p.Kind(), Name: name, Value: v, Wrapped: dynamo.ErrUnknownParameter}
		}
		if !dynamo.IsFinite(v) {
			return nil, &dynamo.ParameterError{Model: p.Kind(), Name: name, Value: v, Wrapped: dynamo.ErrInvalidParameter}
		}
	}

	out := p.Clone()
	for name, v := range values {
		if err := out.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkFinite(kind dynamo.ModelKind, name string, value float64) error {
	if !dynamo.IsFinite(value) {
		return &dynamo.ParameterError{Model: kind, Name: name, Value: value, Wrapped: dynamo.ErrInvalidParameter}
	}
	return nil
}

func unknown(kind dynamo.ModelKind, name string, value float64) error {
	return &dynamo.ParameterError{Model: kind, Name: name, Value: value, Wrapped: dynamo.ErrUnknownParameter}
}
