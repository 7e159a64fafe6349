package dynamo

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Engine constants.
const (
	DefaultStepSize       = 0.05
	DefaultTickInterval   = 50 * time.Millisecond
	ExtinctionFloor       = 1e-10
	ConservationTolerance = 0.01
)

type ModelKind int

const (
	Competition ModelKind = iota
	PredatorPrey
)

func (k ModelKind) String() string {
	switch k {
	case Competition:
		return "competition"
	case PredatorPrey:
		return "predator_prey"
	default:
		return fmt.Sprintf("model(%d)", int(k))
	}
}

// ParseModelKind accepts the canonical names plus a few common spellings.
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "competition", "comp", "lv-competition":
		return Competition, nil
	case "predator_prey", "predator-prey", "predprey", "pp", "lv-predator-prey":
		return PredatorPrey, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

func (k ModelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ModelKind) UnmarshalText(b []byte) error {
	v, err := ParseModelKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// State is the population pair at a given time.
type State struct {
	N1 float64 `json:"n1"`
	N2 float64 `json:"n2"`
}

func (s State) IsValid() bool {
	return IsFinite(s.N1) && IsFinite(s.N2)
}

func (s State) Add(o State) State {
	return State{s.N1 + o.N1, s.N2 + o.N2}
}

func (s State) Scale(f float64) State {
	return State{s.N1 * f, s.N2 * f}
}

// Floor raises any component at or below floor (or NaN) to floor.
func (s State) Floor(floor float64) State {
	if !(s.N1 > floor) {
		s.N1 = floor
	}
	if !(s.N2 > floor) {
		s.N2 = floor
	}
	return s
}

type TrajectoryPoint struct {
	Time float64 `json:"t"`
	N1   float64 `json:"n1"`
	N2   float64 `json:"n2"`
}

func (p TrajectoryPoint) State() State {
	return State{N1: p.N1, N2: p.N2}
}

// System is a two-variable autonomous ODE.
type System interface {
	Kind() ModelKind
	Derive(x State) State
}

// Hamiltonian is implemented by systems with a first integral.
type Hamiltonian interface {
	Invariant(x State) float64
}

type Integrator interface {
	Step(sys System, x State, h float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
