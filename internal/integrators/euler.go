package integrators

import "github.com/san-kum/popdyn/internal/dynamo"

// Euler is first order and drifts off closed orbits; it is kept for comparison.
type Euler struct {
	Floor float64
}

func NewEuler(floor float64) *Euler {
	return &Euler{Floor: floor}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, h float64) dynamo.State {
	return x.Add(dyn.Derive(x).Scale(h)).Floor(e.Floor)
}

// ByName returns the stepper registered under name.
func ByName(name string, floor float64) (dynamo.Integrator, bool) {
	switch name {
	case "rk4":
		return NewRK4(floor), true
	case "euler":
		return NewEuler(floor), true
	}
	return nil, false
}
