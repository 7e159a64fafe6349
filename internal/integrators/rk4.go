package integrators

import "github.com/san-kum/popdyn/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. Results at or
// below Floor (and NaN) are raised to Floor; there is no upper clamp.
type RK4 struct {
	Floor float64
}

func NewRK4(floor float64) *RK4 {
	return &RK4{Floor: floor}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, h float64) dynamo.State {
	k1 := dyn.Derive(x)
	k2 := dyn.Derive(x.Add(k1.Scale(h * 0.5)))
	k3 := dyn.Derive(x.Add(k2.Scale(h * 0.5)))
	k4 := dyn.Derive(x.Add(k3.Scale(h)))

	h6 := h / 6.0
	next := dynamo.State{
		N1: x.N1 + h6*(k1.N1+2*k2.N1+2*k3.N1+k4.N1),
		N2: x.N2 + h6*(k1.N2+2*k2.N2+2*k3.N2+k4.N2),
	}
	return next.Floor(r.Floor)
}
