package ecology

import (
	"math"

	"github.com/san-kum/popdyn/internal/dynamo"
)

// PredatorPrey has prey N1 and predator N2.
type PredatorPrey struct {
	R1 float64 // prey growth
	R2 float64 // predator death
	A  float64 // attack rate
	B  float64 // conversion efficiency

	N10, N20 float64
}

func NewPredatorPrey(r1, r2, a, b, n10, n20 float64) *PredatorPrey {
	return &PredatorPrey{R1: r1, R2: r2, A: a, B: b, N10: n10, N20: n20}
}

// DefaultPredatorPrey returns the textbook parameters.
func DefaultPredatorPrey() *PredatorPrey {
	return NewPredatorPrey(1.0, 1.0, 0.1, 0.075, 40, 9)
}

func (p *PredatorPrey) Kind() dynamo.ModelKind { return dynamo.PredatorPrey }

func (p *PredatorPrey) Derive(x dynamo.State) dynamo.State {
	return dynamo.State{
		N1: p.R1*x.N1 - p.A*x.N1*x.N2,
		N2: -p.R2*x.N2 + p.B*x.N1*x.N2,
	}
}

// Invariant is the first integral
//
//	H(N1, N2) = r2*ln(N1) - b*N1 + r1*ln(N2) - a*N2
//
// which is constant along exact trajectories. Populations must be positive.
func (p *PredatorPrey) Invariant(x dynamo.State) float64 {
	return p.R2*math.Log(x.N1) - p.B*x.N1 + p.R1*math.Log(x.N2) - p.A*x.N2
}

func (p *PredatorPrey) Initial() dynamo.State { return dynamo.State{N1: p.N10, N2: p.N20} }

func (p *PredatorPrey) Clone() Params {
	cp := *p
	return &cp
}

func (p *PredatorPrey) GetParams() map[string]float64 {
	return map[string]float64{
		"r1": p.R1, "r2": p.R2,
		"a": p.A, "b": p.B,
		"N1_0": p.N10, "N2_0": p.N20,
	}
}

func (p *PredatorPrey) SetParam(name string, value float64) error {
	var field *float64
	switch name {
	case "r1":
		field = &p.R1
	case "r2":
		field = &p.R2
	case "a":
		field = &p.A
	case "b":
		field = &p.B
	case "N1_0":
		field = &p.N10
	case "N2_0":
		field = &p.N20
	default:
		return unknown(dynamo.PredatorPrey, name, value)
	}
	if err := checkFinite(dynamo.PredatorPrey, name, value); err != nil {
		return err
	}
	*field = value
	return nil
}

func (p *PredatorPrey) params() {}
