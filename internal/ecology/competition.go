package ecology

import "github.com/san-kum/popdyn/internal/dynamo"

type Competition struct {
	R1, R2   float64
	K1, K2   float64
	A12, A21 float64
	N10, N20 float64
}

func NewCompetition(r1, r2, k1, k2, a12, a21, n10, n20 float64) *Competition {
	return &Competition{R1: r1, R2: r2, K1: k1, K2: k2, A12: a12, A21: a21, N10: n10, N20: n20}
}

// DefaultCompetition is a stable-coexistence configuration.
func DefaultCompetition() *Competition {
	return NewCompetition(1.0, 0.8, 120, 100, 0.4, 0.5, 50, 40)
}

func (c *Competition) Kind() dynamo.ModelKind { return dynamo.Competition }

// Derive calculates the competition derivatives.
func (c *Competition) Derive(x dynamo.State) dynamo.State {
	return dynamo.State{
		N1: c.R1 * x.N1 * (1 - (x.N1+c.A12*x.N2)/c.K1),
		N2: c.R2 * x.N2 * (1 - (x.N2+c.A21*x.N1)/c.K2),
	}
}

func (c *Competition) Initial() dynamo.State { return dynamo.State{N1: c.N10, N2: c.N20} }

func (c *Competition) Clone() Params {
	cp := *c
	return &cp
}

func (c *Competition) GetParams() map[string]float64 {
	return map[string]float64{
		"r1": c.R1, "r2": c.R2,
		"K1": c.K1, "K2": c.K2,
		"a12": c.A12, "a21": c.A21,
		"N1_0": c.N10, "N2_0": c.N20,
	}
}

func (c *Competition) SetParam(name string, value float64) error {
	var field *float64
	switch name {
	case "r1":
		field = &c.R1
	case "r2":
		field = &c.R2
	case "K1":
		field = &c.K1
	case "K2":
		field = &c.K2
	case "a12":
		field = &c.A12
	case "a21":
		field = &c.A21
	case "N1_0":
		field = &c.N10
	case "N2_0":
		field = &c.N20
	default:
		return unknown(dynamo.Competition, name, value)
	}
	if err := checkFinite(dynamo.Competition, name, value); err != nil {
		return err
	}
	*field = value
	return nil
}

func (c *Competition) params() {}
