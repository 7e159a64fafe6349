package analysis

import (
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
)

// Equilibrium returns the interior fixed point of p. ok is false when
// no point with both populations positive exists.
func Equilibrium(p ecology.Params) (dynamo.State, bool) {
	switch m := p.(type) {
	case *ecology.Competition:
		det := 1 - m.A12*m.A21
		if det == 0 {
			return dynamo.State{}, false
		}
		x := dynamo.State{
			N1: (m.K1 - m.A12*m.K2) / det,
			N2: (m.K2 - m.A21*m.K1) / det,
		}
		return x, x.N1 > 0 && x.N2 > 0
	case *ecology.PredatorPrey:
		if m.A == 0 || m.B == 0 {
			return dynamo.State{}, false
		}
		x := dynamo.State{N1: m.R2 / m.B, N2: m.R1 / m.A}
		return x, x.N1 > 0 && x.N2 > 0
	}
	return dynamo.State{}, false
}

type Outcome int

const (
	Coexistence Outcome = iota
	Species1Wins
	Species2Wins
	Bistable
)

func (o Outcome) String() string {
	switch o {
	case Coexistence:
		return "stable coexistence"
	case Species1Wins:
		return "species 1 excludes species 2"
	case Species2Wins:
		return "species 2 excludes species 1"
	case Bistable:
		return "bistable: winner depends on initial populations"
	}
	return "unknown"
}

// CompetitionOutcome classifies the long-run result by comparing each
// competition coefficient with the ratio of carrying capacities.
func CompetitionOutcome(c *ecology.Competition) Outcome {
	weak12 := c.A12 < c.K1/c.K2
	weak21 := c.A21 < c.K2/c.K1
	switch {
	case weak12 && weak21:
		return Coexistence
	case weak12:
		return Species1Wins
	case weak21:
		return Species2Wins
	default:
		return Bistable
	}
}
