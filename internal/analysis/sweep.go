package analysis

import (
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
)

// SweepPoint is the state reached after settling at one parameter value.
type SweepPoint struct {
	Param float64
	Final dynamo.State
	Min   dynamo.State
	Max   dynamo.State
}

// Sweep varies one parameter of p across [lo, hi] and integrates each
// copy for transient+record steps, recording the range visited during
// the last record steps. p itself is not modified.
func Sweep(
	p ecology.Params,
	integ dynamo.Integrator,
	name string,
	lo, hi float64,
	n int,
	h float64,
	transient, record int,
) ([]SweepPoint, error) {
	if n < 2 {
		n = 2
	}
	step := (hi - lo) / float64(n-1)

	results := make([]SweepPoint, 0, n)
	for i := 0; i < n; i++ {
		v := lo + float64(i)*step
		q := p.Clone()
		if err := q.SetParam(name, v); err != nil {
			return nil, err
		}

		x := q.Initial().Floor(dynamo.ExtinctionFloor)
		for j := 0; j < transient; j++ {
			x = integ.Step(q, x, h)
		}

		pt := SweepPoint{Param: v, Min: x, Max: x}
		for j := 0; j < record; j++ {
			x = integ.Step(q, x, h)
			pt.Min = dynamo.State{N1: min(pt.Min.N1, x.N1), N2: min(pt.Min.N2, x.N2)}
			pt.Max = dynamo.State{N1: max(pt.Max.N1, x.N1), N2: max(pt.Max.N2, x.N2)}
		}
		pt.Final = x
		results = append(results, pt)
	}
	return results, nil
}
