package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/sim"
)

var ErrNoCandidate = errors.New("optim: no parameter combination could be evaluated")

// Objective scores a finished run; lower is better.
type Objective func(sim.Snapshot) float64

// Drift scores a run by its final conserved-quantity drift. Models
// without a first integral score +Inf.
func Drift(s sim.Snapshot) float64 {
	if s.Conservation == nil {
		return math.Inf(1)
	}
	return s.Conservation.DriftPercent
}

// Persistence favours runs whose rarest population stayed highest.
func Persistence(s sim.Snapshot) float64 {
	lowest := math.Inf(1)
	for _, p := range s.History {
		lowest = math.Min(lowest, math.Min(p.N1, p.N2))
	}
	return -lowest
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Linspace returns n evenly spaced values across [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Search runs every combination of the grid on top of base and returns
// the one with the lowest objective. Combinations the parameter set
// rejects are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	base ecology.Params,
	opts sim.Options,
	steps int,
	objective Objective,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, opts, steps, objective, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base ecology.Params,
	opts sim.Options,
	steps int,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		p, err := ecology.ApplyAll(base, current)
		if err != nil {
			return nil
		}

		snap, err := sim.RunHeadless(ctx, p, opts, steps)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}

		val := objective(snap)
		if val < *best || *bestParams == nil {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, opts, steps, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
