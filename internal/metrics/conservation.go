package metrics

import (
	"math"

	"github.com/san-kum/popdyn/internal/dynamo"
)

// ConservedQuantity is the drift report of a first integral. The max
// drift covers every observation since Start.
type ConservedQuantity struct {
	Initial         float64 `json:"initial"`
	Current         float64 `json:"current"`
	DriftPercent    float64 `json:"drift_percent"`
	MaxDriftPercent float64 `json:"max_drift_percent"`
	IsConserved     bool    `json:"is_conserved"`
}

// Conservation tracks H relative to the value captured at Start.
type Conservation struct {
	sys       dynamo.Hamiltonian
	tolerance float64
	initial   float64
	current   float64
	maxDrift  float64
}

func NewConservation(sys dynamo.Hamiltonian, tolerance float64) *Conservation {
	return &Conservation{
		sys:       sys,
		tolerance: tolerance,
	}
}

// Start captures H at x0 as the reference value.
func (c *Conservation) Start(x0 dynamo.State) {
	c.initial = c.sys.Invariant(x0)
	c.current = c.initial
	c.maxDrift = 0
}

func (c *Conservation) Observe(x dynamo.State, t float64) {
	c.current = c.sys.Invariant(x)
	c.maxDrift = math.Max(c.maxDrift, c.drift())
}

// Value returns the largest relative drift seen since Start.
func (c *Conservation) Value() float64 {
	return c.maxDrift
}

// Rebind evaluates H with sys from now on. The reference value is kept,
// so an edit that moves the orbit shows up as drift.
func (c *Conservation) Rebind(sys dynamo.Hamiltonian) {
	c.sys = sys
}

func (c *Conservation) Report() ConservedQuantity {
	d := c.drift()
	return ConservedQuantity{
		Initial:      c.initial,
		Current:      c.current,
		DriftPercent:    d * 100,
		MaxDriftPercent: c.maxDrift * 100,
		IsConserved:     d < c.tolerance,
	}
}

// drift is |H - H0| / |H0|, or the absolute difference when H0 is zero.
func (c *Conservation) drift() float64 {
	diff := math.Abs(c.current - c.initial)
	if c.initial == 0 {
		return diff
	}
	return diff / math.Abs(c.initial)
}
