// Package dynamo provides core simulation primitives for two-species
// population dynamics.
//
// The package defines the fundamental types shared by the engine:
//
//   - [State]: the population pair (N1, N2)
//   - [TrajectoryPoint]: a state stamped with simulation time
//   - [ModelKind]: which derivative system is active
//   - [System]: interface for ODE systems (dN/dt = f(N))
//   - [Integrator]: fixed-step numerical integrator interface
//
// # Example
//
//	params := ecology.DefaultPredatorPrey()
//	integ := integrators.NewRK4(dynamo.ExtinctionFloor)
//	x := params.Initial()
//	for i := 0; i < 100; i++ {
//	    x = integ.Step(params, x, dynamo.DefaultStepSize)
//	}
//
// # Thread Safety
//
// Values in this package are immutable once constructed and safe to share.
package dynamo
