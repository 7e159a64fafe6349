// Package analysis provides tools for interpreting population trajectories.
//
//   - [Equilibrium]: analytic fixed points of both models
//   - [CompetitionOutcome]: coexistence or exclusion from the coefficients
//   - [Peaks], [PeriodFromPeaks], [DominantPeriod]: oscillation period
//   - [Sweep]: parameter sweep recording the long-run state
//   - [PhasePortrait]: N1 vs N2 as ASCII art
//
// # Cycles
//
// Predator-prey orbits are closed, so successive prey peaks should be
// evenly spaced:
//
//	peaks := analysis.Peaks(n1)
//	period, spread, ok := analysis.PeriodFromPeaks(times, peaks)
package analysis
