// Package ecology provides the two Lotka-Volterra systems.
//
// Each model implements [dynamo.System] and [dynamo.Configurable]:
//
//   - [Competition]: two species sharing a resource
//   - [PredatorPrey]: prey N1 and predator N2
//
// [Params] is a closed sum of the two; code that needs the variant
// switches on the concrete type. [PredatorPrey] also implements
// [dynamo.Hamiltonian].
package ecology
