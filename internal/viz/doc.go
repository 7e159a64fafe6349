// Package viz is the terminal front end for a population session.
//
// It is built on Bubble Tea:
//
//   - [App]: model and preset picker that hands off to the live view
//   - [Model]: live view of one session with a population chart, a
//     phase-plane canvas and a stats panel
//   - [Canvas]: Braille-based pixel canvas used for the phase plane
//
// # Key Bindings
//
//	Space  - Start/Pause
//	R      - Reset from the current parameters
//	M      - Switch model (resets)
//	Tab/J  - Next parameter
//	K      - Previous parameter
//	+ / -  - Adjust the selected parameter by 5%
//	P      - Toggle chart / phase plane
//	T      - Cycle color themes
//	?      - Show help overlay
//
// Parameter edits do not restart the run; they take effect on the next
// reset, which the status line points out.
package viz
