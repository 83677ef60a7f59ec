// Package track provides the kinematic state of a propagated particle and
// the closed-form trajectories used as ground truth and as cheap estimators:
//
//   - [Parameters]: free track parameters (position, direction, q/p, time, path)
//   - [Ray]: straight line, exact for neutral tracks or zero field
//   - [Helix]: analytic solution in a constant magnetic field
//   - [Generator]: uniformly spaced initial directions from one origin
//
// # Example
//
//	gen := track.Generator{ThetaSteps: 10, PhiSteps: 10, Momentum: 10 * units.GeV, Charge: -1}
//	for p := range gen.All() {
//		h := track.NewHelix(p, bField)
//		pos := h.PositionAt(100 * units.Millimeter)
//	}
package track
