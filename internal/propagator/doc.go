// Package propagator drives a single track through a detector.
//
// One propagation alternates three collaborators until no surface is left:
//
//	navigator.Target  ->  distance to the next surface (step constraint)
//	stepper.Step      ->  advance the track, at most that far
//	navigator.Update  ->  landed, still approaching, lost or overstepped
//	chain.Run         ->  actors observe, constrain or abort
//
// Everything mutable lives in the returned State, so a Propagator can be
// shared between goroutines. Exhausting the geometry is success; every other
// way out of the loop is reported as an *Error.
package propagator
