package propagator

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Propagation failures. Step and navigation failures of the collaborators
// (stepper.ErrNonConvergent, stepper.ErrStepSize, navigation.ErrNoVolume) are
// passed through unchanged inside an *Error.
var (
	// ErrOverstep indicates the track passed its target surface by more than
	// the overstep tolerance.
	ErrOverstep = errors.New("propagator: navigation overshoot")

	// ErrIterationBudget indicates the step loop hit MaxIterations.
	ErrIterationBudget = errors.New("propagator: iteration budget exhausted")

	// ErrAborted indicates an actor stopped the propagation.
	ErrAborted = errors.New("propagator: aborted")

	// ErrInvalidTrack indicates non-finite or non-normalised start parameters.
	ErrInvalidTrack = errors.New("propagator: invalid track parameters")
)

// Error wraps a failure with the state of the track when it happened.
type Error struct {
	Iteration  int
	PathLength float64
	Position   mgl64.Vec3
	Volume     int
	Wrapped    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (iteration %d, s=%.4f mm, volume %d)", e.Wrapped, e.Iteration, e.PathLength, e.Volume)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

func aborted(reason string) error {
	if reason == "" {
		return ErrAborted
	}
	return fmt.Errorf("%w: %s", ErrAborted, reason)
}
