// Package units fixes the unit system used throughout detprop: lengths in
// millimetres, momenta in GeV, time in nanoseconds. Magnetic fields are
// stored pre-multiplied by the speed of light so that the curvature of a
// track is simply qop * |B| in 1/mm.
package units

const (
	Millimeter = 1.0
	Micrometer = 1e-3 * Millimeter
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter

	GeV = 1.0
	MeV = 1e-3 * GeV

	Nanosecond = 1.0

	// Tesla converts a field strength in T into GeV/(e*mm).
	Tesla = 0.000299792458

	// SpeedOfLight in mm/ns.
	SpeedOfLight = 299.792458 * Millimeter / Nanosecond
)
