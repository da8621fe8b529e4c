package gnc

import "math"

const (
	// SeaLevelPressure is the standard atmospheric pressure at sea level, in Pa.
	SeaLevelPressure = 101325.0
	// SeaLevelDensity is the standard air density at sea level, in kg/m^3.
	SeaLevelDensity = 1.225
	// SeaLevelTemperature is the standard temperature at sea level, in K.
	SeaLevelTemperature = 288.15
	// ScaleHeight is the characteristic e-folding altitude of the model, in m.
	ScaleHeight = 8500.0

	// Temperature decays toward the mesopause floor rather than zero.
	mesopauseK = 186.87
)

// AtmosphereState is a snapshot of the local atmosphere at some altitude.
type AtmosphereState struct {
	Pressure    float64 // Pa
	Density     float64 // kg/m^3
	Temperature float64 // K
}

// Atmosphere returns the exponential-decay atmosphere at the given altitude
// in meters. Altitudes at or below sea level return exactly the sea-level
// values; pressure and density decrease monotonically with altitude and only
// asymptote toward zero, so drag never switches off discontinuously.
func Atmosphere(altitude float64) AtmosphereState {
	if altitude <= 0 {
		return AtmosphereState{SeaLevelPressure, SeaLevelDensity, SeaLevelTemperature}
	}
	decay := math.Exp(-altitude / ScaleHeight)
	return AtmosphereState{
		Pressure:    SeaLevelPressure * decay,
		Density:     SeaLevelDensity * decay,
		Temperature: mesopauseK + (SeaLevelTemperature-mesopauseK)*decay,
	}
}
