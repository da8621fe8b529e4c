package gnc

import (
	"fmt"
	"math"
)

// GuidanceCommand is the attitude and throttle setting commanded for one
// integration step. Pitch is measured from the local horizontal (π/2 is
// straight up), yaw is the azimuth from local north toward east, and
// throttle lives in [0, 1].
type GuidanceCommand struct {
	Pitch    float64
	Yaw      float64
	Throttle float64
}

// GuidanceLaw defines an ascent guidance interface.
type GuidanceLaw interface {
	Command(s LaunchState) GuidanceCommand
	Reason() string
}

// HoldVertical commands a vertical full-throttle ascent, mostly useful for
// bring-up and tests.
type HoldVertical struct{}

// Command implements the GuidanceLaw interface.
func (HoldVertical) Command(s LaunchState) GuidanceCommand {
	return GuidanceCommand{Pitch: math.Pi / 2, Yaw: 0, Throttle: 1}
}

// Reason implements the GuidanceLaw interface.
func (HoldVertical) Reason() string { return "vertical hold" }

// GravityTurn flies the classic gravity-turn ascent profile: vertical rise,
// then a pitch-over proportional to the velocity gained since the turn
// started, holding the launch azimuth for the target inclination, with the
// throttle pulled back through Max-Q and tapered to zero as the vehicle
// approaches the target orbital speed.
//
// The shape of the profile is the contract; every coefficient here is a
// tunable, not physics.
type GravityTurn struct {
	TargetAltitude    float64 // m above the surface
	TargetInclination float64 // rad
	LaunchLatitude    float64 // rad
	Planet            CelestialObject

	// Tunables, all with usable defaults from NewGravityTurn.
	TurnStartAltitude float64 // m, pitch-over begins past this altitude
	PitchRate         float64 // rad per m/s of velocity gained since turn start
	MaxQLimit         float64 // Pa, dynamic pressure to throttle down at
	MaxQThrottle      float64 // throttle floor while above MaxQLimit
	TaperStart        float64 // fraction of target speed where taper begins

	started bool
	vStart  float64
}

// NewGravityTurn returns a gravity-turn law with the default tuning.
func NewGravityTurn(targetAltitude, targetInclination, launchLatitude float64, planet CelestialObject) *GravityTurn {
	return &GravityTurn{
		TargetAltitude:    targetAltitude,
		TargetInclination: targetInclination,
		LaunchLatitude:    launchLatitude,
		Planet:            planet,
		TurnStartAltitude: 1000,
		PitchRate:         2.8e-4,
		MaxQLimit:         33000,
		MaxQThrottle:      0.7,
		TaperStart:        0.96,
	}
}

// TargetSpeed returns the circular orbital speed at the target altitude.
func (g *GravityTurn) TargetSpeed() float64 {
	return math.Sqrt(g.Planet.GM() / (g.Planet.Radius + g.TargetAltitude))
}

// LaunchAzimuth returns the inertial azimuth β = asin(cos i / cos φ). An
// inclination below the launch latitude is unreachable without a dogleg; the
// argument is clamped and the vehicle flies due east.
func (g *GravityTurn) LaunchAzimuth() float64 {
	cosφ := math.Cos(g.LaunchLatitude)
	if cosφ == 0 {
		return 0
	}
	return math.Asin(clamp(math.Cos(g.TargetInclination)/cosφ, -1, 1))
}

// Command implements the GuidanceLaw interface.
func (g *GravityTurn) Command(s LaunchState) GuidanceCommand {
	cmd := GuidanceCommand{Pitch: math.Pi / 2, Yaw: g.LaunchAzimuth(), Throttle: 1}
	if s.Phase == Prelaunch || s.Phase.Terminal() {
		cmd.Throttle = 0
		return cmd
	}

	if !g.started && s.Altitude >= g.TurnStartAltitude {
		g.started = true
		g.vStart = s.VMag
	}
	if g.started {
		cmd.Pitch = clamp(math.Pi/2-g.PitchRate*(s.VMag-g.vStart), 0, math.Pi/2)
	}

	// Bound dynamic pressure around Max-Q, then taper off approaching the
	// target orbital speed.
	q := 0.5 * s.Atmosphere.Density * s.VMag * s.VMag
	if q > g.MaxQLimit {
		cmd.Throttle = g.MaxQThrottle
	}
	vTgt := g.TargetSpeed()
	if frac := s.VMag / vTgt; frac >= g.TaperStart {
		cmd.Throttle = math.Min(cmd.Throttle, clamp((1-frac)/(1-g.TaperStart), 0, 1))
	}
	return cmd
}

// Reason implements the GuidanceLaw interface.
func (g *GravityTurn) Reason() string {
	return fmt.Sprintf("gravity turn to %.0f km / %.1f°", g.TargetAltitude/1e3, Rad2deg(g.TargetInclination))
}

// Reset clears the turn-start latch, for use when the owning mission resets.
func (g *GravityTurn) Reset() {
	g.started = false
	g.vStart = 0
}
