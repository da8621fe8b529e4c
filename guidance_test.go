package gnc

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestHoldVertical(t *testing.T) {
	cmd := HoldVertical{}.Command(LaunchState{})
	if cmd.Pitch != math.Pi/2 || cmd.Throttle != 1 {
		t.Fatalf("vertical hold commands %+v", cmd)
	}
}

func TestLaunchAzimuth(t *testing.T) {
	// Due-east launch from the equator into an equatorial orbit.
	g := NewGravityTurn(400e3, 0, 0, Earth)
	if !floats.EqualWithinAbs(g.LaunchAzimuth(), math.Pi/2, 1e-12) {
		t.Fatalf("equatorial azimuth is %f", g.LaunchAzimuth())
	}
	// Launching into an inclination equal to the latitude is due east too.
	g = NewGravityTurn(400e3, Deg2rad(28.5), Deg2rad(28.5), Earth)
	if !floats.EqualWithinAbs(g.LaunchAzimuth(), math.Pi/2, 1e-12) {
		t.Fatalf("i=φ azimuth is %f", g.LaunchAzimuth())
	}
	// A polar orbit launches due north.
	g = NewGravityTurn(400e3, Deg2rad(90), Deg2rad(28.5), Earth)
	if !floats.EqualWithinAbs(g.LaunchAzimuth(), 0, 1e-12) {
		t.Fatalf("polar azimuth is %f", g.LaunchAzimuth())
	}
	// Unreachable inclinations clamp instead of returning NaN.
	g = NewGravityTurn(400e3, Deg2rad(10), Deg2rad(28.5), Earth)
	if math.IsNaN(g.LaunchAzimuth()) {
		t.Fatal("unreachable inclination must clamp")
	}
}

func TestGravityTurnProfile(t *testing.T) {
	g := NewGravityTurn(400e3, 0, 0, Earth)

	// On the pad and in terminal phase the engine is cold.
	if cmd := g.Command(LaunchState{Phase: Prelaunch}); cmd.Throttle != 0 {
		t.Fatal("throttle must be zero before liftoff")
	}
	if cmd := g.Command(LaunchState{Phase: OrbitCircularization}); cmd.Throttle != 0 {
		t.Fatal("throttle must be zero once circularized")
	}

	// Vertical rise below the turn start altitude.
	cmd := g.Command(LaunchState{Phase: Liftoff, Altitude: 500, VMag: 100})
	if cmd.Pitch != math.Pi/2 || cmd.Throttle != 1 {
		t.Fatalf("pre-turn command %+v", cmd)
	}

	// Past the turn start, pitch decreases with velocity gained.
	g.Command(LaunchState{Phase: Stage1Burn, Altitude: 1500, VMag: 120})
	cmd = g.Command(LaunchState{Phase: Stage1Burn, Altitude: 5000, VMag: 500})
	if cmd.Pitch >= math.Pi/2 {
		t.Fatal("pitch must decrease after the turn starts")
	}
	later := g.Command(LaunchState{Phase: Stage1Burn, Altitude: 20000, VMag: 1500})
	if later.Pitch >= cmd.Pitch {
		t.Fatal("pitch must keep decreasing as speed builds")
	}
	if later.Pitch < 0 {
		t.Fatal("pitch must never go below the horizon")
	}

	// Max-Q throttles down.
	dense := Atmosphere(10e3)
	cmd = g.Command(LaunchState{Phase: MaxQ, Altitude: 10e3, VMag: 500, Atmosphere: dense})
	if q := 0.5 * dense.Density * 500 * 500; q > g.MaxQLimit && cmd.Throttle != g.MaxQThrottle {
		t.Fatalf("throttle %f at q=%f Pa", cmd.Throttle, q)
	}

	// Approaching target speed, the throttle tapers to zero.
	vTgt := g.TargetSpeed()
	cmd = g.Command(LaunchState{Phase: OrbitalInsertion, Altitude: 390e3, VMag: 0.98 * vTgt, Atmosphere: Atmosphere(390e3)})
	if cmd.Throttle >= 1 || cmd.Throttle <= 0 {
		t.Fatalf("taper throttle %f", cmd.Throttle)
	}
	cmd = g.Command(LaunchState{Phase: OrbitalInsertion, Altitude: 400e3, VMag: vTgt, Atmosphere: Atmosphere(400e3)})
	if cmd.Throttle != 0 {
		t.Fatalf("throttle %f at target speed", cmd.Throttle)
	}

	g.Reset()
	cmd = g.Command(LaunchState{Phase: Liftoff, Altitude: 500, VMag: 100})
	if cmd.Pitch != math.Pi/2 {
		t.Fatal("reset must clear the turn latch")
	}
}

func TestTargetSpeed(t *testing.T) {
	g := NewGravityTurn(400e3, 0, 0, Earth)
	expected := math.Sqrt(Earth.GM() / (Earth.Radius + 400e3))
	if !floats.EqualWithinRel(g.TargetSpeed(), expected, 1e-12) {
		t.Fatalf("target speed %f != %f", g.TargetSpeed(), expected)
	}
	if g.TargetSpeed() < 7600 || g.TargetSpeed() > 7700 {
		t.Fatalf("circular speed at 400 km is %f m/s", g.TargetSpeed())
	}
}
