package gnc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/julian"
)

const (
	// AU is one astronomical unit in meters.
	AU = 1.49597870700e11
	// EarthRotationRate is the average Earth rotation rate in radians per second.
	EarthRotationRate = 7.2921158553e-5
)

// J2000 is the reference epoch of all the element sets in CelestialBodies.
var J2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// CelestialObject defines the gravitating body at the center of a simulation.
type CelestialObject struct {
	Name         string
	Radius       float64 // mean radius in m
	a            float64 // heliocentric semi-major axis in m
	μ            float64 // gravitational parameter in m^3/s^2
	RotationRate float64 // sidereal rotation rate in rad/s
	SOI          float64 // sphere of influence with respect to the Sun, in m
	J2           float64
}

// GM returns μ (which is unexported because it's a lowercase letter).
func (c CelestialObject) GM() float64 {
	return c.μ
}

// SurfaceSpeed returns the inertial speed of a point fixed on the surface at
// the given latitude (radians), from the body's rotation alone.
func (c CelestialObject) SurfaceSpeed(latitude float64) float64 {
	return c.RotationRate * c.Radius * math.Cos(latitude)
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c *CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.SOI == b.SOI
}

// CelestialObjectFromString returns the object from its name.
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "moon":
		return Moon, nil
	case "mars":
		return Mars, nil
	case "venus":
		return Venus, nil
	case "sun":
		return Sun, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined body '%s'", name)
	}
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", 6.957e8, 0, 1.32712440018e20, 2.865e-6, -1, 0}

// Venus is poisonous.
var Venus = CelestialObject{"Venus", 6.0518e6, 1.08209e11, 3.24858592e14, -2.99e-7, 6.16e8, 4.458e-6}

// Earth is home.
var Earth = CelestialObject{"Earth", 6.371e6, 1.49598023e11, 3.986004418e14, EarthRotationRate, 9.24645e8, 1082.6269e-6}

// Moon is the one we left footprints on.
var Moon = CelestialObject{"Moon", 1.7374e6, 3.844e8, 4.9048695e12, 2.6617e-6, 6.61e7, 202.7e-6}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", 3.3895e6, 2.27939366e11, 4.282837e13, 7.088e-5, 5.76e8, 1964e-6}

// BodyElements is an immutable Keplerian element set for a celestial body,
// referred to the J2000 epoch. None of the core mutates these.
type BodyElements struct {
	Name        string
	Parent      CelestialObject
	A           float64 // semi-major axis, m
	E           float64 // eccentricity
	I           float64 // inclination, rad
	Ω           float64 // longitude of the ascending node, rad
	ω           float64 // argument of periapsis, rad
	M0          float64 // mean anomaly at epoch, rad
	Period      float64 // orbital period, s
}

// MeanMotion returns the mean motion n in rad/s.
func (b BodyElements) MeanMotion() float64 {
	return 2 * math.Pi / b.Period
}

// MeanAnomalyAt returns the mean anomaly at the provided date, in [0, 2π).
func (b BodyElements) MeanAnomalyAt(dt time.Time) float64 {
	Δdays := julian.TimeToJD(dt) - julian.TimeToJD(J2000)
	M := b.M0 + b.MeanMotion()*Δdays*86400
	M = math.Mod(M, 2*math.Pi)
	if M < 0 {
		M += 2 * math.Pi
	}
	return M
}

// RV returns the position and velocity of the body around its parent at the
// provided date, in the parent's inertial frame.
func (b BodyElements) RV(dt time.Time) (R, V []float64) {
	E, _ := SolveKepler(b.MeanAnomalyAt(dt), b.E)
	ν := TrueAnomalyFromE(E, b.E)
	o := Orbit{a: b.A, e: b.E, i: b.I, Ω: b.Ω, ω: b.ω, ν: ν, μ: b.Parent.GM()}
	return o.RV()
}

func (b BodyElements) String() string {
	return fmt.Sprintf("%s: a=%.0f km e=%.4f i=%.3f° T=%.2f d", b.Name, b.A/1e3, b.E, Rad2deg(b.I), b.Period/86400)
}

// CelestialBodies lists the element-set presets consumed read-only by the
// visualization layer. Heliocentric for the planets, geocentric for the Moon.
var CelestialBodies = map[string]BodyElements{
	"Mercury": {"Mercury", Sun, 5.790905e10, 0.20563, Deg2rad(7.005), Deg2rad(48.331), Deg2rad(29.124), Deg2rad(174.796), 87.9691 * 86400},
	"Venus":   {"Venus", Sun, 1.0820893e11, 0.006772, Deg2rad(3.39458), Deg2rad(76.680), Deg2rad(54.884), Deg2rad(50.115), 224.701 * 86400},
	"Earth":   {"Earth", Sun, 1.49598023e11, 0.0167086, Deg2rad(0.00005), Deg2rad(348.739), Deg2rad(114.208), Deg2rad(358.617), 365.256363 * 86400},
	"Mars":    {"Mars", Sun, 2.27939366e11, 0.0934, Deg2rad(1.850), Deg2rad(49.558), Deg2rad(286.502), Deg2rad(19.412), 686.980 * 86400},
	"Moon":    {"Moon", Earth, 3.84399e8, 0.0549, Deg2rad(5.145), Deg2rad(125.08), Deg2rad(318.15), Deg2rad(135.27), 27.321661 * 86400},
}
