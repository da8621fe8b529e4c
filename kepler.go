package gnc

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	// keplerTol is the convergence tolerance on the eccentric anomaly.
	keplerTol = 1e-10
	// keplerMinIters and keplerMaxIters bound the Newton iteration so that
	// near-parabolic inputs cannot spin forever.
	keplerMinIters = 5
	keplerMaxIters = 50
	// parabolicε is the eccentricity past which two-body propagation degrades
	// to an unperturbed linear drift.
	parabolicε = 1e-3
)

// Orbit defines an orbit via its orbital elements around a body of
// gravitational parameter μ. Angles in radians, lengths in meters.
type Orbit struct {
	a, e, i, Ω, ω, ν, μ float64
}

// Elements returns the classical orbital elements.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// Energy returns the specific mechanical energy ξ.
func (o Orbit) Energy() float64 {
	return -o.μ / (2 * o.a)
}

// SemiParameter returns the semi-parameter p.
func (o Orbit) SemiParameter() float64 {
	return o.a * (1 - o.e*o.e)
}

// Apoapsis returns the apoapsis radius.
func (o Orbit) Apoapsis() float64 {
	return o.a * (1 + o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.a * (1 - o.e)
}

// Period returns the orbital period in seconds.
func (o Orbit) Period() float64 {
	return 2 * math.Pi * math.Sqrt(math.Pow(o.a, 3)/o.μ)
}

// MeanMotion returns the mean motion n in rad/s.
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(o.μ / math.Pow(o.a, 3))
}

// RNorm returns the radius without computing the radius vector.
func (o Orbit) RNorm() float64 {
	return o.SemiParameter() / (1 + o.e*math.Cos(o.ν))
}

// SinCosE returns the eccentric anomaly trig functions (sin and cos).
func (o Orbit) SinCosE() (sinE, cosE float64) {
	sinν, cosν := math.Sincos(o.ν)
	denom := 1 + o.e*cosν
	sinE = math.Sqrt(1-o.e*o.e) * sinν / denom
	cosE = (o.e + cosν) / denom
	return
}

// MeanAnomaly returns M from the current true anomaly via Kepler's equation.
func (o Orbit) MeanAnomaly() float64 {
	sinE, cosE := o.SinCosE()
	E := math.Atan2(sinE, cosE)
	M := E - o.e*sinE
	M = math.Mod(M, 2*math.Pi)
	if M < 0 {
		M += 2 * math.Pi
	}
	return M
}

// RV returns the position and velocity vectors of this orbit.
func (o Orbit) RV() (R, V []float64) {
	p := o.SemiParameter()
	sinν, cosν := math.Sincos(o.ν)
	R = []float64{p * cosν / (1 + o.e*cosν), p * sinν / (1 + o.e*cosν), 0}
	R = PQW2ECI(o.i, o.ω, o.Ω, R)
	V = []float64{-math.Sqrt(o.μ/p) * sinν, math.Sqrt(o.μ/p) * (o.e + cosν), 0}
	V = PQW2ECI(o.i, o.ω, o.Ω, V)
	return
}

func (o Orbit) String() string {
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}

// NewOrbitFromOE creates an orbit from the orbital elements.
// WARNING: Angles must be in degrees not radians.
func NewOrbitFromOE(a, e, i, Ω, ω, ν, μ float64) *Orbit {
	// Making an approximation for circular and equatorial orbits.
	if e < eccentricityε {
		e = eccentricityε
	}
	if i < Rad2deg(angleε) {
		i = Rad2deg(angleε)
	}
	return &Orbit{a, e, Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν), μ}
}

// NewOrbitFromRV returns orbital elements from the R and V vectors.
// From Vallado's RV2COE, page 113.
func NewOrbitFromRV(R, V []float64, μ float64) *Orbit {
	hVec := Cross(R, V)
	n := Cross([]float64{0, 0, 1}, hVec)
	v := Norm(V)
	r := Norm(R)
	ξ := (v*v)/2 - μ/r
	a := -μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-μ/r)*R[i] - Dot(R, V)*V[i]) / μ
	}
	e := Norm(eVec)
	i := math.Acos(hVec[2] / Norm(hVec))
	ω := math.Acos(Dot(n, eVec) / (Norm(n) * e))
	if math.IsNaN(ω) {
		ω = 0
	}
	if eVec[2] < 0 {
		ω = 2*math.Pi - ω
	}
	Ω := math.Acos(n[0] / Norm(n))
	if math.IsNaN(Ω) {
		Ω = 0
	}
	if n[1] < 0 {
		Ω = 2*math.Pi - Ω
	}
	cosν := Dot(eVec, R) / (e * r)
	if abscosν := math.Abs(cosν); abscosν > 1 && floats.EqualWithinAbs(abscosν, 1, 1e-12) {
		cosν = sign(cosν) // Acos would return NaN on the rounding excess.
	}
	ν := math.Acos(cosν)
	if math.IsNaN(ν) {
		ν = 0
	}
	if Dot(R, V) < 0 {
		ν = 2*math.Pi - ν
	}
	// Fix rounding errors.
	i = math.Mod(i, 2*math.Pi)
	Ω = math.Mod(Ω, 2*math.Pi)
	ω = math.Mod(ω, 2*math.Pi)
	ν = math.Mod(ν, 2*math.Pi)
	return &Orbit{a, e, i, Ω, ω, ν, μ}
}

// SolveKepler solves Kepler's equation M = E - e sin E for the eccentric
// anomaly E by Newton iteration. At least keplerMinIters iterations run even
// after convergence to keplerTol; the count is capped so eccentricities close
// to 1 terminate rather than diverge.
func SolveKepler(M, e float64) (E float64, iters int) {
	E = M
	if e > 0.8 {
		// A cold start from M converges poorly on highly elliptic orbits.
		E = math.Pi
	}
	for iters = 0; iters < keplerMaxIters; iters++ {
		f := E - e*math.Sin(E) - M
		fPrime := 1 - e*math.Cos(E)
		ΔE := f / fPrime
		E -= ΔE
		if math.Abs(ΔE) < keplerTol && iters+1 >= keplerMinIters {
			iters++
			break
		}
	}
	return E, iters
}

// TrueAnomalyFromE converts an eccentric anomaly to a true anomaly.
func TrueAnomalyFromE(E, e float64) float64 {
	sinE, cosE := math.Sincos(E)
	β := math.Sqrt(1 - e*e)
	ν := math.Atan2(β*sinE, cosE-e)
	if ν < 0 {
		ν += 2 * math.Pi
	}
	return ν
}

// PropagateTwoBody advances a purely gravitational two-body state by dt
// seconds around a body of gravitational parameter μ. Exact (to keplerTol)
// for eccentricities up to ~0.9. Near-parabolic and hyperbolic states are a
// documented limitation: they degrade to an unperturbed linear drift instead
// of diverging.
func PropagateTwoBody(R, V []float64, dt, μ float64) (Rf, Vf []float64) {
	o := NewOrbitFromRV(R, V, μ)
	if o.e >= 1-parabolicε || o.a <= 0 {
		Rf = make([]float64, 3)
		for i := 0; i < 3; i++ {
			Rf[i] = R[i] + V[i]*dt
		}
		return Rf, append([]float64{}, V...)
	}
	M := o.MeanAnomaly() + o.MeanMotion()*dt
	M = math.Mod(M, 2*math.Pi)
	if M < 0 {
		M += 2 * math.Pi
	}
	E, _ := SolveKepler(M, o.e)
	o.ν = TrueAnomalyFromE(E, o.e)
	return o.RV()
}
