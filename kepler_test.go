package gnc

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestOrbitRV2COE(t *testing.T) {
	// Vallado example 2-5, scaled to meters.
	R := []float64{6524.834e3, 6862.875e3, 6448.296e3}
	V := []float64{4.901327e3, 5.533756e3, -1.976341e3}
	o := NewOrbitFromRV(R, V, Earth.GM())
	a, e, i, Ω, ω, ν := o.Elements()
	if !floats.EqualWithinRel(a, 36127.343e3, 1e-4) {
		t.Fatalf("a=%f m", a)
	}
	if !floats.EqualWithinAbs(e, 0.832853, 1e-5) {
		t.Fatalf("e=%f", e)
	}
	for name, angle := range map[string][2]float64{
		"i": {i, 87.870},
		"Ω": {Ω, 227.898},
		"ω": {ω, 53.385},
		"ν": {ν, 92.335},
	} {
		if ok, err := anglesEqual(angle[0], Deg2rad(angle[1])); !ok {
			t.Fatalf("%s invalid: %s", name, err)
		}
	}
	valladoξ := -5.516604e6 // m²/s², Vallado's km² value scaled
	if !floats.EqualWithinRel(o.Energy(), valladoξ, 1e-5) {
		t.Fatalf("incorrect energy ξ=%f", o.Energy())
	}
}

func TestOrbitCOE2RV(t *testing.T) {
	o := NewOrbitFromOE(36126.64283e3, 0.83280, 87.874925, 227.891253, 53.378089, 92.335027, Earth.GM())
	R, V := o.RV()
	if !vectorsEqual(R, []float64{6524.344e3, 6861.535e3, 6449.125e3}) {
		t.Fatalf("R vector incorrectly computed: %+v", R)
	}
	if !vectorsEqual(V, []float64{4.902276e3, 5.533124e3, -1.975709e3}) {
		t.Fatalf("V vector incorrectly computed: %+v", V)
	}
}

func TestOrbitAccessors(t *testing.T) {
	o := NewOrbitFromOE(7000e3, 0.1, 30, 40, 50, 60, Earth.GM())
	if !floats.EqualWithinRel(o.Apoapsis(), 7700e3, 1e-12) {
		t.Fatalf("apoapsis=%f", o.Apoapsis())
	}
	if !floats.EqualWithinRel(o.Periapsis(), 6300e3, 1e-12) {
		t.Fatalf("periapsis=%f", o.Periapsis())
	}
	if !floats.EqualWithinRel(o.SemiParameter(), 7000e3*(1-0.01), 1e-12) {
		t.Fatalf("p=%f", o.SemiParameter())
	}
	// ν = 60° must be recovered from M through Kepler's equation.
	E, _ := SolveKepler(o.MeanAnomaly(), 0.1)
	if ok, err := anglesEqual(TrueAnomalyFromE(E, 0.1), Deg2rad(60)); !ok {
		t.Fatalf("true anomaly round trip failed: %s", err)
	}
}

func TestSolveKeplerConvergence(t *testing.T) {
	for _, e := range []float64{0, 0.1, 0.5, 0.8, 0.9, 0.95} {
		for M := 0.1; M < 2*math.Pi; M += 0.5 {
			E, iters := SolveKepler(M, e)
			if iters < keplerMinIters || iters > keplerMaxIters {
				t.Fatalf("e=%f M=%f converged in %d iterations", e, M, iters)
			}
			if residual := E - e*math.Sin(E) - M; math.Abs(residual) > 1e-9 {
				t.Fatalf("e=%f M=%f residual=%e", e, M, residual)
			}
		}
	}
}

func TestPropagateTwoBodyPeriod(t *testing.T) {
	o := NewOrbitFromOE(7000e3, 0.01, 30, 40, 50, 60, Earth.GM())
	R0, V0 := o.RV()
	Rf, Vf := PropagateTwoBody(R0, V0, o.Period(), Earth.GM())
	for i := 0; i < 3; i++ {
		if !floats.EqualWithinAbs(Rf[i], R0[i], 1) {
			t.Fatalf("R did not close after one period:\n%+v\n%+v", R0, Rf)
		}
		if !floats.EqualWithinAbs(Vf[i], V0[i], 1e-2) {
			t.Fatalf("V did not close after one period:\n%+v\n%+v", V0, Vf)
		}
	}
}

func TestPropagateTwoBodyEnergy(t *testing.T) {
	o := NewOrbitFromOE(6771e3, 0.001, 28.5, 0, 0, 0, Earth.GM())
	R, V := o.RV()
	ξ0 := NewOrbitFromRV(R, V, Earth.GM()).Energy()
	for step := 0; step < 100; step++ {
		R, V = PropagateTwoBody(R, V, 60, Earth.GM())
	}
	ξ := NewOrbitFromRV(R, V, Earth.GM()).Energy()
	if !floats.EqualWithinRel(ξ, ξ0, 1e-8) {
		t.Fatalf("energy drifted from %f to %f", ξ0, ξ)
	}
}

func TestPropagateTwoBodyNearParabolic(t *testing.T) {
	// Hyperbolic and near-parabolic states degrade to a linear drift.
	R := []float64{7000e3, 0, 0}
	V := []float64{0, 12000, 0} // well above escape velocity
	Rf, Vf := PropagateTwoBody(R, V, 10, Earth.GM())
	if !vectorsEqual(Rf, []float64{7000e3, 120000, 0}) {
		t.Fatalf("drift position: %+v", Rf)
	}
	if !vectorsEqual(Vf, V) {
		t.Fatalf("drift velocity: %+v", Vf)
	}
}
