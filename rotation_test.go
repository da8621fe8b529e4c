package gnc

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestR1R2R3(t *testing.T) {
	x := []float64{1, 0, 0}
	// Rotating the frame by 90° about Z maps inertial X to frame -Y... for
	// the vector rotation used here, X lands on Y's negative axis.
	if got := MxV33(R3(math.Pi/2), x); !vectorsEqual(got, []float64{0, -1, 0}) {
		t.Fatalf("R3(90°)x = %+v", got)
	}
	if got := MxV33(R2(math.Pi/2), []float64{0, 0, 1}); !vectorsEqual(got, []float64{-1, 0, 0}) {
		t.Fatalf("R2(90°)z = %+v", got)
	}
	if got := MxV33(R1(math.Pi/2), []float64{0, 1, 0}); !vectorsEqual(got, []float64{0, 0, -1}) {
		t.Fatalf("R1(90°)y = %+v", got)
	}
}

func TestR3R1R3Identity(t *testing.T) {
	v := []float64{1, 2, 3}
	if got := Rot313Vec(0, 0, 0, v); !vectorsEqual(got, v) {
		t.Fatalf("null rotation moved the vector: %+v", got)
	}
	// A 3-1-3 sequence with zero middle angle collapses to one R3 rotation.
	a := Rot313Vec(0.3, 0, 0.4, v)
	b := MxV33(R3(0.7), v)
	if !vectorsEqual(a, b) {
		t.Fatalf("R3R1R3(0.3, 0, 0.4) != R3(0.7): %+v vs %+v", a, b)
	}
}

func TestPQW2ECIEquatorial(t *testing.T) {
	// With all angles null the perifocal frame is the inertial frame.
	v := []float64{100, 200, 0}
	if got := PQW2ECI(0, 0, 0, v); !vectorsEqual(got, v) {
		t.Fatalf("identity transform moved the vector: %+v", got)
	}
	// A 90° inclination maps the perifocal Q axis onto inertial Z.
	got := PQW2ECI(math.Pi/2, 0, 0, []float64{0, 1, 0})
	if !vectorsEqual(got, []float64{0, 0, 1}) {
		t.Fatalf("polar transform: %+v", got)
	}
	// A rotation never changes the norm.
	r := PQW2ECI(0.3, 1.2, 2.1, []float64{3, 4, 12})
	if !floats.EqualWithinAbs(Norm(r), 13, 1e-9) {
		t.Fatalf("rotation changed the norm to %f", Norm(r))
	}
}

func TestTopocentricFrame(t *testing.T) {
	up, east, north := topocentricFrame([]float64{Earth.Radius, 0, 0})
	if !vectorsEqual(up, []float64{1, 0, 0}) || !vectorsEqual(east, []float64{0, 1, 0}) || !vectorsEqual(north, []float64{0, 0, 1}) {
		t.Fatalf("equatorial frame: up=%+v east=%+v north=%+v", up, east, north)
	}
	// The frame stays orthonormal at mid latitudes.
	up, east, north = topocentricFrame([]float64{4e6, 2e6, 4e6})
	for _, pair := range [][2][]float64{{up, east}, {up, north}, {east, north}} {
		if !floats.EqualWithinAbs(Dot(pair[0], pair[1]), 0, 1e-12) {
			t.Fatal("frame is not orthogonal")
		}
	}
	// At the pole, east degenerates and falls back to inertial Y.
	_, east, _ = topocentricFrame([]float64{0, 0, Earth.Radius})
	if !vectorsEqual(east, []float64{0, 1, 0}) {
		t.Fatalf("polar east: %+v", east)
	}
}
