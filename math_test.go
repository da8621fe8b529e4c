package gnc

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestNormUnit(t *testing.T) {
	v := []float64{3, 4, 0}
	if Norm(v) != 5 {
		t.Fatalf("|[3 4 0]| = %f", Norm(v))
	}
	u := Unit(v)
	if !floats.EqualWithinAbs(Norm(u), 1, 1e-12) {
		t.Fatalf("unit vector has norm %f", Norm(u))
	}
	if !vectorsEqual(Unit([]float64{0, 0, 0}), []float64{0, 0, 0}) {
		t.Fatal("unit of null vector must be null")
	}
}

func TestCrossDot(t *testing.T) {
	i := []float64{1, 0, 0}
	j := []float64{0, 1, 0}
	if !vectorsEqual(Cross(i, j), []float64{0, 0, 1}) {
		t.Fatal("i x j != k")
	}
	if Dot(i, j) != 0 {
		t.Fatal("i . j != 0")
	}
	if Dot(i, i) != 1 {
		t.Fatal("i . i != 1")
	}
}

func TestClamp(t *testing.T) {
	if clamp(2, 0, 1) != 1 || clamp(-2, 0, 1) != 0 || clamp(0.5, 0, 1) != 0.5 {
		t.Fatal("clamp is broken")
	}
}

func TestAngleConversions(t *testing.T) {
	if !floats.EqualWithinAbs(Deg2rad(180), math.Pi, 1e-12) {
		t.Fatal("Deg2rad(180) != π")
	}
	if !floats.EqualWithinAbs(Rad2deg(math.Pi), 180, 1e-12) {
		t.Fatal("Rad2deg(π) != 180")
	}
	if !floats.EqualWithinAbs(Rad2deg180(-math.Pi/2), -90, 1e-12) {
		t.Fatalf("Rad2deg180(-π/2) = %f", Rad2deg180(-math.Pi/2))
	}
}

func TestAllFinite(t *testing.T) {
	if !allFinite([]float64{1, -2, 0}) {
		t.Fatal("finite vector flagged")
	}
	if allFinite([]float64{1, math.NaN(), 0}) || allFinite([]float64{math.Inf(1), 0, 0}) {
		t.Fatal("non-finite vector not flagged")
	}
}
