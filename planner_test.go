package gnc

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func diamondGraph() SparseGraph {
	// 0 -> 1 (1), 0 -> 2 (4), 1 -> 2 (2), 1 -> 3 (5), 2 -> 3 (1)
	return SparseGraph{
		NodeCount:     4,
		OutgoingEdges: []uint32{0, 2, 4, 5, 5},
		Destinations:  []uint32{1, 2, 2, 3, 3},
		Weights:       []float64{1, 4, 2, 5, 1},
	}
}

func TestSparseGraphValidate(t *testing.T) {
	g := diamondGraph()
	if err := g.Validate(); err != nil {
		t.Fatalf("valid graph rejected: %s", err)
	}
	bad := diamondGraph()
	bad.OutgoingEdges = bad.OutgoingEdges[:3]
	if bad.Validate() == nil {
		t.Fatal("truncated offsets accepted")
	}
	bad = diamondGraph()
	bad.OutgoingEdges[1] = 3
	bad.OutgoingEdges[2] = 2
	if bad.Validate() == nil {
		t.Fatal("non-monotonic offsets accepted")
	}
	bad = diamondGraph()
	bad.Destinations[0] = 9
	if bad.Validate() == nil {
		t.Fatal("out-of-range destination accepted")
	}
	bad = diamondGraph()
	bad.Weights[0] = -1
	if bad.Validate() == nil {
		t.Fatal("negative weight accepted")
	}
	bad = diamondGraph()
	bad.Weights[0] = math.NaN()
	if bad.Validate() == nil {
		t.Fatal("NaN weight accepted")
	}
}

func TestSolveSSSP(t *testing.T) {
	g := diamondGraph()
	res, err := SolveSSSP(g, 0)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{0, 1, 3, 4}
	for i, d := range expected {
		if res.Distances[i] != d {
			t.Fatalf("distance to %d is %f, expected %f", i, res.Distances[i], d)
		}
	}
	if path := res.PathTo(3); len(path) != 4 || path[0] != 0 || path[1] != 1 || path[2] != 2 || path[3] != 3 {
		t.Fatalf("shortest path to 3 is %v", path)
	}
	if res.NodesVisited == 0 || res.EdgesRelaxed == 0 {
		t.Fatal("solve statistics are empty")
	}
	// Node 0 is unreachable from node 3.
	res, err = SolveSSSP(g, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(res.Distances[0], 1) || res.PathTo(0) != nil {
		t.Fatal("unreachable node must have an infinite distance and no path")
	}
	if _, err = SolveSSSP(g, 42); err == nil {
		t.Fatal("invalid source accepted")
	}
}

func TestTrajectoryGraphBuilder(t *testing.T) {
	b := TrajectoryGraphBuilder{
		PositionResolution: 8,
		VelocityResolution: 5,
		TimeSteps:          6,
		ΔvStep:             10,
		Stage:              Falcon9.Stages[1],
		WetMass:            10000,
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount != 8*5*6 {
		t.Fatalf("node count %d", g.NodeCount)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("generated graph invalid: %s", err)
	}
	// A plan from the first layer must reach the final layer spending at
	// most one burn per step.
	res, err := SolveSSSP(g, b.nodeID(4, 2, 0))
	if err != nil {
		t.Fatal(err)
	}
	target := b.nodeID(4, 2, b.TimeSteps-1)
	if math.IsInf(res.Distances[target], 1) {
		t.Fatal("terminal layer unreachable")
	}
	// Holding the center velocity bin costs nothing: pure coast.
	if res.Distances[target] != 0 {
		t.Fatalf("coasting plan costs %f kg", res.Distances[target])
	}
	burnCost := b.burnCost(b.ΔvStep)
	offTarget := b.nodeID(4, 3, b.TimeSteps-1)
	if !floats.EqualWithinRel(res.Distances[offTarget], burnCost, 1e-12) {
		t.Fatalf("single burn plan costs %f, expected %f", res.Distances[offTarget], burnCost)
	}
	// The rocket equation cost must be positive and below the wet mass.
	if burnCost <= 0 || burnCost >= b.WetMass {
		t.Fatalf("burn cost %f kg", burnCost)
	}
}

func TestTrajectoryGraphBuilderValidation(t *testing.T) {
	b := TrajectoryGraphBuilder{PositionResolution: 0, VelocityResolution: 1, TimeSteps: 1, ΔvStep: 1, Stage: Falcon9.Stages[0], WetMass: 1}
	if _, err := b.Build(); err == nil {
		t.Fatal("zero resolution accepted")
	}
	b = TrajectoryGraphBuilder{PositionResolution: 2, VelocityResolution: 2, TimeSteps: 2, ΔvStep: 0, Stage: Falcon9.Stages[0], WetMass: 1}
	if _, err := b.Build(); err == nil {
		t.Fatal("zero Δv step accepted")
	}
}
