package gnc

import (
	"container/heap"
	"fmt"
	"math"
)

// SparseGraph is a compressed sparse row maneuver graph. OutgoingEdges has
// node count plus one entries; the edges of node i are the half-open range
// OutgoingEdges[i] to OutgoingEdges[i+1] into Destinations and Weights.
type SparseGraph struct {
	NodeCount     int
	OutgoingEdges []uint32
	Destinations  []uint32
	Weights       []float64
}

// EdgeCount returns the number of directed edges.
func (g SparseGraph) EdgeCount() int {
	return len(g.Destinations)
}

// Validate checks the CSR structure integrity: array lengths, monotonic edge
// offsets, in-range destinations, and finite non-negative weights.
func (g SparseGraph) Validate() error {
	if len(g.OutgoingEdges) != g.NodeCount+1 {
		return fmt.Errorf("outgoing edges must have %d entries (got %d)", g.NodeCount+1, len(g.OutgoingEdges))
	}
	if len(g.Weights) != len(g.Destinations) {
		return fmt.Errorf("destinations and weights must have equal lengths (%d != %d)", len(g.Destinations), len(g.Weights))
	}
	if int(g.OutgoingEdges[g.NodeCount]) != len(g.Destinations) {
		return fmt.Errorf("final edge offset %d does not match edge count %d", g.OutgoingEdges[g.NodeCount], len(g.Destinations))
	}
	for i := 0; i < g.NodeCount; i++ {
		if g.OutgoingEdges[i] > g.OutgoingEdges[i+1] {
			return fmt.Errorf("non-monotonic edge offsets at node %d", i)
		}
	}
	for _, dest := range g.Destinations {
		if int(dest) >= g.NodeCount {
			return fmt.Errorf("destination node %d out of range", dest)
		}
	}
	for i, w := range g.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("edge %d has invalid weight %v", i, w)
		}
	}
	return nil
}

// SSSPResult holds the single-source shortest path tree and solve statistics.
type SSSPResult struct {
	Distances    []float64 // +Inf for unreachable nodes
	Predecessors []int     // -1 for the source and unreachable nodes
	NodesVisited int
	EdgesRelaxed int
}

// PathTo reconstructs the node sequence from the source to target, inclusive.
// It returns nil if the target is unreachable.
func (r SSSPResult) PathTo(target int) []int {
	if target < 0 || target >= len(r.Distances) || math.IsInf(r.Distances[target], 1) {
		return nil
	}
	var rev []int
	for at := target; at != -1; at = r.Predecessors[at] {
		rev = append(rev, at)
	}
	path := make([]int, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

type heapNode struct {
	node     int
	distance float64
}

type nodeHeap []heapNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].distance < h[j].distance }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(heapNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// SolveSSSP computes single-source shortest paths over the maneuver graph
// with a binary-heap Dijkstra. The graph must validate and all weights are
// non-negative, so the first settle of a node is final.
func SolveSSSP(g SparseGraph, source int) (SSSPResult, error) {
	if err := g.Validate(); err != nil {
		return SSSPResult{}, err
	}
	if source < 0 || source >= g.NodeCount {
		return SSSPResult{}, fmt.Errorf("invalid source node %d", source)
	}
	res := SSSPResult{
		Distances:    make([]float64, g.NodeCount),
		Predecessors: make([]int, g.NodeCount),
	}
	visited := make([]bool, g.NodeCount)
	for i := range res.Distances {
		res.Distances[i] = math.Inf(1)
		res.Predecessors[i] = -1
	}
	res.Distances[source] = 0

	h := &nodeHeap{{source, 0}}
	heap.Init(h)
	for h.Len() > 0 {
		cur := heap.Pop(h).(heapNode)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		res.NodesVisited++
		if cur.distance > res.Distances[cur.node] {
			continue
		}
		for e := g.OutgoingEdges[cur.node]; e < g.OutgoingEdges[cur.node+1]; e++ {
			neighbor := int(g.Destinations[e])
			newDist := cur.distance + g.Weights[e]
			res.EdgesRelaxed++
			if newDist < res.Distances[neighbor] {
				res.Distances[neighbor] = newDist
				res.Predecessors[neighbor] = cur.node
				if !visited[neighbor] {
					heap.Push(h, heapNode{neighbor, newDist})
				}
			}
		}
	}
	return res, nil
}

// TrajectoryGraphBuilder discretizes a maneuver state space into a sparse
// graph whose edge weights are propellant costs of candidate burns.
type TrajectoryGraphBuilder struct {
	PositionResolution int
	VelocityResolution int
	TimeSteps          int
	// ΔvStep is the velocity change of the smallest candidate burn, m/s.
	ΔvStep float64
	// Stage provides the Isp used to convert Δv into propellant mass.
	Stage Stage
	// WetMass is the vehicle mass at the start of planning, kg.
	WetMass float64
}

// nodeID flattens a (position, velocity, time) lattice point.
func (b TrajectoryGraphBuilder) nodeID(pos, vel, step int) int {
	return (step*b.VelocityResolution+vel)*b.PositionResolution + pos
}

// burnCost converts a Δv into consumed propellant mass via the rocket
// equation, from the planning wet mass.
func (b TrajectoryGraphBuilder) burnCost(Δv float64) float64 {
	if b.Stage.Isp <= 0 {
		panic("trajectory graph stage must have a strictly positive Isp")
	}
	return b.WetMass * (1 - math.Exp(-Δv/(b.Stage.Isp*G0)))
}

// Build generates the CSR maneuver graph. From every lattice node the vehicle
// may coast to the next time step for free, hold position with a small burn,
// or shift one velocity bin up or down for the matching propellant cost.
func (b TrajectoryGraphBuilder) Build() (SparseGraph, error) {
	if b.PositionResolution <= 0 || b.VelocityResolution <= 0 || b.TimeSteps <= 0 {
		return SparseGraph{}, fmt.Errorf("lattice resolutions must be strictly positive")
	}
	if b.ΔvStep <= 0 || b.WetMass <= 0 {
		return SparseGraph{}, fmt.Errorf("Δv step and wet mass must be strictly positive")
	}
	nodeCount := b.PositionResolution * b.VelocityResolution * b.TimeSteps
	g := SparseGraph{
		NodeCount:     nodeCount,
		OutgoingEdges: make([]uint32, nodeCount+1),
	}
	var edgeIdx uint32
	for step := 0; step < b.TimeSteps; step++ {
		for vel := 0; vel < b.VelocityResolution; vel++ {
			for pos := 0; pos < b.PositionResolution; pos++ {
				node := b.nodeID(pos, vel, step)
				g.OutgoingEdges[node] = edgeIdx
				if step == b.TimeSteps-1 {
					continue // terminal layer, no further maneuvers
				}
				// Coast: position drifts by the velocity bin offset from the
				// lattice center, no propellant spent.
				drift := vel - b.VelocityResolution/2
				if coastPos := pos + drift; coastPos >= 0 && coastPos < b.PositionResolution {
					g.Destinations = append(g.Destinations, uint32(b.nodeID(coastPos, vel, step+1)))
					g.Weights = append(g.Weights, 0)
					edgeIdx++
				}
				// Burns: shift one velocity bin either way.
				for _, dv := range []int{-1, 1} {
					if newVel := vel + dv; newVel >= 0 && newVel < b.VelocityResolution {
						g.Destinations = append(g.Destinations, uint32(b.nodeID(pos, newVel, step+1)))
						g.Weights = append(g.Weights, b.burnCost(b.ΔvStep))
						edgeIdx++
					}
				}
			}
		}
	}
	g.OutgoingEdges[nodeCount] = edgeIdx
	if err := g.Validate(); err != nil {
		panic(fmt.Errorf("generated maneuver graph does not validate: %s", err))
	}
	return g, nil
}
