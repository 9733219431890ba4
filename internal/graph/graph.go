// Package graph builds the weighted 3D connectivity graph a GridStack
// implies: intra-floor 4/8-connectivity edges, a per-floor stair-group
// flood fill (each group lies on one floor; groups never span floors),
// and angle-constrained inter-floor stair edges with a full-connect
// fallback. Grounded on original_source/pathfinding.py's _create_graph and
// _connect_stairs, generalized to the richer angle-check variant (see
// DESIGN.md's Open Question decision).
package graph

import (
	"math"

	"egress/internal/model"
)

const (
	sqrt2             = math.Sqrt2
	stairStepWeight   = 4.0
	flatStepWeight    = 1.0
	compassSectors    = 16
	compassToleranceD = 5.0 // degrees off the nearest of 16 compass bearings still counted as aligned
)

// Options controls graph construction.
type Options struct {
	AllowDiagonal bool
	// MinimizeCost scales diagonal steps by sqrt(2) to approximate physical
	// distance. When false, diagonal and orthogonal steps cost the same,
	// minimizing hop count instead.
	MinimizeCost bool
}

// Graph is the weighted connectivity graph over passable cells.
type Graph struct {
	Adjacency map[model.Node][]model.Edge
}

func newGraph() *Graph { return &Graph{Adjacency: make(map[model.Node][]model.Edge)} }

func (g *Graph) addEdge(a, b model.Node, weight float64) {
	g.Adjacency[a] = append(g.Adjacency[a], model.Edge{A: a, B: b, Weight: weight})
	g.Adjacency[b] = append(g.Adjacency[b], model.Edge{A: b, B: a, Weight: weight})
}

// Neighbors returns the edges leaving node n.
func (g *Graph) Neighbors(n model.Node) []model.Edge { return g.Adjacency[n] }

// Build constructs the graph from a GridStack.
func Build(stack *model.GridStack, opts Options) *Graph {
	g := newGraph()
	buildIntraFloorEdges(g, stack, opts)
	buildStairEdges(g, stack, opts)
	return g
}

func buildIntraFloorEdges(g *Graph, stack *model.GridStack, opts Options) {
	dirs := fourDirs
	if opts.AllowDiagonal {
		dirs = eightDirs
	}
	for floorIdx, grid := range stack.Grids {
		for r := 0; r < grid.Rows; r++ {
			for c := 0; c < grid.Cols; c++ {
				if !grid.At(r, c).Passable() {
					continue
				}
				a := model.Node{Row: r, Col: c, Floor: floorIdx}
				for _, d := range dirs {
					nr, nc := r+d.dr, c+d.dc
					if !grid.InBounds(nr, nc) {
						continue
					}
					kind := grid.At(nr, nc)
					if !kind.Passable() {
						continue
					}
					// only emit each undirected edge once: canonical order
					// by (row, col) avoids double-adding a-b and b-a.
					if !less(a.Row, a.Col, nr, nc) {
						continue
					}
					b := model.Node{Row: nr, Col: nc, Floor: floorIdx}
					weight := stepWeight(kind, d.diagonal, opts.MinimizeCost)
					g.addEdge(a, b, weight)
				}
			}
		}
	}
}

func less(r1, c1, r2, c2 int) bool {
	if r1 != r2 {
		return r1 < r2
	}
	return c1 < c2
}

func stepWeight(targetKind model.CellKind, diagonal bool, minimizeCost bool) float64 {
	base := flatStepWeight
	if targetKind == model.Stair {
		base = stairStepWeight
	}
	if diagonal && minimizeCost {
		return base * sqrt2
	}
	return base
}

type direction struct {
	dr, dc   int
	diagonal bool
}

var fourDirs = []direction{
	{-1, 0, false}, {1, 0, false}, {0, -1, false}, {0, 1, false},
}

var eightDirs = append(append([]direction{}, fourDirs...),
	direction{-1, -1, true}, direction{-1, 1, true}, direction{1, -1, true}, direction{1, 1, true},
)

// stairGroup is a 4-connected cluster of Stair cells on one floor.
type stairGroup struct {
	points        []model.Point2I
	centroidRow   float64
	centroidCol   float64
}

func stairGroups(grid *model.Grid) []stairGroup {
	visited := make([]bool, grid.Rows*grid.Cols)
	var groups []stairGroup
	dirs := fourDirs
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			idx := r*grid.Cols + c
			if visited[idx] || grid.At(r, c) != model.Stair {
				continue
			}
			stack := []model.Point2I{{Row: r, Col: c}}
			visited[idx] = true
			var pts []model.Point2I
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pts = append(pts, p)
				for _, d := range dirs {
					nr, nc := p.Row+d.dr, p.Col+d.dc
					if !grid.InBounds(nr, nc) {
						continue
					}
					nidx := nr*grid.Cols + nc
					if visited[nidx] || grid.At(nr, nc) != model.Stair {
						continue
					}
					visited[nidx] = true
					stack = append(stack, model.Point2I{Row: nr, Col: nc})
				}
			}
			var sr, sc float64
			for _, p := range pts {
				sr += float64(p.Row)
				sc += float64(p.Col)
			}
			n := float64(len(pts))
			groups = append(groups, stairGroup{points: pts, centroidRow: sr / n, centroidCol: sc / n})
		}
	}
	return groups
}

// buildStairEdges connects stair groups on adjacent floors: angle-aligned,
// line-of-sight-validated pairs first; if no pair on a floor boundary
// passes that check, every group on one floor is connected to every group
// on the next (full-connect fallback) so floors never become disconnected.
func buildStairEdges(g *Graph, stack *model.GridStack, opts Options) {
	for f := 0; f+1 < len(stack.Grids); f++ {
		groupsA := stairGroups(stack.Grids[f])
		groupsB := stairGroups(stack.Grids[f+1])
		if len(groupsA) == 0 || len(groupsB) == 0 {
			continue
		}
		connectedAny := false
		for _, a := range groupsA {
			for _, b := range groupsB {
				if anglesAlign(a, b) && lineOfSightClear(stack.Grids[f], a, b) {
					connectStairGroups(g, a, b, f, f+1)
					connectedAny = true
				}
			}
		}
		if !connectedAny {
			for _, a := range groupsA {
				for _, b := range groupsB {
					connectStairGroups(g, a, b, f, f+1)
				}
			}
		}
	}
}

func connectStairGroups(g *Graph, a, b stairGroup, floorA, floorB int) {
	pr, pc, qr, qc := nearestPoints(a, b)
	na := model.Node{Row: pr, Col: pc, Floor: floorA}
	nb := model.Node{Row: qr, Col: qc, Floor: floorB}
	g.addEdge(na, nb, stairStepWeight)
}

func nearestPoints(a, b stairGroup) (pr, pc, qr, qc int) {
	best := math.Inf(1)
	for _, p := range a.points {
		for _, q := range b.points {
			dr := float64(p.Row - q.Row)
			dc := float64(p.Col - q.Col)
			d := dr*dr + dc*dc
			if d < best {
				best = d
				pr, pc, qr, qc = p.Row, p.Col, q.Row, q.Col
			}
		}
	}
	return
}

// anglesAlign reports whether the vector between two stair group centroids
// snaps to one of 16 compass bearings within tolerance.
func anglesAlign(a, b stairGroup) bool {
	dr := b.centroidRow - a.centroidRow
	dc := b.centroidCol - a.centroidCol
	if dr == 0 && dc == 0 {
		return true
	}
	angle := math.Atan2(dr, dc) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	sector := 360.0 / compassSectors
	nearest := math.Round(angle/sector) * sector
	diff := math.Abs(angle - nearest)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff <= compassToleranceD
}

// lineOfSightClear walks a DDA line between the two centroids (projected
// onto one floor's grid) and reports whether it avoids Wall cells.
func lineOfSightClear(grid *model.Grid, a, b stairGroup) bool {
	r0, c0 := a.centroidRow, a.centroidCol
	r1, c1 := b.centroidRow, b.centroidCol
	dr := r1 - r0
	dc := c1 - c0
	steps := int(math.Max(math.Abs(dr), math.Abs(dc)))
	if steps == 0 {
		return true
	}
	stepR := dr / float64(steps)
	stepC := dc / float64(steps)
	r, c := r0, c0
	for i := 0; i <= steps; i++ {
		rr, cc := int(math.Round(r)), int(math.Round(c))
		if grid.InBounds(rr, cc) && grid.At(rr, cc) == model.Wall {
			return false
		}
		r += stepR
		c += stepC
	}
	return true
}
