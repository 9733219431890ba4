// Package router computes worst-case escape routes: quadrant-based
// candidate selection inside a space, A* search to the nearest reachable
// exit, and the argmax-over-candidates choice that picks the true
// worst-case route. Grounded on original_source/pathfinding.py's
// calculate_escape_route/_select_candidate_points/find_path/_heuristic,
// reshaped around this module's own Graph and container/heap instead of
// networkx.
package router

import (
	"container/heap"
	"math"

	"egress/internal/graph"
	"egress/internal/model"
)

const verticalHeuristicWeight = 3.0

// FindWorstCaseRoute selects the worst-case candidate in a space (the one
// whose best reachable exit is furthest) and returns the fully described
// Route. rawStack is the pre-buffer grid stack (used only to tag each
// path step with its real cell kind and to locate the first stair step).
func FindWorstCaseRoute(g *graph.Graph, space model.Space, exits []model.Exit, rawStack *model.GridStack, cellSize float64) model.Route {
	route := model.Route{SpaceID: space.ID, SpaceName: space.Name, Floor: space.Floor}
	if len(exits) == 0 || len(space.Points) == 0 {
		route.Distance = -1
		route.DistanceToStair = -1
		return route
	}

	candidates := selectCandidates(space)
	exitNodes := make([]model.Node, len(exits))
	for i, e := range exits {
		exitNodes[i] = model.Node{Row: e.Row, Col: e.Col, Floor: e.Floor}
	}

	var worstDistance = -1.0
	var worstCandidate model.Node
	var worstExit model.Node
	var worstPath []model.Node
	found := false

	for _, cand := range candidates {
		start := model.Node{Row: cand.Row, Col: cand.Col, Floor: space.Floor}
		bestDist := math.Inf(1)
		var bestPath []model.Node
		var bestExit model.Node
		for _, exitNode := range exitNodes {
			path, dist, ok := aStar(g, start, exitNode)
			if !ok {
				continue
			}
			if dist < bestDist {
				bestDist = dist
				bestPath = path
				bestExit = exitNode
			}
		}
		if math.IsInf(bestDist, 1) {
			continue
		}
		if bestDist > worstDistance {
			worstDistance = bestDist
			worstCandidate = start
			worstExit = bestExit
			worstPath = bestPath
			found = true
		}
	}

	if !found {
		route.Distance = -1
		route.DistanceToStair = -1
		return route
	}

	route.HasRoute = true
	route.FurthestPoint = &model.Node{Row: worstCandidate.Row, Col: worstCandidate.Col, Floor: worstCandidate.Floor}
	route.OptimalExit = &model.Exit{Row: worstExit.Row, Col: worstExit.Col, Floor: worstExit.Floor}
	route.OptimalPath = worstPath
	route.Distance = worstDistance * cellSize
	route.StepKinds = tagStepKinds(worstPath, rawStack)
	route.DistanceToStair = distanceToFirstStair(worstPath, route.StepKinds, cellSize)
	return route
}

// selectCandidates partitions a space's points into the 4 quadrants
// around its centroid and keeps, per non-empty quadrant, the point
// furthest from the centroid — the corner most likely to produce the
// worst-case egress distance.
func selectCandidates(space model.Space) []model.Point2I {
	cr, cc := space.Centroid()
	var best [4]*model.Point2I
	var bestDist [4]float64
	for i := range bestDist {
		bestDist[i] = -1
	}
	for _, p := range space.Points {
		q := quadrant(float64(p.Row), float64(p.Col), cr, cc)
		d := math.Hypot(float64(p.Row)-cr, float64(p.Col)-cc)
		if d > bestDist[q] {
			bestDist[q] = d
			pp := p
			best[q] = &pp
		}
	}
	var out []model.Point2I
	for _, p := range best {
		if p != nil {
			out = append(out, *p)
		}
	}
	if len(out) == 0 && len(space.Points) > 0 {
		out = append(out, space.Points[0])
	}
	return out
}

func quadrant(row, col, centerRow, centerCol float64) int {
	switch {
	case row < centerRow && col < centerCol:
		return 0
	case row < centerRow && col >= centerCol:
		return 1
	case row >= centerRow && col < centerCol:
		return 2
	default:
		return 3
	}
}

func heuristic(a, b model.Node) float64 {
	dr := float64(a.Row - b.Row)
	dc := float64(a.Col - b.Col)
	dz := float64(a.Floor - b.Floor)
	return math.Hypot(dr, dc) + verticalHeuristicWeight*math.Abs(dz)
}

type pqItem struct {
	node  model.Node
	f     float64
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].f < pq[j].f }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index, pq[j].index = i, j }
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// aStar returns the node path and total edge-weight cost from start to
// goal, or ok=false if goal is unreachable.
func aStar(g *graph.Graph, start, goal model.Node) ([]model.Node, float64, bool) {
	if start == goal {
		return []model.Node{start}, 0, true
	}
	gScore := map[model.Node]float64{start: 0}
	cameFrom := map[model.Node]model.Node{}
	pq := &priorityQueue{{node: start, f: heuristic(start, goal)}}
	heap.Init(pq)
	closed := map[model.Node]bool{}

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem)
		if closed[current.node] {
			continue
		}
		if current.node == goal {
			return reconstructPath(cameFrom, goal), gScore[goal], true
		}
		closed[current.node] = true

		for _, edge := range g.Neighbors(current.node) {
			if closed[edge.B] {
				continue
			}
			tentative := gScore[current.node] + edge.Weight
			if existing, ok := gScore[edge.B]; !ok || tentative < existing {
				gScore[edge.B] = tentative
				cameFrom[edge.B] = current.node
				heap.Push(pq, &pqItem{node: edge.B, f: tentative + heuristic(edge.B, goal)})
			}
		}
	}
	return nil, 0, false
}

func reconstructPath(cameFrom map[model.Node]model.Node, goal model.Node) []model.Node {
	path := []model.Node{goal}
	cur := goal
	for {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	// reverse into start-to-goal order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func tagStepKinds(path []model.Node, rawStack *model.GridStack) []model.CellKind {
	kinds := make([]model.CellKind, len(path))
	for i, n := range path {
		if n.Floor < 0 || n.Floor >= len(rawStack.Grids) {
			continue
		}
		kinds[i] = rawStack.Grids[n.Floor].At(n.Row, n.Col)
	}
	return kinds
}

// distanceToFirstStair walks the path in order and returns the cumulative
// distance (meters) to the first Stair step, or -1 if the route never
// traverses a stair.
func distanceToFirstStair(path []model.Node, kinds []model.CellKind, cellSize float64) float64 {
	var acc float64
	for i := 1; i < len(path); i++ {
		acc += stepDistance(path[i-1], path[i]) * cellSize
		if kinds[i] == model.Stair {
			return acc
		}
	}
	return -1
}

func stepDistance(a, b model.Node) float64 {
	if a.Floor != b.Floor {
		return 1 // inter-floor stair hop counted as one unit step
	}
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	if dr != 0 && dc != 0 {
		return math.Sqrt2
	}
	return 1
}
