package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/model"
)

func openFloorStack(floors int) *model.GridStack {
	grids := make([]*model.Grid, floors)
	fl := make([]model.Floor, floors)
	for i := 0; i < floors; i++ {
		g := model.NewGrid(5, 5)
		for r := 0; r < 5; r++ {
			g.Set(r, 0, model.Wall)
			g.Set(r, 4, model.Wall)
		}
		for c := 0; c < 5; c++ {
			g.Set(0, c, model.Wall)
			g.Set(4, c, model.Wall)
		}
		grids[i] = g
		fl[i] = model.Floor{ID: "f", Elevation: float64(i) * 3}
	}
	return model.NewGridStackFrom(1.0, model.BBox{}, fl, grids)
}

func TestBuildIntraFloorEdgesConnectsOpenArea(t *testing.T) {
	stack := openFloorStack(1)
	g := Build(stack, Options{})
	n := model.Node{Row: 2, Col: 2, Floor: 0}
	edges := g.Neighbors(n)
	assert.Len(t, edges, 4)
	for _, e := range edges {
		assert.Equal(t, flatStepWeight, e.Weight)
	}
}

func TestBuildIntraFloorEdgesDiagonalWeighting(t *testing.T) {
	stack := openFloorStack(1)
	g := Build(stack, Options{AllowDiagonal: true, MinimizeCost: true})
	n := model.Node{Row: 2, Col: 2, Floor: 0}
	edges := g.Neighbors(n)
	assert.Len(t, edges, 8)
	sawDiagonal := false
	for _, e := range edges {
		if e.B.Row != n.Row && e.B.Col != n.Col {
			sawDiagonal = true
			assert.InDelta(t, sqrt2, e.Weight, 1e-9)
		}
	}
	assert.True(t, sawDiagonal)
}

func TestStairCellWeightsFourTimesHigher(t *testing.T) {
	stack := openFloorStack(1)
	stack.Grids[0].Set(2, 3, model.Stair)
	g := Build(stack, Options{})
	n := model.Node{Row: 2, Col: 2, Floor: 0}
	var toStair *model.Edge
	for _, e := range g.Neighbors(n) {
		if e.B == (model.Node{Row: 2, Col: 3, Floor: 0}) {
			ee := e
			toStair = &ee
		}
	}
	require.NotNil(t, toStair)
	assert.Equal(t, stairStepWeight, toStair.Weight)
}

func TestBuildStairEdgesConnectsAlignedStairGroups(t *testing.T) {
	stack := openFloorStack(2)
	stack.Grids[0].Set(2, 2, model.Stair)
	stack.Grids[1].Set(2, 2, model.Stair)
	g := Build(stack, Options{})
	a := model.Node{Row: 2, Col: 2, Floor: 0}
	b := model.Node{Row: 2, Col: 2, Floor: 1}
	found := false
	for _, e := range g.Neighbors(a) {
		if e.B == b {
			found = true
		}
	}
	assert.True(t, found, "expected inter-floor stair edge between aligned groups")
}

func TestBuildStairEdgesConnectsMultipleGroupsOnAdjacentFloor(t *testing.T) {
	stack := openFloorStack(2)
	stack.Grids[0].Set(1, 1, model.Stair)
	stack.Grids[1].Set(3, 1, model.Stair)
	stack.Grids[1].Set(1, 3, model.Stair)
	g := Build(stack, Options{})
	a := model.Node{Row: 1, Col: 1, Floor: 0}
	edges := g.Neighbors(a)
	interFloor := 0
	for _, e := range edges {
		if e.B.Floor == 1 {
			interFloor++
		}
	}
	assert.GreaterOrEqual(t, interFloor, 1, "expected at least one inter-floor stair edge")
}

func TestBuildStairEdgesFallsBackWhenNoGroupAligns(t *testing.T) {
	// a wall between the stair groups blocks every line of sight, forcing
	// the full-connect fallback to be the only way they get linked.
	stack := openFloorStack(2)
	stack.Grids[0].Set(1, 1, model.Stair)
	for c := 1; c < 4; c++ {
		stack.Grids[0].Set(2, c, model.Wall)
	}
	stack.Grids[1].Set(3, 1, model.Stair)
	g := Build(stack, Options{})
	a := model.Node{Row: 1, Col: 1, Floor: 0}
	b := model.Node{Row: 3, Col: 1, Floor: 1}
	found := false
	for _, e := range g.Neighbors(a) {
		if e.B == b {
			found = true
		}
	}
	assert.True(t, found, "expected full-connect fallback edge when line of sight is blocked")
}
