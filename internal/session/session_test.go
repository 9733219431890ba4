package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/geometry"
	"egress/internal/graph"
	"egress/internal/gridmanager"
)

func boxTriangles(minX, minY, minZ, maxX, maxY, maxZ float64) []geometry.Triangle {
	return []geometry.Triangle{
		{{X: minX, Y: minY, Z: minZ}, {X: maxX, Y: minY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}},
		{{X: minX, Y: minY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: maxZ}},
	}
}

func roomSource() geometry.SliceSource {
	return geometry.SliceSource{
		Elems: []geometry.Element{
			{ID: "w-south", Kind: geometry.ElementWall, Triangles: boxTriangles(0, 0, 0, 10, 0.2, 3)},
			{ID: "w-north", Kind: geometry.ElementWall, Triangles: boxTriangles(0, 9.8, 0, 10, 10, 3)},
			{ID: "w-west", Kind: geometry.ElementWall, Triangles: boxTriangles(0, 0, 0, 0.2, 10, 3)},
			{ID: "w-east", Kind: geometry.ElementWall, Triangles: boxTriangles(9.8, 0, 0, 10, 10, 3)},
			{ID: "d-1", Kind: geometry.ElementDoor, Triangles: boxTriangles(4.5, 0, 0, 5.5, 0.2, 2.1)},
		},
		StoreyList: []geometry.Storey{{ID: "s0", Elevation: 0}},
	}
}

func TestSessionRequiresLoadBeforeGraph(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	_, err = s.Graph(graph.Options{})
	assert.Error(t, err)
}

func TestSessionLoadThenGraphCachesUntilDirty(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	_, err = s.LoadFile(roomSource(), 0.5)
	require.NoError(t, err)

	g1, err := s.Graph(graph.Options{})
	require.NoError(t, err)
	g2, err := s.Graph(graph.Options{})
	require.NoError(t, err)
	assert.Same(t, g1, g2, "second call should hit the cache, not rebuild")

	err = s.UpdateCell(gridmanager.CellUpdate{Row: 5, Col: 5, Floor: 0}, 1)
	require.NoError(t, err)

	g3, err := s.Graph(graph.Options{})
	require.NoError(t, err)
	assert.NotSame(t, g1, g3, "a mutation should invalidate the cached graph")
}

func TestSessionDetectExitsAndSpacesRequireLoad(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	_, err = s.DetectExits()
	assert.Error(t, err)
	_, err = s.DetectSpaces()
	assert.Error(t, err)

	_, err = s.LoadFile(roomSource(), 0.5)
	require.NoError(t, err)
	require.NoError(t, s.ApplyWallBuffer(1))

	exits, err := s.DetectExits()
	require.NoError(t, err)
	assert.NotEmpty(t, exits)

	spaces, err := s.DetectSpaces()
	require.NoError(t, err)
	assert.NotEmpty(t, spaces)
}
