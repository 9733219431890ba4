package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/model"
)

func TestRouteToWorldPoints(t *testing.T) {
	stack := model.NewGridStackFrom(0.5, model.BBox{MinX: 10, MinY: 20}, []model.Floor{{Elevation: 3}}, nil)
	path := []model.Node{{Row: 2, Col: 4, Floor: 0}, {Row: 3, Col: 4, Floor: 0}}

	points := RouteToWorldPoints(stack, path, 0.1)
	require.Len(t, points, 2)
	assert.InDelta(t, 10+4*0.5, points[0].X, 1e-9)
	assert.InDelta(t, 20+2*0.5, points[0].Y, 1e-9)
	assert.InDelta(t, 3.1, points[0].Z, 1e-9)
}

func TestRibbonMeshProducesClosedTube(t *testing.T) {
	points := []Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}
	mesh := RibbonMesh(points, DefaultWidth, DefaultHeight)

	assert.Len(t, mesh.Vertices, len(points)*4)
	assert.NotEmpty(t, mesh.Triangles)
	for _, tri := range mesh.Triangles {
		for _, idx := range tri {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, len(mesh.Vertices))
		}
	}
}

func TestRibbonMeshEmptyForShortPath(t *testing.T) {
	mesh := RibbonMesh([]Vec3{{X: 0, Y: 0, Z: 0}}, DefaultWidth, DefaultHeight)
	assert.Empty(t, mesh.Vertices)
	assert.Empty(t, mesh.Triangles)
}

func TestWriteOBJ(t *testing.T) {
	mesh := RibbonMesh([]Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}, DefaultWidth, DefaultHeight)
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, mesh))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "v "))
	assert.Contains(t, out, "f ")
}
