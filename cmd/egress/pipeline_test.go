package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/api"
	"egress/internal/config"
	"egress/internal/graph"
)

func boxTriangles(minX, minY, minZ, maxX, maxY, maxZ float64) [][3][3]float64 {
	return [][3][3]float64{
		{{minX, minY, minZ}, {maxX, minY, minZ}, {maxX, maxY, maxZ}},
		{{minX, minY, minZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ}},
	}
}

func singleRoomRequest() api.ProcessFileRequest {
	return api.ProcessFileRequest{
		CellSize: 0.5,
		Elements: []api.ElementPayload{
			{ID: "w-south", Kind: "wall", Triangles: boxTriangles(0, 0, 0, 10, 0.2, 3)},
			{ID: "w-north", Kind: "wall", Triangles: boxTriangles(0, 9.8, 0, 10, 10, 3)},
			{ID: "w-west", Kind: "wall", Triangles: boxTriangles(0, 0, 0, 0.2, 10, 3)},
			{ID: "w-east", Kind: "wall", Triangles: boxTriangles(9.8, 0, 0, 10, 10, 3)},
			{ID: "f-1", Kind: "floor", Triangles: boxTriangles(0, 0, 0, 10, 10, 0.2)},
			{ID: "d-1", Kind: "door", Triangles: boxTriangles(4.5, 0, 0, 5.5, 0.2, 2.1)},
		},
		Storeys: []api.StoreyPayload{{ID: "s0", Elevation: 0}},
	}
}

func TestParseElementKind(t *testing.T) {
	assert.Equal(t, 0, int(parseElementKind("wall")))
	assert.NotPanics(t, func() { parseElementKind("nonsense") })
}

func TestLoadGeometryFile(t *testing.T) {
	cfg = config.Default()

	dir := t.TempDir()
	path := filepath.Join(dir, "room.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode(singleRoomRequest()))
	require.NoError(t, f.Close())

	src, cellSize, err := loadGeometryFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cellSize)
	assert.NotNil(t, src)
}

func TestLoadGeometryFileMissing(t *testing.T) {
	cfg = config.Default()
	_, _, err := loadGeometryFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRunPipelineProducesManifest(t *testing.T) {
	cfg = config.Default()
	src := requestToSource(singleRoomRequest())

	m, routes, raw, err := runPipeline("room.json", src, 0.5, 1, graph.Options{AllowDiagonal: true, MinimizeCost: true})
	require.NoError(t, err)
	assert.Equal(t, "room.json", m.SourceFile)
	assert.Equal(t, 1, m.Floors)
	assert.NotEmpty(t, m.Spaces)
	assert.Len(t, routes, len(m.Spaces))
	assert.NotNil(t, raw)
}
