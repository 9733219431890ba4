package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"egress/internal/config"
	"egress/internal/session"
)

func testRouter(t *testing.T) (http.Handler, *session.Session) {
	t.Helper()
	sess, err := session.New()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Security.EnableAuth = false
	cfg.Security.APIRateLimit = 0
	return NewRouter(sess, cfg, zap.NewNop()), sess
}

func boxTriangles(minX, minY, minZ, maxX, maxY, maxZ float64) [][3][3]float64 {
	return [][3][3]float64{
		{{minX, minY, minZ}, {maxX, minY, minZ}, {maxX, maxY, maxZ}},
		{{minX, minY, minZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ}},
	}
}

func singleRoomRequest() ProcessFileRequest {
	return ProcessFileRequest{
		CellSize: 0.5,
		Elements: []ElementPayload{
			{ID: "w-south", Kind: "wall", Triangles: boxTriangles(0, 0, 0, 10, 0.2, 3)},
			{ID: "w-north", Kind: "wall", Triangles: boxTriangles(0, 9.8, 0, 10, 10, 3)},
			{ID: "w-west", Kind: "wall", Triangles: boxTriangles(0, 0, 0, 0.2, 10, 3)},
			{ID: "w-east", Kind: "wall", Triangles: boxTriangles(9.8, 0, 0, 10, 10, 3)},
			{ID: "f-1", Kind: "floor", Triangles: boxTriangles(0, 0, 0, 10, 10, 0.2)},
			{ID: "d-1", Kind: "door", Triangles: boxTriangles(4.5, 0, 0, 5.5, 0.2, 2.1)},
		},
		Storeys: []StoreyPayload{{ID: "s0", Elevation: 0}},
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProcessFileHappyPath(t *testing.T) {
	r, _ := testRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessFileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Floors)
	assert.Empty(t, resp.GeometryFailures)
}

func TestProcessFileRejectsBadBody(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/egress/process-file", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectExitsRequiresLoadedBuilding(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/egress/detect-exits", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFullPipelineThroughRoute(t *testing.T) {
	r, _ := testRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/egress/update-spaces", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spaces []SpaceDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spaces))
	require.NotEmpty(t, spaces)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/egress/detect-exits", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/egress/create-graph", CreateGraphRequest{AllowDiagonal: true})
	require.Equal(t, http.StatusOK, rec.Code)
	var graphResp CreateGraphResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graphResp))
	assert.Positive(t, graphResp.NodeCount)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/egress/calculate-escape-route", CalculateEscapeRouteRequest{
		SpaceID: spaces[0].ID, AllowDiagonal: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var route RouteDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.Equal(t, spaces[0].ID, route.SpaceID)
}

func TestCalculateEscapeRouteUnknownSpace(t *testing.T) {
	r, _ := testRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())
	doJSON(t, r, http.MethodPost, "/api/v1/egress/update-spaces", nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/egress/calculate-escape-route", CalculateEscapeRouteRequest{SpaceID: "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCellAndBatchUpdateCells(t *testing.T) {
	r, _ := testRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())

	rec := doJSON(t, r, http.MethodPost, "/api/v1/egress/update-cell", UpdateCellRequest{Row: 1, Col: 1, Floor: 0, Kind: "floor"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/egress/batch-update-cells", BatchUpdateCellsRequest{
		Updates: []UpdateCellRequest{{Row: 2, Col: 2, Floor: 0, Kind: "floor"}},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/egress/apply-wall-buffer", ApplyWallBufferRequest{Radius: 1})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
