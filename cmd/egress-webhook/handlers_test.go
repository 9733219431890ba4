package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"egress/internal/api"
	"egress/internal/config"
)

func boxTriangles(minX, minY, minZ, maxX, maxY, maxZ float64) [][3][3]float64 {
	return [][3][3]float64{
		{{minX, minY, minZ}, {maxX, minY, minZ}, {maxX, maxY, maxZ}},
		{{minX, minY, minZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ}},
	}
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Security.WebhookSecret = "s3cr3t"
	logger := zap.NewNop()

	h := newHandlers(cfg, logger)
	r := gin.New()
	r.GET("/healthz", h.healthz)
	webhook := r.Group("/webhook")
	webhook.Use(verifyWebhookSecret(cfg.Security.WebhookSecret))
	webhook.POST("/process-file", h.processFile)
	return r
}

func sampleRequest() processFileRequest {
	return processFileRequest{
		ProcessFileRequest: api.ProcessFileRequest{
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
		},
		BufferRadius:  1,
		AllowDiagonal: true,
		MinimizeCost:  true,
		SourceName:    "room.json",
	}
}

func TestHealthz(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessFileRequiresWebhookSecret(t *testing.T) {
	r := testRouter(t)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(sampleRequest()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/process-file", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProcessFileHappyPath(t *testing.T) {
	r := testRouter(t)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(sampleRequest()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/process-file", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "s3cr3t")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp processFileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Floors)
	assert.NotEmpty(t, resp.Spaces)
}

func TestProcessFileRejectsBadBody(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook/process-file", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "s3cr3t")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
