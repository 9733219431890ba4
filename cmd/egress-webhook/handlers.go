package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"egress/internal/api"
	"egress/internal/config"
	"egress/internal/graph"
	"egress/internal/manifest"
	"egress/internal/session"
)

type handlers struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newHandlers(cfg *config.Config, logger *zap.Logger) *handlers {
	return &handlers{cfg: cfg, logger: logger}
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// processFileRequest is the webhook ingest body: an api.ProcessFileRequest
// plus the run options a one-shot analysis needs.
type processFileRequest struct {
	api.ProcessFileRequest
	BufferRadius  int    `json:"buffer_radius"`
	AllowDiagonal bool   `json:"allow_diagonal"`
	MinimizeCost  bool   `json:"minimize_cost"`
	SourceName    string `json:"source_name"`
}

type processFileResponse struct {
	RunID  string                  `json:"run_id"`
	Floors int                     `json:"floors"`
	Spaces []manifest.SpaceSummary `json:"spaces"`
}

func (h *handlers) processFile(c *gin.Context) {
	var req processFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := session.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	src := toGeometrySource(req.ProcessFileRequest)
	cellSize := req.CellSize
	if cellSize <= 0 {
		cellSize = h.cfg.Engine.DefaultCellSize
	}
	bufferRadius := req.BufferRadius
	if bufferRadius <= 0 {
		bufferRadius = h.cfg.Engine.DefaultBufferRadius
	}

	m, err := analyzeRequest(sess, src, cellSize, bufferRadius, graph.Options{
		AllowDiagonal: req.AllowDiagonal,
		MinimizeCost:  req.MinimizeCost,
	}, req.SourceName)
	if err != nil {
		h.logger.Sugar().Warnf("process-file: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, processFileResponse{
		RunID:  m.RunID,
		Floors: m.Floors,
		Spaces: m.Spaces,
	})
}
