package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"egress/internal/api/metrics"
	"egress/internal/errs"
	"egress/internal/geometry"
	"egress/internal/graph"
	"egress/internal/gridmanager"
	"egress/internal/model"
	"egress/internal/router"
	"egress/internal/rules"
	"egress/internal/session"
)

// Handlers wires nine egress operations (spec.md section 6) to one
// session.Session; there is no edit_grid handler.
type Handlers struct {
	sess    *session.Session
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewHandlers creates the handler set for a given session.
func NewHandlers(sess *session.Session, collector *metrics.Collector, logger *zap.Logger) *Handlers {
	return &Handlers{sess: sess, metrics: collector, logger: logger}
}

// ProcessFile godoc
// @Summary Rasterize a building description into a grid stack
// @Tags egress
// @Accept json
// @Produce json
// @Param body body ProcessFileRequest true "geometry source and cell size"
// @Success 200 {object} ProcessFileResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/egress/process-file [post]
func (h *Handlers) ProcessFile(w http.ResponseWriter, r *http.Request) {
	var req ProcessFileRequest
	if !h.decode(w, r, &req) {
		return
	}

	src := toGeometrySource(req)

	start := time.Now()
	res, err := h.sess.LoadFile(src, req.CellSize)
	h.observe(metrics.StageRasterize, start)
	if h.fail(w, metrics.OpProcessFile, err) {
		return
	}

	resp := ProcessFileResponse{Floors: len(res.Stack.Grids), Rescaled: res.Rescaled}
	for _, f := range res.Failures {
		resp.GeometryFailures = append(resp.GeometryFailures, GeometryFailureDTO{
			ElementID: f.ElementID, Kind: f.Kind, Reason: f.Reason,
		})
	}
	h.metrics.ObserveOperation(metrics.OpProcessFile, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, resp)
}

// UpdateCell godoc
// @Summary Edit one grid cell
// @Tags egress
// @Accept json
// @Produce json
// @Param body body UpdateCellRequest true "cell edit"
// @Success 204
// @Router /api/v1/egress/update-cell [post]
func (h *Handlers) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req UpdateCellRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.sess.UpdateCell(toCellUpdate(req), req.BufferRadius)
	if h.fail(w, metrics.OpUpdateCell, err) {
		return
	}
	h.metrics.ObserveOperation(metrics.OpUpdateCell, metrics.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// BatchUpdateCells godoc
// @Summary Edit many grid cells at once
// @Tags egress
// @Accept json
// @Produce json
// @Param body body BatchUpdateCellsRequest true "batch of cell edits"
// @Success 204
// @Router /api/v1/egress/batch-update-cells [post]
func (h *Handlers) BatchUpdateCells(w http.ResponseWriter, r *http.Request) {
	var req BatchUpdateCellsRequest
	if !h.decode(w, r, &req) {
		return
	}
	updates := make([]gridmanager.CellUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = toCellUpdate(u)
	}
	err := h.sess.BatchUpdateCells(updates, req.BufferRadius)
	if h.fail(w, metrics.OpBatchUpdateCells, err) {
		return
	}
	h.metrics.ObserveOperation(metrics.OpBatchUpdateCells, metrics.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// ApplyWallBuffer godoc
// @Summary Re-buffer the current grid stack at a given radius
// @Tags egress
// @Accept json
// @Produce json
// @Param body body ApplyWallBufferRequest true "buffer radius"
// @Success 204
// @Router /api/v1/egress/apply-wall-buffer [post]
func (h *Handlers) ApplyWallBuffer(w http.ResponseWriter, r *http.Request) {
	var req ApplyWallBufferRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.sess.ApplyWallBuffer(req.Radius)
	if h.fail(w, metrics.OpApplyWallBuffer, err) {
		return
	}
	h.metrics.ObserveOperation(metrics.OpApplyWallBuffer, metrics.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// DetectExits godoc
// @Summary Detect boundary-reaching door groups on the buffered grid
// @Tags egress
// @Produce json
// @Success 200 {array} ExitDTO
// @Router /api/v1/egress/detect-exits [get]
func (h *Handlers) DetectExits(w http.ResponseWriter, r *http.Request) {
	exits, err := h.sess.DetectExits()
	if h.fail(w, metrics.OpDetectExits, err) {
		return
	}
	dtos := make([]ExitDTO, len(exits))
	for i, e := range exits {
		dtos[i] = exitDTO(e)
	}
	h.metrics.ObserveOperation(metrics.OpDetectExits, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, dtos)
}

// UpdateSpaces godoc
// @Summary Flood-fill the buffered grid into enclosed spaces
// @Tags egress
// @Produce json
// @Success 200 {array} SpaceDTO
// @Router /api/v1/egress/update-spaces [post]
func (h *Handlers) UpdateSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.sess.DetectSpaces()
	if h.fail(w, metrics.OpUpdateSpaces, err) {
		return
	}
	dtos := make([]SpaceDTO, len(spaces))
	for i, s := range spaces {
		dtos[i] = spaceDTO(s)
	}
	h.metrics.ObserveOperation(metrics.OpUpdateSpaces, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, dtos)
}

// CreateGraph godoc
// @Summary Build (or return the cached) connectivity graph
// @Tags egress
// @Accept json
// @Produce json
// @Param body body CreateGraphRequest true "graph build options"
// @Success 200 {object} CreateGraphResponse
// @Router /api/v1/egress/create-graph [post]
func (h *Handlers) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var req CreateGraphRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	g, err := h.sess.Graph(graph.Options{AllowDiagonal: req.AllowDiagonal, MinimizeCost: req.MinimizeCost})
	h.observe(metrics.StageGraphBuild, start)
	if h.fail(w, metrics.OpCreateGraph, err) {
		return
	}

	edgeCount := 0
	for _, edges := range g.Adjacency {
		edgeCount += len(edges)
	}
	h.metrics.ObserveOperation(metrics.OpCreateGraph, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, CreateGraphResponse{NodeCount: len(g.Adjacency), EdgeCount: edgeCount / 2})
}

// GetStairConnections godoc
// @Summary List inter-floor stair-group connections in the current graph
// @Tags egress
// @Produce json
// @Success 200 {array} StairConnectionDTO
// @Router /api/v1/egress/stair-connections [get]
func (h *Handlers) GetStairConnections(w http.ResponseWriter, r *http.Request) {
	g, err := h.sess.Graph(graph.Options{AllowDiagonal: true, MinimizeCost: true})
	if h.fail(w, metrics.OpGetStairConnections, err) {
		return
	}

	var conns []StairConnectionDTO
	seen := make(map[[2]model.Node]bool)
	for node, edges := range g.Adjacency {
		for _, e := range edges {
			if e.B.Floor == node.Floor {
				continue
			}
			key := [2]model.Node{node, e.B}
			revKey := [2]model.Node{e.B, node}
			if seen[key] || seen[revKey] {
				continue
			}
			seen[key] = true
			conns = append(conns, StairConnectionDTO{
				From:   NodeDTO{Row: node.Row, Col: node.Col, Floor: node.Floor},
				To:     NodeDTO{Row: e.B.Row, Col: e.B.Col, Floor: e.B.Floor},
				Weight: e.Weight,
			})
		}
	}
	h.metrics.ObserveOperation(metrics.OpGetStairConnections, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, conns)
}

// CalculateEscapeRoute godoc
// @Summary Compute the worst-case egress route for one space
// @Tags egress
// @Accept json
// @Produce json
// @Param body body CalculateEscapeRouteRequest true "space and graph options"
// @Success 200 {object} RouteDTO
// @Router /api/v1/egress/calculate-escape-route [post]
func (h *Handlers) CalculateEscapeRoute(w http.ResponseWriter, r *http.Request) {
	var req CalculateEscapeRouteRequest
	if !h.decode(w, r, &req) {
		return
	}

	spaces, err := h.sess.DetectSpaces()
	if h.fail(w, metrics.OpCalculateEscapeRoute, err) {
		return
	}
	var target *model.Space
	for _, s := range spaces {
		sp := s
		if sp.ID == req.SpaceID {
			target = &sp
			break
		}
	}
	if target == nil {
		h.fail(w, metrics.OpCalculateEscapeRoute, errs.Newf(errs.ValidationError, "unknown space id %q", req.SpaceID))
		return
	}

	exits, err := h.sess.DetectExits()
	if h.fail(w, metrics.OpCalculateEscapeRoute, err) {
		return
	}

	start := time.Now()
	g, err := h.sess.Graph(graph.Options{AllowDiagonal: req.AllowDiagonal, MinimizeCost: req.MinimizeCost})
	if h.fail(w, metrics.OpCalculateEscapeRoute, err) {
		return
	}

	raw := h.sess.RawStack()
	route := router.FindWorstCaseRoute(g, *target, exits, raw, raw.CellSize)
	h.observe(metrics.StageEscapeRoute, start)

	route.Violations = rules.Check(rules.Input{
		Distance:        route.Distance,
		DistanceToStair: route.DistanceToStair,
	})

	h.metrics.ObserveOperation(metrics.OpCalculateEscapeRoute, metrics.OutcomeSuccess)
	h.writeJSON(w, http.StatusOK, routeDTO(route))
}

func toGeometrySource(req ProcessFileRequest) geometry.Source {
	elems := make([]geometry.Element, len(req.Elements))
	for i, e := range req.Elements {
		tris := make([]geometry.Triangle, len(e.Triangles))
		for j, t := range e.Triangles {
			tris[j] = geometry.Triangle{
				{X: t[0][0], Y: t[0][1], Z: t[0][2]},
				{X: t[1][0], Y: t[1][1], Z: t[1][2]},
				{X: t[2][0], Y: t[2][1], Z: t[2][2]},
			}
		}
		elems[i] = geometry.Element{ID: e.ID, Kind: parseElementKind(e.Kind), Triangles: tris}
	}
	storeys := make([]geometry.Storey, len(req.Storeys))
	for i, s := range req.Storeys {
		storeys[i] = geometry.Storey{ID: s.ID, Name: s.Name, Elevation: s.Elevation}
	}
	return geometry.SliceSource{Elems: elems, StoreyList: storeys}
}

func parseElementKind(s string) geometry.ElementKind {
	switch s {
	case "wall":
		return geometry.ElementWall
	case "floor":
		return geometry.ElementFloor
	case "door":
		return geometry.ElementDoor
	case "stair":
		return geometry.ElementStair
	default:
		return geometry.ElementWall
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		h.fail(w, "decode", errs.New(errs.ValidationError, "request body required"))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.fail(w, "decode", errs.Newf(errs.ValidationError, "invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handlers) observe(stage string, start time.Time) {
	h.metrics.ObserveStage(stage, time.Since(start))
}

// fail writes the error response (if any) and reports true if it did.
func (h *Handlers) fail(w http.ResponseWriter, operation string, err error) bool {
	if err == nil {
		return false
	}
	egErr, ok := err.(*errs.EgressError)
	if !ok {
		egErr = errs.Newf(errs.InternalError, "%v", err)
	}
	h.metrics.ObserveOperation(operation, metrics.OutcomeError)
	h.logger.Warn("operation failed", zap.String("operation", operation), zap.Error(egErr))
	h.writeJSON(w, egErr.StatusCode, map[string]any{
		"error":   egErr.Message,
		"code":    egErr.Kind,
		"details": egErr.Details,
	})
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// routeParam reads a chi URL parameter, used by future path-scoped
// read-only variants of these endpoints.
func routeParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
