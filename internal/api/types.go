// Package api exposes nine egress operations (spec.md section 6; edit_grid
// is not exposed) as
// JSON endpoints over a github.com/go-chi/chi/v5 router, backed by one
// internal/session.Session per API process.
package api

import (
	"egress/internal/gridmanager"
	"egress/internal/model"
)

// ElementPayload is the wire shape of one geometry.Element.
type ElementPayload struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"` // wall, floor, door, stair
	Triangles [][3][3]float64 `json:"triangles"`
}

// StoreyPayload is the wire shape of one geometry.Storey.
type StoreyPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Elevation float64 `json:"elevation"`
}

// ProcessFileRequest is the process_file request body: a fully
// materialized geometry source (the BIM-format decode happens upstream
// of this boundary, per spec.md section 1) plus the rasterize cell size.
type ProcessFileRequest struct {
	Elements []ElementPayload `json:"elements"`
	Storeys  []StoreyPayload  `json:"storeys"`
	CellSize float64          `json:"cell_size"`
}

// ProcessFileResponse reports the rasterize outcome.
type ProcessFileResponse struct {
	Floors           int                 `json:"floors"`
	Rescaled         bool                `json:"rescaled"`
	GeometryFailures []GeometryFailureDTO `json:"geometry_failures,omitempty"`
}

// GeometryFailureDTO mirrors errs.GeometryFailure for the wire.
type GeometryFailureDTO struct {
	ElementID string `json:"element_id"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
}

// UpdateCellRequest is the update_cell request body.
type UpdateCellRequest struct {
	Row          int             `json:"row"`
	Col          int             `json:"col"`
	Floor        int             `json:"floor"`
	Kind         model.CellKind  `json:"kind"`
	BufferRadius int             `json:"buffer_radius"`
}

// BatchUpdateCellsRequest is the batch_update_cells request body.
type BatchUpdateCellsRequest struct {
	Updates      []UpdateCellRequest `json:"updates"`
	BufferRadius int                 `json:"buffer_radius"`
}

// ApplyWallBufferRequest is the apply_wall_buffer request body.
type ApplyWallBufferRequest struct {
	Radius int `json:"radius"`
}

// ExitDTO mirrors model.Exit for the wire.
type ExitDTO struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Floor int `json:"floor"`
}

// SpaceDTO mirrors model.Space for the wire.
type SpaceDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Floor  int    `json:"floor"`
	MinRow int    `json:"min_row"`
	MaxRow int    `json:"max_row"`
	MinCol int    `json:"min_col"`
	MaxCol int    `json:"max_col"`
}

// CreateGraphRequest is the create_graph request body.
type CreateGraphRequest struct {
	AllowDiagonal bool `json:"allow_diagonal"`
	MinimizeCost  bool `json:"minimize_cost"`
}

// CreateGraphResponse reports graph size.
type CreateGraphResponse struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NodeDTO mirrors model.Node for the wire.
type NodeDTO struct {
	Row, Col, Floor int
}

// StairConnectionDTO describes one inter-floor stair-group edge.
type StairConnectionDTO struct {
	From   NodeDTO `json:"from"`
	To     NodeDTO `json:"to"`
	Weight float64 `json:"weight"`
}

// CalculateEscapeRouteRequest selects the space and options for
// calculate_escape_route.
type CalculateEscapeRouteRequest struct {
	SpaceID       string `json:"space_id"`
	AllowDiagonal bool   `json:"allow_diagonal"`
	MinimizeCost  bool   `json:"minimize_cost"`
}

// RouteDTO mirrors model.Route for the wire.
type RouteDTO struct {
	SpaceID         string             `json:"space_id"`
	SpaceName       string             `json:"space_name"`
	Floor           int                `json:"floor"`
	OptimalExit     *ExitDTO           `json:"optimal_exit,omitempty"`
	Distance        float64            `json:"distance"`
	DistanceToStair float64            `json:"distance_to_stair"`
	HasRoute        bool               `json:"has_route"`
	Violations      model.Violations   `json:"violations"`
}

func toCellUpdate(r UpdateCellRequest) gridmanager.CellUpdate {
	return gridmanager.CellUpdate{Row: r.Row, Col: r.Col, Floor: r.Floor, Kind: r.Kind}
}

func exitDTO(e model.Exit) ExitDTO {
	return ExitDTO{Row: e.Row, Col: e.Col, Floor: e.Floor}
}

func spaceDTO(s model.Space) SpaceDTO {
	return SpaceDTO{ID: s.ID, Name: s.Name, Floor: s.Floor, MinRow: s.MinRow, MaxRow: s.MaxRow, MinCol: s.MinCol, MaxCol: s.MaxCol}
}

func routeDTO(r model.Route) RouteDTO {
	dto := RouteDTO{
		SpaceID:         r.SpaceID,
		SpaceName:       r.SpaceName,
		Floor:           r.Floor,
		Distance:        r.Distance,
		DistanceToStair: r.DistanceToStair,
		HasRoute:        r.HasRoute,
		Violations:      r.Violations,
	}
	if r.OptimalExit != nil {
		e := exitDTO(*r.OptimalExit)
		dto.OptimalExit = &e
	}
	return dto
}
