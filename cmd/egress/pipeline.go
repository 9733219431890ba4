package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"egress/internal/api"
	"egress/internal/geometry"
	"egress/internal/graph"
	"egress/internal/manifest"
	"egress/internal/model"
	"egress/internal/rules"
	"egress/internal/router"
	"egress/internal/session"
)

// loadGeometryFile decodes a JSON-encoded api.ProcessFileRequest body from
// disk into a geometry.Source. The BIM-format decode itself happens
// upstream of this boundary (spec.md section 1); this CLI consumes the
// same materialized-geometry shape the HTTP process-file endpoint does.
func loadGeometryFile(path string) (geometry.Source, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var req api.ProcessFileRequest
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	cellSize := req.CellSize
	if cellSize <= 0 {
		cellSize = cfg.Engine.DefaultCellSize
	}
	return requestToSource(req), cellSize, nil
}

// requestToSource converts an api.ProcessFileRequest's wire shape into a
// geometry.Source, mirroring internal/api/handlers.go's toGeometrySource.
func requestToSource(req api.ProcessFileRequest) geometry.Source {
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

// runPipeline drives one full process_file-through-calculate_escape_route
// pass (spec.md sections 4 and 9) against a fresh session and returns the
// run's manifest plus each space's full route (for mesh export) and the
// raw grid stack the routes were computed against.
func runPipeline(sourceName string, src geometry.Source, cellSize float64, bufferRadius int, graphOpts graph.Options) (manifest.Manifest, []model.Route, *model.GridStack, error) {
	sess, err := session.New()
	if err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("create session: %w", err)
	}

	res, err := sess.LoadFile(src, cellSize)
	if err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("load file: %w", err)
	}

	if err := sess.ApplyWallBuffer(bufferRadius); err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("apply wall buffer: %w", err)
	}

	exits, err := sess.DetectExits()
	if err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("detect exits: %w", err)
	}

	spaces, err := sess.DetectSpaces()
	if err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("detect spaces: %w", err)
	}

	g, err := sess.Graph(graphOpts)
	if err != nil {
		return manifest.Manifest{}, nil, nil, fmt.Errorf("build graph: %w", err)
	}

	raw := sess.RawStack()
	summaries := make([]manifest.SpaceSummary, len(spaces))
	routes := make([]model.Route, len(spaces))
	for i, sp := range spaces {
		route := router.FindWorstCaseRoute(g, sp, exits, raw, raw.CellSize)
		route.Violations = rules.Check(rules.Input{
			Distance:        route.Distance,
			DistanceToStair: route.DistanceToStair,
		})
		routes[i] = route
		summaries[i] = manifest.SpaceSummary{
			SpaceID:         sp.ID,
			SpaceName:       sp.Name,
			Floor:           sp.Floor,
			Distance:        route.Distance,
			DistanceToStair: route.DistanceToStair,
			HasRoute:        route.HasRoute,
			Violations:      append(append([]string{}, route.Violations.Daytime...), route.Violations.Nighttime...),
		}
	}

	failures := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		failures[i] = f.Error()
	}

	m := manifest.Manifest{
		RunID:            fmt.Sprintf("run-%d", time.Now().UnixNano()),
		CreatedAt:        time.Now().UTC(),
		SourceFile:       sourceName,
		CellSize:         cellSize,
		BufferRadius:     bufferRadius,
		AllowDiagonal:    graphOpts.AllowDiagonal,
		MinimizeCost:     graphOpts.MinimizeCost,
		Floors:           len(raw.Floors),
		Rescaled:         res.Rescaled,
		GeometryFailures: failures,
		Spaces:           summaries,
	}
	return m, routes, raw, nil
}

