package main

import (
	"fmt"
	"time"

	"egress/internal/api"
	"egress/internal/geometry"
	"egress/internal/graph"
	"egress/internal/manifest"
	"egress/internal/rules"
	"egress/internal/router"
	"egress/internal/session"
)

func toGeometrySource(req api.ProcessFileRequest) geometry.Source {
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

// analyzeRequest runs one process_file-through-calculate_escape_route pass
// against a fresh session, the same pipeline cmd/egress's analyze
// subcommand drives, scoped to one webhook request's lifetime.
func analyzeRequest(sess *session.Session, src geometry.Source, cellSize float64, bufferRadius int, opts graph.Options, sourceName string) (manifest.Manifest, error) {
	res, err := sess.LoadFile(src, cellSize)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("load file: %w", err)
	}
	if err := sess.ApplyWallBuffer(bufferRadius); err != nil {
		return manifest.Manifest{}, fmt.Errorf("apply wall buffer: %w", err)
	}
	exits, err := sess.DetectExits()
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("detect exits: %w", err)
	}
	spaces, err := sess.DetectSpaces()
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("detect spaces: %w", err)
	}
	g, err := sess.Graph(opts)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("build graph: %w", err)
	}

	raw := sess.RawStack()
	summaries := make([]manifest.SpaceSummary, len(spaces))
	for i, sp := range spaces {
		route := router.FindWorstCaseRoute(g, sp, exits, raw, raw.CellSize)
		route.Violations = rules.Check(rules.Input{
			Distance:        route.Distance,
			DistanceToStair: route.DistanceToStair,
		})
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

	return manifest.Manifest{
		RunID:            fmt.Sprintf("webhook-%d", time.Now().UnixNano()),
		CreatedAt:        time.Now().UTC(),
		SourceFile:       sourceName,
		CellSize:         cellSize,
		BufferRadius:     bufferRadius,
		AllowDiagonal:    opts.AllowDiagonal,
		MinimizeCost:     opts.MinimizeCost,
		Floors:           len(raw.Floors),
		Rescaled:         res.Rescaled,
		GeometryFailures: failures,
		Spaces:           summaries,
	}, nil
}
