// Package writer exports a computed egress route as a ribbon-shaped 3D
// mesh (spec.md section 12, route geometry export), grounded on
// original_source/ifc_processing.py's create_escape_route_segment and
// prepare_route_points: each path node becomes a quad cross-section,
// offset left/right of travel, extruded from floor to a fixed height.
package writer

import (
	"fmt"
	"io"
	"math"

	"egress/internal/model"
)

// DefaultWidth and DefaultHeight mirror the 0.4m/1.5m ribbon dimensions
// the original tool used.
const (
	DefaultWidth  = 0.4
	DefaultHeight = 1.5
)

// Vec3 is a point in world (meter) coordinates.
type Vec3 struct {
	X, Y, Z float64
}

// Mesh is a triangle soup, independent of any serialization format.
type Mesh struct {
	Vertices  []Vec3
	Triangles [][3]int // indices into Vertices
}

// RouteToWorldPoints converts a route's grid-index path into world
// coordinates using the stack's cell size and bounding box, mirroring
// prepare_route_points. zOffset lifts the ribbon slightly above the
// floor slab so it doesn't z-fight with floor geometry.
func RouteToWorldPoints(stack *model.GridStack, path []model.Node, zOffset float64) []Vec3 {
	points := make([]Vec3, len(path))
	for i, n := range path {
		elevation := 0.0
		if n.Floor >= 0 && n.Floor < len(stack.Floors) {
			elevation = stack.Floors[n.Floor].Elevation
		}
		points[i] = Vec3{
			X: float64(n.Col)*stack.CellSize + stack.BBox.MinX,
			Y: float64(n.Row)*stack.CellSize + stack.BBox.MinY,
			Z: elevation + zOffset,
		}
	}
	return points
}

// RibbonMesh builds the escape-route ribbon mesh: a width-wide,
// height-tall tube following points, mirroring the left/right offset
// construction of create_escape_route_segment.
func RibbonMesh(points []Vec3, width, height float64) Mesh {
	if len(points) < 2 {
		return Mesh{}
	}

	left := make([]Vec3, len(points))
	right := make([]Vec3, len(points))
	for i := range points {
		dx, dy := segmentDirection(points, i)
		length := math.Hypot(dx, dy)
		if length == 0 {
			length = 1
		}
		dx, dy = dx/length, dy/length
		perpX, perpY := -dy, dx

		left[i] = Vec3{points[i].X + perpX*width/2, points[i].Y + perpY*width/2, points[i].Z}
		right[i] = Vec3{points[i].X - perpX*width/2, points[i].Y - perpY*width/2, points[i].Z}
	}

	var mesh Mesh
	addVertex := func(v Vec3) int {
		mesh.Vertices = append(mesh.Vertices, v)
		return len(mesh.Vertices) - 1
	}
	addQuad := func(a, b, c, d int) {
		mesh.Triangles = append(mesh.Triangles, [3]int{a, b, c}, [3]int{a, c, d})
	}

	n := len(points)
	// Four rail vertices per cross-section: left-bottom, left-top,
	// right-bottom, right-top.
	rails := make([][4]int, n)
	for i := 0; i < n; i++ {
		lb := addVertex(left[i])
		lt := addVertex(Vec3{left[i].X, left[i].Y, left[i].Z + height})
		rb := addVertex(right[i])
		rt := addVertex(Vec3{right[i].X, right[i].Y, right[i].Z + height})
		rails[i] = [4]int{lb, lt, rb, rt}
	}

	for i := 0; i < n-1; i++ {
		a, b := rails[i], rails[i+1]
		addQuad(a[0], b[0], b[1], a[1]) // left side
		addQuad(a[2], a[3], b[3], b[2]) // right side
		addQuad(a[0], a[2], b[2], b[0]) // bottom
		addQuad(a[1], b[1], b[3], a[3]) // top
	}
	// Cap the first and last cross-sections.
	addQuad(rails[0][0], rails[0][1], rails[0][3], rails[0][2])
	addQuad(rails[n-1][0], rails[n-1][2], rails[n-1][3], rails[n-1][1])

	return mesh
}

func segmentDirection(points []Vec3, i int) (dx, dy float64) {
	switch {
	case i == 0:
		return points[1].X - points[0].X, points[1].Y - points[0].Y
	case i == len(points)-1:
		return points[i].X - points[i-1].X, points[i].Y - points[i-1].Y
	default:
		dx1, dy1 := points[i].X-points[i-1].X, points[i].Y-points[i-1].Y
		dx2, dy2 := points[i+1].X-points[i].X, points[i+1].Y-points[i].Y
		return (dx1 + dx2) / 2, (dy1 + dy2) / 2
	}
}

// WriteOBJ serializes a mesh as a Wavefront OBJ file, a simple
// format-agnostic choice any downstream viewer/BIM tool can import.
func WriteOBJ(w io.Writer, mesh Mesh) error {
	for _, v := range mesh.Vertices {
		if _, err := fmt.Fprintf(w, "v %f %f %f\n", v.X, v.Y, v.Z); err != nil {
			return fmt.Errorf("writer: write vertex: %w", err)
		}
	}
	for _, tri := range mesh.Triangles {
		// OBJ face indices are 1-based.
		if _, err := fmt.Fprintf(w, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1); err != nil {
			return fmt.Errorf("writer: write face: %w", err)
		}
	}
	return nil
}
