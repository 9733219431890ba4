// Package model holds the data types shared by the rasterizer, grid
// manager, graph builder, escape router and rule checker: bounding boxes,
// floors, grids, spaces, exits, graph nodes/edges and routes.
package model

import (
	"fmt"
	"sync"
)

// CellKind classifies a single grid cell.
type CellKind uint8

const (
	Empty CellKind = iota
	Floor
	Wall
	Door
	Stair
	WallBuffer
)

var cellKindNames = [...]string{"empty", "floor", "wall", "door", "stair", "wall_buffer"}

func (k CellKind) String() string {
	if int(k) < len(cellKindNames) {
		return cellKindNames[k]
	}
	return "unknown"
}

// MarshalJSON serializes a CellKind using the lowercase strings required
// at the API boundary (spec.md section 6).
func (k CellKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase cell kind strings.
func (k *CellKind) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	for i, name := range cellKindNames {
		if name == s {
			*k = CellKind(i)
			return nil
		}
	}
	return fmt.Errorf("model: unknown cell kind %q", s)
}

// Priority implements the total order used by the rasterizer's paint rule:
// door > wall > stair > floor > empty. wall_buffer never participates in
// painting and sorts below floor so it is never produced by a paint.
func (k CellKind) Priority() int {
	switch k {
	case Door:
		return 5
	case Wall:
		return 4
	case Stair:
		return 3
	case Floor:
		return 2
	case WallBuffer:
		return 1
	default: // Empty
		return 0
	}
}

// Passable reports whether a cell kind may host a graph node: everything
// except wall and wall_buffer.
func (k CellKind) Passable() bool {
	return k != Wall && k != WallBuffer
}

// BBox is an axis-aligned bounding box in world units.
type BBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

func (b BBox) SizeX() float64 { return b.MaxX - b.MinX }
func (b BBox) SizeY() float64 { return b.MaxY - b.MinY }
func (b BBox) SizeZ() float64 { return b.MaxZ - b.MinZ }

// Floor describes one building storey plane.
type Floor struct {
	ID        string
	Name      string
	Elevation float64
	Height    float64
}

// Grid is a 2D array of CellKind shared by every floor in a GridStack.
type Grid struct {
	Rows, Cols int
	cells      []CellKind
}

// NewGrid allocates a rows x cols grid, every cell initialized to Empty.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, cells: make([]CellKind, rows*cols)}
}

func (g *Grid) index(row, col int) int { return row*g.Cols + col }

// InBounds reports whether (row, col) addresses a cell in this grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the kind of the cell at (row, col). Out-of-bounds reads
// return Wall, so boundary checks during rasterization/buffering do not
// need a separate bounds test.
func (g *Grid) At(row, col int) CellKind {
	if !g.InBounds(row, col) {
		return Wall
	}
	return g.cells[g.index(row, col)]
}

// Set overwrites the cell at (row, col). No-op if out of bounds.
func (g *Grid) Set(row, col int, kind CellKind) {
	if !g.InBounds(row, col) {
		return
	}
	g.cells[g.index(row, col)] = kind
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, cells: make([]CellKind, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}

// Equal reports whether two grids have identical shape and contents.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Rows != o.Rows || g.Cols != o.Cols {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// GridStack is the ordered set of per-floor grids sharing one cell size
// and bounding box. It exclusively owns its grids (section 3).
type GridStack struct {
	CellSize float64
	UnitSize float64
	BBox     BBox
	Floors   []Floor
	Grids    []*Grid

	mu    sync.Mutex
	dirty bool
}

// NewGridStack builds an empty stack with one rows x cols grid per floor.
func NewGridStack(cellSize float64, bbox BBox, floors []Floor, rows, cols int) *GridStack {
	grids := make([]*Grid, len(floors))
	for i := range grids {
		grids[i] = NewGrid(rows, cols)
	}
	return &GridStack{CellSize: cellSize, UnitSize: 1, BBox: bbox, Floors: floors, Grids: grids}
}

// NewGridStackFrom builds a stack from already-constructed grids, used by
// tests and by the rasterizer once painting is complete.
func NewGridStackFrom(cellSize float64, bbox BBox, floors []Floor, grids []*Grid) *GridStack {
	return &GridStack{CellSize: cellSize, UnitSize: 1, BBox: bbox, Floors: floors, Grids: grids}
}

// Validate checks the invariants from spec.md section 8: uniform grid
// shape, positive cell size, strictly increasing floor elevations.
func (s *GridStack) Validate() error {
	if s.CellSize <= 0 {
		return fmt.Errorf("model: cell_size must be > 0, got %v", s.CellSize)
	}
	if len(s.Floors) == 0 {
		return fmt.Errorf("model: grid stack has no floors")
	}
	if len(s.Grids) != len(s.Floors) {
		return fmt.Errorf("model: grid count %d does not match floor count %d", len(s.Grids), len(s.Floors))
	}
	if len(s.Grids) == 0 {
		return nil
	}
	rows, cols := s.Grids[0].Rows, s.Grids[0].Cols
	for i, g := range s.Grids {
		if g.Rows != rows || g.Cols != cols {
			return fmt.Errorf("model: grid %d shape (%d,%d) does not match grid 0 shape (%d,%d)", i, g.Rows, g.Cols, rows, cols)
		}
	}
	for i := 1; i < len(s.Floors); i++ {
		if s.Floors[i].Elevation <= s.Floors[i-1].Elevation {
			return fmt.Errorf("model: floor elevations must be strictly increasing, floor %d (%v) <= floor %d (%v)",
				i, s.Floors[i].Elevation, i-1, s.Floors[i-1].Elevation)
		}
	}
	return nil
}

// Clone deep-copies the stack, including every grid.
func (s *GridStack) Clone() *GridStack {
	out := &GridStack{
		CellSize: s.CellSize,
		UnitSize: s.UnitSize,
		BBox:     s.BBox,
		Floors:   append([]Floor(nil), s.Floors...),
		Grids:    make([]*Grid, len(s.Grids)),
	}
	for i, g := range s.Grids {
		out.Grids[i] = g.Clone()
	}
	return out
}

// MarkDirty sets the "grids changed" flag consulted by the supervisory
// cache (section 4.6).
func (s *GridStack) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// ConsumeDirty reports and clears the dirty flag.
func (s *GridStack) ConsumeDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.dirty
	s.dirty = false
	return was
}

// Dirty reports the flag without clearing it.
func (s *GridStack) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Point2I is a (row, col) cell coordinate.
type Point2I struct {
	Row, Col int
}

// Space is a flood-fill-derived enclosed area on one floor.
type Space struct {
	ID     string
	Name   string
	Floor  int
	MinRow int
	MaxRow int
	MinCol int
	MaxCol int
	Points []Point2I
}

// Centroid returns the mean of the space's cell coordinates.
func (s *Space) Centroid() (row, col float64) {
	if len(s.Points) == 0 {
		return 0, 0
	}
	var sr, sc float64
	for _, p := range s.Points {
		sr += float64(p.Row)
		sc += float64(p.Col)
	}
	n := float64(len(s.Points))
	return sr / n, sc / n
}

// Exit is the mean cell of a boundary-reaching door group.
type Exit struct {
	Row, Col, Floor int
}

// Node is a passable cell in 3D index space: (row, col, floor).
type Node struct {
	Row, Col, Floor int
}

// Edge is an unordered, weighted connection between two nodes.
type Edge struct {
	A, B   Node
	Weight float64
}

// Violations groups rule-checker output by applicability window.
type Violations struct {
	General   []string
	Daytime   []string
	Nighttime []string
}

// Route is the worst-case egress result for one space.
type Route struct {
	SpaceID         string
	SpaceName       string
	Floor           int
	FurthestPoint   *Node
	OptimalExit     *Exit
	OptimalPath     []Node
	StepKinds       []CellKind
	Distance        float64 // meters; negative means "no route"
	DistanceToStair float64 // meters; -1 means "no stair traversed"
	HasRoute        bool
	Violations      Violations
}
