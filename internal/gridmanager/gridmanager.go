// Package gridmanager mutates a GridStack after rasterization: wall
// buffering, single/batch cell edits, flood-fill space segmentation and
// door-group exit detection. Grounded on original_source/ifc_processing.py
// and pathfinding.py's equivalent passes, reshaped into the small
// per-concern functions core/topology/room_detection.go factors its own
// flood-fill/face-tracing logic into.
package gridmanager

import (
	"fmt"

	"egress/internal/model"
)

// ApplyWallBuffer dilates every Wall cell on every floor by radius cells
// under Chebyshev distance, marking newly covered Empty cells WallBuffer.
// Cells already holding a higher-priority kind (door/stair/floor/wall) are
// left untouched. Marks the stack dirty.
func ApplyWallBuffer(stack *model.GridStack, radius int) {
	if radius <= 0 {
		return
	}
	for _, grid := range stack.Grids {
		bufferGrid(grid, radius)
	}
	stack.MarkDirty()
}

func bufferGrid(grid *model.Grid, radius int) {
	wallRows, wallCols := collectCells(grid, model.Wall)
	if len(wallRows) == 0 {
		return
	}
	toBuffer := make(map[int]bool, len(wallRows)*radius*radius)
	for i := range wallRows {
		wr, wc := wallRows[i], wallCols[i]
		for dr := -radius; dr <= radius; dr++ {
			for dc := -radius; dc <= radius; dc++ {
				r, c := wr+dr, wc+dc
				if !grid.InBounds(r, c) {
					continue
				}
				if grid.At(r, c) == model.Empty {
					toBuffer[r*grid.Cols+c] = true
				}
			}
		}
	}
	for idx := range toBuffer {
		r, c := idx/grid.Cols, idx%grid.Cols
		grid.Set(r, c, model.WallBuffer)
	}
}

func collectCells(grid *model.Grid, kind model.CellKind) (rows, cols []int) {
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			if grid.At(r, c) == kind {
				rows = append(rows, r)
				cols = append(cols, c)
			}
		}
	}
	return
}

// CellUpdate is one (row, col, floor) -> kind edit.
type CellUpdate struct {
	Row, Col, Floor int
	Kind            model.CellKind
}

// UpdateCell applies a single cell edit and re-buffers every floor's walls
// at the given radius, since buffering is derived state, not incremental.
func UpdateCell(stack *model.GridStack, u CellUpdate, bufferRadius int) error {
	return BatchUpdateCells(stack, []CellUpdate{u}, bufferRadius)
}

// BatchUpdateCells applies every edit, then re-derives wall buffering once
// across all floors and marks the stack dirty.
func BatchUpdateCells(stack *model.GridStack, updates []CellUpdate, bufferRadius int) error {
	for _, u := range updates {
		if u.Floor < 0 || u.Floor >= len(stack.Grids) {
			return fmt.Errorf("gridmanager: floor index %d out of range [0,%d)", u.Floor, len(stack.Grids))
		}
		grid := stack.Grids[u.Floor]
		if !grid.InBounds(u.Row, u.Col) {
			return fmt.Errorf("gridmanager: cell (%d,%d) out of range for floor %d", u.Row, u.Col, u.Floor)
		}
		grid.Set(u.Row, u.Col, u.Kind)
	}
	for _, grid := range stack.Grids {
		clearBufferOnly(grid)
	}
	for _, grid := range stack.Grids {
		bufferGrid(grid, bufferRadius)
	}
	stack.MarkDirty()
	return nil
}

func clearBufferOnly(grid *model.Grid) {
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			if grid.At(r, c) == model.WallBuffer {
				grid.Set(r, c, model.Empty)
			}
		}
	}
}

// DetectSpaces flood-fills every floor's passable, non-buffer cells under
// 4-connectivity and assigns deterministic IDs in row-major discovery
// order: Space_{floor}_{n}.
func DetectSpaces(stack *model.GridStack) []model.Space {
	var spaces []model.Space
	for floorIdx, grid := range stack.Grids {
		visited := make([]bool, grid.Rows*grid.Cols)
		n := 0
		for r := 0; r < grid.Rows; r++ {
			for c := 0; c < grid.Cols; c++ {
				idx := r*grid.Cols + c
				if visited[idx] || !spaceCell(grid.At(r, c)) {
					continue
				}
				pts := floodFill(grid, visited, r, c)
				sp := model.Space{
					ID:     fmt.Sprintf("Space_%d_%d", floorIdx, n),
					Floor:  floorIdx,
					Points: pts,
				}
				sp.MinRow, sp.MaxRow, sp.MinCol, sp.MaxCol = bboxOf(pts)
				spaces = append(spaces, sp)
				n++
			}
		}
	}
	return spaces
}

func spaceCell(k model.CellKind) bool {
	return k == model.Empty || k == model.Floor || k == model.Door || k == model.Stair
}

func floodFill(grid *model.Grid, visited []bool, startRow, startCol int) []model.Point2I {
	stack := []model.Point2I{{Row: startRow, Col: startCol}}
	visited[startRow*grid.Cols+startCol] = true
	var out []model.Point2I
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, p)
		for _, d := range dirs {
			r, c := p.Row+d[0], p.Col+d[1]
			if !grid.InBounds(r, c) {
				continue
			}
			idx := r*grid.Cols + c
			if visited[idx] || !spaceCell(grid.At(r, c)) {
				continue
			}
			visited[idx] = true
			stack = append(stack, model.Point2I{Row: r, Col: c})
		}
	}
	return out
}

func bboxOf(pts []model.Point2I) (minRow, maxRow, minCol, maxCol int) {
	if len(pts) == 0 {
		return 0, 0, 0, 0
	}
	minRow, maxRow = pts[0].Row, pts[0].Row
	minCol, maxCol = pts[0].Col, pts[0].Col
	for _, p := range pts[1:] {
		if p.Row < minRow {
			minRow = p.Row
		}
		if p.Row > maxRow {
			maxRow = p.Row
		}
		if p.Col < minCol {
			minCol = p.Col
		}
		if p.Col > maxCol {
			maxCol = p.Col
		}
	}
	return
}

// DetectExits groups 4-connected Door cells per floor and keeps the groups
// whose mean position reaches the grid boundary along some cardinal
// direction without crossing a Wall or WallBuffer cell.
func DetectExits(stack *model.GridStack) []model.Exit {
	var exits []model.Exit
	for floorIdx, grid := range stack.Grids {
		groups := doorGroups(grid)
		for _, g := range groups {
			meanRow, meanCol := meanOf(g)
			if reachesBoundary(grid, meanRow, meanCol) {
				exits = append(exits, model.Exit{Row: meanRow, Col: meanCol, Floor: floorIdx})
			}
		}
	}
	return exits
}

func doorGroups(grid *model.Grid) [][]model.Point2I {
	visited := make([]bool, grid.Rows*grid.Cols)
	var groups [][]model.Point2I
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			idx := r*grid.Cols + c
			if visited[idx] || grid.At(r, c) != model.Door {
				continue
			}
			group := floodFillKind(grid, visited, r, c, model.Door)
			groups = append(groups, group)
		}
	}
	return groups
}

func floodFillKind(grid *model.Grid, visited []bool, startRow, startCol int, kind model.CellKind) []model.Point2I {
	stack := []model.Point2I{{Row: startRow, Col: startCol}}
	visited[startRow*grid.Cols+startCol] = true
	var out []model.Point2I
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, p)
		for _, d := range dirs {
			r, c := p.Row+d[0], p.Col+d[1]
			if !grid.InBounds(r, c) {
				continue
			}
			idx := r*grid.Cols + c
			if visited[idx] || grid.At(r, c) != kind {
				continue
			}
			visited[idx] = true
			stack = append(stack, model.Point2I{Row: r, Col: c})
		}
	}
	return out
}

func meanOf(pts []model.Point2I) (row, col int) {
	var sr, sc int
	for _, p := range pts {
		sr += p.Row
		sc += p.Col
	}
	return sr / len(pts), sc / len(pts)
}

// reachesBoundary walks outward from (row, col) in each cardinal
// direction and reports whether any direction reaches the grid edge
// without crossing a Wall or WallBuffer cell.
func reachesBoundary(grid *model.Grid, row, col int) bool {
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, d := range dirs {
		r, c := row, col
		for {
			r += d[0]
			c += d[1]
			if !grid.InBounds(r, c) {
				return true
			}
			k := grid.At(r, c)
			if k == model.Wall || k == model.WallBuffer {
				break
			}
		}
	}
	return false
}
