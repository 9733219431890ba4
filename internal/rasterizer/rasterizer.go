// Package rasterizer turns a stream of building elements into a GridStack:
// derive the bounding box from walls, size and derive floors, paint each
// element onto its floors' grids by the door/wall/stair/floor priority
// rule, then trim dead space. Grounded on original_source/ifc_processing.py's
// process/create_grids/process_elements/trim_grids pipeline.
package rasterizer

import (
	"math"

	"egress/internal/errs"
	"egress/internal/geometry"
	"egress/internal/model"
)

const (
	marginCells  = 6 // +6 cells added to both grid dimensions
	trimPadding  = 1 // default cells kept around the trimmed bounding rectangle
	maxCellsAxis = 10000
	minFloorH    = 1.6
	maxFloorH    = 10.0
	synthFloorH  = 3.0
	wallSpanWarn = 1000.0
)

// Result is the output of Rasterize.
type Result struct {
	Stack     *model.GridStack
	Failures  []errs.GeometryFailure
	Warnings  []string
	Rescaled  bool
}

// Rasterize builds a GridStack from a geometry source at the given cell
// size (world units).
func Rasterize(src geometry.Source, cellSize float64) (*Result, error) {
	if cellSize <= 0 {
		return nil, errs.New(errs.ValidationError, "cell_size must be > 0")
	}

	elems, failures, err := collectElements(src)
	if err != nil {
		return nil, err
	}

	bbox, err := wallBBox(elems)
	if err != nil {
		return nil, err
	}

	res := &Result{Failures: failures}
	if bbox.SizeX() > wallSpanWarn || bbox.SizeY() > wallSpanWarn || bbox.SizeZ() > wallSpanWarn {
		res.Warnings = append(res.Warnings, "bounding box span exceeds 1000 world units; check source units")
	}

	unitSize := 1.0
	cols := int(math.Ceil(bbox.SizeX()/cellSize)) + marginCells
	rows := int(math.Ceil(bbox.SizeY()/cellSize)) + marginCells
	if cols > maxCellsAxis || rows > maxCellsAxis {
		unitSize /= 1000
		cellSize *= 1000
		cols = int(math.Ceil(bbox.SizeX()/cellSize)) + marginCells
		rows = int(math.Ceil(bbox.SizeY()/cellSize)) + marginCells
		res.Rescaled = true
		res.Warnings = append(res.Warnings, "reinterpreted input as millimeters to keep grid size bounded")
	}

	storeys, err := src.Storeys()
	if err != nil {
		return nil, errs.Newf(errs.InternalError, "reading storeys: %v", err).WithCause(err)
	}
	floors := deriveFloors(storeys, bbox)

	stack := model.NewGridStack(cellSize, bbox, floors, rows, cols)
	stack.UnitSize = unitSize

	paintAll(stack, elems, unitSize)
	trim(stack)

	if err := stack.Validate(); err != nil {
		return nil, errs.Newf(errs.ValidationError, "rasterized grid stack invalid: %v", err).WithCause(err)
	}

	res.Stack = stack
	return res, nil
}

func collectElements(src geometry.Source) ([]geometry.Element, []errs.GeometryFailure, error) {
	var elems []geometry.Element
	var failures []errs.GeometryFailure
	err := src.Elements(func(e geometry.Element) bool {
		if len(e.Triangles) == 0 {
			failures = append(failures, errs.GeometryFailure{
				ElementID: e.ID,
				Kind:      e.Kind.String(),
				Reason:    "element has no triangles",
			})
			return true
		}
		elems = append(elems, e)
		return true
	})
	if err != nil {
		return nil, nil, errs.Newf(errs.InternalError, "streaming geometry elements: %v", err).WithCause(err)
	}
	return elems, failures, nil
}

func wallBBox(elems []geometry.Element) (model.BBox, error) {
	var bbox model.BBox
	found := false
	for _, e := range elems {
		if e.Kind != geometry.ElementWall {
			continue
		}
		minX, minY, minZ, maxX, maxY, maxZ, ok := e.BBox()
		if !ok {
			continue
		}
		if !found {
			bbox = model.BBox{MinX: minX, MinY: minY, MinZ: minZ, MaxX: maxX, MaxY: maxY, MaxZ: maxZ}
			found = true
			continue
		}
		bbox.MinX = math.Min(bbox.MinX, minX)
		bbox.MinY = math.Min(bbox.MinY, minY)
		bbox.MinZ = math.Min(bbox.MinZ, minZ)
		bbox.MaxX = math.Max(bbox.MaxX, maxX)
		bbox.MaxY = math.Max(bbox.MaxY, maxY)
		bbox.MaxZ = math.Max(bbox.MaxZ, maxZ)
	}
	if !found {
		return model.BBox{}, errs.New(errs.ValidationError, "no wall elements to derive a bounding box from")
	}
	return bbox, nil
}

func deriveFloors(storeys []geometry.Storey, bbox model.BBox) []model.Floor {
	elevSeen := make(map[float64]bool)
	var filtered []float64
	for _, s := range storeys {
		if elevSeen[s.Elevation] {
			continue
		}
		if s.Elevation >= bbox.MinZ && s.Elevation <= bbox.MaxZ {
			elevSeen[s.Elevation] = true
			filtered = append(filtered, s.Elevation)
		}
	}

	var elevations []float64
	if len(filtered) == 0 {
		height := bbox.SizeZ()
		n := int(math.Floor(height / synthFloorH))
		if n < 1 {
			n = 1
		}
		step := height / float64(n)
		for i := 0; i < n; i++ {
			elevations = append(elevations, bbox.MinZ+float64(i)*step)
		}
	} else {
		elevations = sortedFloat64(filtered)
	}

	var floors []model.Floor
	for i, e := range elevations {
		next := bbox.MaxZ
		if i+1 < len(elevations) {
			next = elevations[i+1]
		}
		h := next - e
		if h < minFloorH || h > maxFloorH {
			continue
		}
		floors = append(floors, model.Floor{
			ID:        floorID(i),
			Elevation: e,
			Height:    h,
		})
	}

	if len(floors) == 0 {
		floors = []model.Floor{{ID: floorID(0), Elevation: bbox.MinZ, Height: bbox.SizeZ()}}
	}
	return floors
}

func sortedFloat64(v []float64) []float64 {
	out := append([]float64(nil), v...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func floorID(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(letters) {
		return "floor_" + string(letters[i])
	}
	return "floor_" + string(rune('A'+i))
}

func paintAll(stack *model.GridStack, elems []geometry.Element, unitSize float64) {
	doorZTol := 0.1 / unitSize
	floorZTol := 2.0 / unitSize
	stairFloorExtend := 1.5 / unitSize

	kindOf := func(k geometry.ElementKind) model.CellKind {
		switch k {
		case geometry.ElementWall:
			return model.Wall
		case geometry.ElementFloor:
			return model.Floor
		case geometry.ElementDoor:
			return model.Door
		case geometry.ElementStair:
			return model.Stair
		default:
			return model.Empty
		}
	}

	for _, e := range elems {
		minX, minY, minZ, maxX, maxY, maxZ, ok := e.BBox()
		if !ok {
			continue
		}
		if e.Kind == geometry.ElementFloor || e.Kind == geometry.ElementStair {
			maxZ += stairFloorExtend
		}
		ck := kindOf(e.Kind)

		for fi, floor := range stack.Floors {
			if !(minZ < floor.Elevation+floorZTol && maxZ > floor.Elevation+doorZTol) {
				continue
			}
			grid := stack.Grids[fi]
			if e.Kind == geometry.ElementDoor {
				paintDoor(grid, stack.BBox, stack.CellSize, minX, minY, maxX, maxY)
				continue
			}
			for _, t := range e.Triangles {
				paintTriangle(grid, stack.BBox, stack.CellSize, t, ck)
			}
		}
	}
}

func paintDoor(grid *model.Grid, bbox model.BBox, cellSize, minX, minY, maxX, maxY float64) {
	startRow, startCol := worldToCell2(bbox, cellSize, minX, minY)
	endRow, endCol := worldToCell2(bbox, cellSize, maxX, maxY)

	sizeCol := math.Abs(endCol - startCol)
	sizeRow := math.Abs(endRow - startRow)
	inflate := 0.1 / cellSize
	if sizeCol > sizeRow {
		startRow -= inflate
		endRow += inflate
	} else {
		startCol -= inflate
		endCol += inflate
	}

	r0, r1 := clampOrder(startRow, endRow, grid.Rows)
	c0, c1 := clampOrder(startCol, endCol, grid.Cols)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			grid.Set(r, c, model.Door)
		}
	}
}

func worldToCell2(bbox model.BBox, cellSize, x, y float64) (row, col float64) {
	return (y - bbox.MinY) / cellSize, (x - bbox.MinX) / cellSize
}

func clampOrder(a, b float64, limit int) (lo, hi int) {
	lo = int(math.Floor(math.Min(a, b)))
	hi = int(math.Ceil(math.Max(a, b)))
	if lo < 0 {
		lo = 0
	}
	if hi > limit-1 {
		hi = limit - 1
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return
}

func paintTriangle(grid *model.Grid, bbox model.BBox, cellSize float64, t geometry.Triangle, kind model.CellKind) {
	minX, minY := t[0].X, t[0].Y
	maxX, maxY := t[0].X, t[0].Y
	for _, v := range t[1:] {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}
	r0f, c0f := worldToCell2(bbox, cellSize, minX, minY)
	r1f, c1f := worldToCell2(bbox, cellSize, maxX, maxY)
	r0, r1 := clampOrder(r0f, r1f, grid.Rows)
	c0, c1 := clampOrder(c0f, c1f, grid.Cols)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if kind.Priority() < grid.At(r, c).Priority() {
				continue
			}
			grid.Set(r, c, kind)
		}
	}
}

// trim clips every grid to the bounding rectangle of non-empty, non-floor
// cells (plus trimPadding cells) and re-pads so all grids keep one shared
// shape, adjusting BBox.MinX/MinY by padding*cell_size as the original
// pipeline does.
func trim(stack *model.GridStack) {
	if len(stack.Grids) == 0 {
		return
	}
	rows, cols := stack.Grids[0].Rows, stack.Grids[0].Cols

	minRow, maxRow, minCol, maxCol := rows, -1, cols, -1
	for _, g := range stack.Grids {
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				k := g.At(r, c)
				if k == model.Empty || k == model.Floor {
					continue
				}
				if r < minRow {
					minRow = r
				}
				if r > maxRow {
					maxRow = r
				}
				if c < minCol {
					minCol = c
				}
				if c > maxCol {
					maxCol = c
				}
			}
		}
	}
	if maxRow < 0 {
		return // nothing but empty/floor cells; leave grids untouched
	}

	newRows := (maxRow - minRow + 1) + 2*trimPadding
	newCols := (maxCol - minCol + 1) + 2*trimPadding

	sliceMinRow := clampInt(minRow-trimPadding, 0, rows-1)
	sliceMaxRow := clampInt(maxRow+trimPadding, 0, rows-1)
	sliceMinCol := clampInt(minCol-trimPadding, 0, cols-1)
	sliceMaxCol := clampInt(maxCol+trimPadding, 0, cols-1)

	offsetRow := sliceMinRow - (minRow - trimPadding)
	offsetCol := sliceMinCol - (minCol - trimPadding)

	for i, g := range stack.Grids {
		newGrid := model.NewGrid(newRows, newCols)
		for r := sliceMinRow; r <= sliceMaxRow; r++ {
			for c := sliceMinCol; c <= sliceMaxCol; c++ {
				newGrid.Set(r-sliceMinRow+offsetRow, c-sliceMinCol+offsetCol, g.At(r, c))
			}
		}
		stack.Grids[i] = newGrid
	}

	stack.BBox.MinX -= stack.CellSize * trimPadding
	stack.BBox.MinY -= stack.CellSize * trimPadding
	stack.BBox.MaxX = stack.BBox.MinX + float64(newCols)*stack.CellSize
	stack.BBox.MaxY = stack.BBox.MinY + float64(newRows)*stack.CellSize
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
