package placement

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Cell addresses one square of the rasterized screen. Row 0 is the top row.
type Cell struct {
	Row, Col int
}

// ScreenRegion is a connected run of free grid cells discovered by flood fill.
// Regions are transient: they exist only for the duration of one search.
type ScreenRegion struct {
	Cells    []Cell
	Bounds   scene.BBox
	Area     float64
	Occupied int     // existing object centres inside Bounds
	Density  float64 // Occupied per unit area
	Centroid r3.Vec
	Score    float64
}

// FloodFill returns the 4-connected components of the false cells in
// blocked. Every free cell belongs to exactly one returned region; blocked
// cells belong to none. Rows may have different lengths.
func FloodFill(blocked [][]bool) [][]Cell {
	seen := make([][]bool, len(blocked))
	for r := range blocked {
		seen[r] = make([]bool, len(blocked[r]))
	}
	free := func(r, c int) bool {
		return r >= 0 && r < len(blocked) && c >= 0 && c < len(blocked[r]) && !blocked[r][c] && !seen[r][c]
	}

	var regions [][]Cell
	for r := range blocked {
		for c := range blocked[r] {
			if !free(r, c) {
				continue
			}
			var region []Cell
			stack := []Cell{{r, c}}
			seen[r][c] = true
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				region = append(region, cur)
				for _, n := range [4]Cell{
					{cur.Row - 1, cur.Col},
					{cur.Row + 1, cur.Col},
					{cur.Row, cur.Col - 1},
					{cur.Row, cur.Col + 1},
				} {
					if free(n.Row, n.Col) {
						seen[n.Row][n.Col] = true
						stack = append(stack, n)
					}
				}
			}
			regions = append(regions, region)
		}
	}
	return regions
}

// raster maps an n×n grid onto the screen.
type raster struct {
	screen scene.BBox
	n      int
	cw, ch float64
}

func newRaster(screen scene.BBox, n int) raster {
	return raster{screen: screen, n: n, cw: screen.Width() / float64(n), ch: screen.Height() / float64(n)}
}

func (g raster) cellBox(c Cell) scene.BBox {
	return scene.BBox{
		MinX: g.screen.MinX + float64(c.Col)*g.cw,
		MaxX: g.screen.MinX + float64(c.Col+1)*g.cw,
		MaxY: g.screen.MaxY - float64(c.Row)*g.ch,
		MinY: g.screen.MaxY - float64(c.Row+1)*g.ch,
	}
}

func (g raster) cellCenter(c Cell) r3.Vec { return g.cellBox(c).Center() }

// occupancy marks every cell whose rectangle touches an existing footprint
// inflated by margin.
func (g raster) occupancy(existing []scene.Object, margin float64) [][]bool {
	blocked := make([][]bool, g.n)
	for r := range blocked {
		blocked[r] = make([]bool, g.n)
		for c := range blocked[r] {
			cell := g.cellBox(Cell{r, c})
			for _, o := range existing {
				if cell.Intersects(o.Box.Inset(-margin)) {
					blocked[r][c] = true
					break
				}
			}
		}
	}
	return blocked
}

// emptyRegions finds, measures and scores the empty regions of the screen.
// Regions smaller than minArea are dropped. The result is sorted best first.
func (g raster) emptyRegions(existing []scene.Object, margin, minArea float64) []ScreenRegion {
	cellArea := g.cw * g.ch
	screenArea := g.screen.Area()
	center := g.screen.Center()
	halfDiag := g.screen.HalfDiagonal()

	var regions []ScreenRegion
	for _, cells := range FloodFill(g.occupancy(existing, margin)) {
		area := float64(len(cells)) * cellArea
		if area < minArea {
			continue
		}
		xs := make([]float64, len(cells))
		ys := make([]float64, len(cells))
		bounds := g.cellBox(cells[0])
		for i, c := range cells {
			p := g.cellCenter(c)
			xs[i], ys[i] = p.X, p.Y
			bounds = bounds.Union(g.cellBox(c))
		}
		centroid := g.snap(r3.Vec{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}, cells)

		reg := ScreenRegion{Cells: cells, Bounds: bounds, Area: area, Centroid: centroid}
		isolation := math.Inf(1)
		for _, o := range existing {
			if bounds.Contains(o.Position) {
				reg.Occupied++
			}
			isolation = math.Min(isolation, scene.Distance2D(centroid, o.Position))
		}
		reg.Density = float64(reg.Occupied) / area

		proximity := 1 - math.Min(scene.Distance2D(centroid, center)/halfDiag, 1)
		relArea := area / screenArea
		iso := math.Min(isolation/halfDiag, 1)
		reg.Score = 0.4*proximity + 0.3*relArea + 0.3*iso
		regions = append(regions, reg)
	}

	// Rank by descending score.
	scores := make([]float64, len(regions))
	for i, r := range regions {
		scores[i] = -r.Score
	}
	idx := make([]int, len(regions))
	floats.Argsort(scores, idx)
	ranked := make([]ScreenRegion, len(regions))
	for i, j := range idx {
		ranked[i] = regions[j]
	}
	return ranked
}

// snap moves p to the centre of the region cell nearest to it, so a
// centroid of a concave region never lands on a blocked cell.
func (g raster) snap(p r3.Vec, cells []Cell) r3.Vec {
	best, bestD := p, math.Inf(1)
	for _, c := range cells {
		q := g.cellCenter(c)
		if d := scene.Distance2D(p, q); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}
