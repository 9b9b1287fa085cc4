// Package spatial provides a uniform cell-grid index over mesh nodes for
// nearest-node queries. Correspondence building runs one query per subdomain
// node against the fulldomain node set; brute force is quadratic in mesh
// size, the grid keeps it near linear.
package spatial

import (
	"math"

	"github.com/coastalkit/nestor/pkg/domain"
)

// Index is an immutable cell-grid over a set of mesh nodes.
type Index struct {
	cell   float64
	minX   float64
	minY   float64
	nx, ny int
	cells  [][]domain.MeshNode
}

// NewIndex builds an index with the given cell size. A non-positive cell
// size falls back to a size derived from the node extent.
func NewIndex(nodes []domain.MeshNode, cellSize float64) *Index {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X)
		maxY = math.Max(maxY, n.Y)
	}
	if len(nodes) == 0 {
		return &Index{cell: 1, nx: 1, ny: 1, cells: make([][]domain.MeshNode, 1)}
	}

	if cellSize <= 0 {
		// Aim for roughly one node per cell on a uniform mesh.
		area := math.Max(maxX-minX, 1e-12) * math.Max(maxY-minY, 1e-12)
		cellSize = math.Sqrt(area / float64(len(nodes)))
	}

	idx := &Index{
		cell: cellSize,
		minX: minX,
		minY: minY,
		nx:   int((maxX-minX)/cellSize) + 1,
		ny:   int((maxY-minY)/cellSize) + 1,
	}
	idx.cells = make([][]domain.MeshNode, idx.nx*idx.ny)
	for _, n := range nodes {
		c := idx.cellIndex(n.X, n.Y)
		idx.cells[c] = append(idx.cells[c], n)
	}
	return idx
}

func (idx *Index) cellIndex(x, y float64) int {
	cx := int((x - idx.minX) / idx.cell)
	cy := int((y - idx.minY) / idx.cell)
	cx = clamp(cx, 0, idx.nx-1)
	cy = clamp(cy, 0, idx.ny-1)
	return cy*idx.nx + cx
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Nearest returns the indexed node closest to p. The second return is false
// only for an empty index. The search expands ring by ring from p's cell and
// stops once the best hit cannot be beaten by any unvisited ring.
func (idx *Index) Nearest(p domain.Point) (domain.MeshNode, bool) {
	cx := clamp(int((p.X-idx.minX)/idx.cell), 0, idx.nx-1)
	cy := clamp(int((p.Y-idx.minY)/idx.cell), 0, idx.ny-1)

	best := domain.MeshNode{}
	bestDist := math.Inf(1)
	found := false

	maxRing := idx.nx
	if idx.ny > maxRing {
		maxRing = idx.ny
	}

	for ring := 0; ring <= maxRing; ring++ {
		if found {
			// Any node in a farther ring is at least (ring-1)*cell away.
			if float64(ring-1)*idx.cell > math.Sqrt(bestDist) {
				break
			}
		}
		for _, c := range idx.ringCells(cx, cy, ring) {
			for _, n := range idx.cells[c] {
				dx, dy := n.X-p.X, n.Y-p.Y
				d := dx*dx + dy*dy
				if d < bestDist {
					bestDist = d
					best = n
					found = true
				}
			}
		}
	}
	return best, found
}

// ringCells lists the cell indices on the square ring at Chebyshev distance
// r from (cx, cy), clipped to the grid.
func (idx *Index) ringCells(cx, cy, r int) []int {
	var out []int
	if r == 0 {
		return []int{cy*idx.nx + cx}
	}
	for x := cx - r; x <= cx+r; x++ {
		if x < 0 || x >= idx.nx {
			continue
		}
		for _, y := range []int{cy - r, cy + r} {
			if y >= 0 && y < idx.ny {
				out = append(out, y*idx.nx+x)
			}
		}
	}
	for y := cy - r + 1; y <= cy+r-1; y++ {
		if y < 0 || y >= idx.ny {
			continue
		}
		for _, x := range []int{cx - r, cx + r} {
			if x >= 0 && x < idx.nx {
				out = append(out, y*idx.nx+x)
			}
		}
	}
	return out
}
