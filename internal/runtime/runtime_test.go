package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/stretchr/testify/require"
)

// testFullMesh builds a regular 5x5 grid with unit spacing, two triangles
// per cell. Node IDs run row-major from 1 at the origin.
func testFullMesh(depths map[int]float64) *domain.Mesh {
	mesh := &domain.Mesh{Name: "shinnecock test grid"}
	id := func(i, j int) int { return j*5 + i + 1 }
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			depth := 5.0
			if d, ok := depths[id(i, j)]; ok {
				depth = d
			}
			mesh.Nodes = append(mesh.Nodes, domain.MeshNode{
				ID: id(i, j), X: float64(i), Y: float64(j), Depth: depth,
			})
		}
	}
	eid := 1
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			n := id(i, j)
			mesh.Elements = append(mesh.Elements,
				domain.MeshElement{ID: eid, Nodes: [3]int{n, n + 1, n + 6}},
				domain.MeshElement{ID: eid + 1, Nodes: [3]int{n, n + 6, n + 5}})
			eid += 2
		}
	}
	return mesh
}

// testShape is an ellipse around the grid center enclosing the inner 3x3
// node block and nothing else.
func testShape() domain.Shape {
	return domain.Ellipse(domain.Point{X: 2, Y: 2}, 1.7, 1.7, 1.0)
}

// expectedNodeMap is the correspondence Setup produces for testFullMesh and
// testShape: the inner block renumbered 1..9 in ascending fulldomain order.
func expectedNodeMap() map[int]int {
	return map[int]int{
		1: 7, 2: 8, 3: 9,
		4: 12, 5: 13, 6: 14,
		7: 17, 8: 18, 9: 19,
	}
}

func writeFulldomainCase(t *testing.T, depths map[int]float64) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, fort.WriteGrid(filepath.Join(dir, fort.GridFile), testFullMesh(depths)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fort.ModelControl), []byte("model control stub\n"), 0644))
	return dir
}

// preparedPair returns a fulldomain and a set-up subdomain over the test
// fixture.
func preparedPair(t *testing.T, depths map[int]float64) (*Fulldomain, *Subdomain) {
	t.Helper()
	full := NewFulldomain(writeFulldomainCase(t, depths), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	sub.SetFulldomain(full)

	shape := testShape()
	require.NoError(t, sub.Ellipse(shape.Center, shape.SemiX, shape.SemiY, shape.Scale))
	require.NoError(t, sub.Setup())
	return full, sub
}

// writeScalarSeries writes a single-component time-series artifact with
// value(node, step) samples.
func writeScalarSeries(t *testing.T, path string, numNodes int, times []float64, value func(node, step int) float64) {
	t.Helper()
	s := &fort.Series{Name: "test output", NumNodes: numNodes, Comp: 1, Times: times}
	s.Data = make([][]float64, numNodes)
	for i := 0; i < numNodes; i++ {
		row := make([]float64, len(times))
		for step := range times {
			row[step] = value(i+1, step)
		}
		s.Data[i] = row
	}
	require.NoError(t, fort.WriteSeries(path, s))
}

// writeVectorSeries writes a two-component time-series artifact.
func writeVectorSeries(t *testing.T, path string, numNodes int, times []float64, u, v func(node, step int) float64) {
	t.Helper()
	s := &fort.Series{Name: "test vector output", NumNodes: numNodes, Comp: 2, Times: times}
	s.Data = make([][]float64, numNodes)
	s.DataV = make([][]float64, numNodes)
	for i := 0; i < numNodes; i++ {
		ru := make([]float64, len(times))
		rv := make([]float64, len(times))
		for step := range times {
			ru[step] = u(i+1, step)
			rv[step] = v(i+1, step)
		}
		s.Data[i] = ru
		s.DataV[i] = rv
	}
	require.NoError(t, fort.WriteSeries(path, s))
}
