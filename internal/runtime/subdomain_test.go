package runtime

import (
	"os"
	"sort"
	"testing"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEllipseIsIdempotent(t *testing.T) {
	sub := NewSubdomain(t.TempDir(), "", nil)

	require.NoError(t, sub.Ellipse(domain.Point{X: 2, Y: 2}, 1.7, 1.4, 1.0))
	first, err := os.ReadFile(sub.ArtifactPath(fort.ShapeEllipse))
	require.NoError(t, err)

	// A second call with different parameters must keep the existing
	// artifact byte for byte.
	require.NoError(t, sub.Ellipse(domain.Point{X: 9, Y: 9}, 3, 3, 2))
	second, err := os.ReadFile(sub.ArtifactPath(fort.ShapeEllipse))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	shape, err := sub.Shape()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, shape.Center.X, 1e-12)
	assert.InDelta(t, 1.4, shape.SemiY, 1e-12)
}

func TestEllipseRejectsDegenerateAxes(t *testing.T) {
	sub := NewSubdomain(t.TempDir(), "", nil)

	err := sub.Ellipse(domain.Point{X: 2, Y: 2}, 0, 1.5, 1.0)
	var se *domain.SetupError
	require.ErrorAs(t, err, &se)
	assert.False(t, fort.ShapeExists(sub.Path))
}

func TestSetupExtractsNestedGrid(t *testing.T) {
	_, sub := preparedPair(t, nil)

	for _, name := range []string{fort.GridFile, fort.NodeMapFile, fort.ElementMapFile, fort.SubControlFile, fort.ModelControl} {
		assert.True(t, sub.HasArtifact(name), "expected %s after setup", name)
	}

	mesh, err := sub.Mesh()
	require.NoError(t, err)
	assert.Len(t, mesh.Nodes, 9, "inner 3x3 block")
	assert.Len(t, mesh.Elements, 8, "two triangles per inner cell")

	nodeMap, err := fort.ReadNodeMap(sub.ArtifactPath(fort.NodeMapFile))
	require.NoError(t, err)
	assert.Equal(t, expectedNodeMap(), nodeMap)

	// Every kept node except the center touches a discarded element, so
	// the open boundary is the ring around the block center.
	boundary := mesh.BoundaryNodes()
	sort.Ints(boundary)
	assert.Equal(t, []int{1, 2, 3, 4, 6, 7, 8, 9}, boundary)
}

func TestSetupWithoutShapeFails(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	sub.SetFulldomain(full)

	var se *domain.SetupError
	require.ErrorAs(t, sub.Setup(), &se)
}

func TestSetupWithoutFulldomainFails(t *testing.T) {
	sub := NewSubdomain(t.TempDir(), "", nil)
	shape := testShape()
	require.NoError(t, sub.Ellipse(shape.Center, shape.SemiX, shape.SemiY, shape.Scale))

	var se *domain.SetupError
	require.ErrorAs(t, sub.Setup(), &se)
}

func TestSetupFailsWhenRegionEnclosesNothing(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	sub.SetFulldomain(full)

	// A region off in the corner of nowhere encloses no elements.
	require.NoError(t, sub.Ellipse(domain.Point{X: 50, Y: 50}, 0.1, 0.1, 0.1))

	var se *domain.SetupError
	require.ErrorAs(t, sub.Setup(), &se)
	assert.Contains(t, se.Reason, "no elements")
	assert.Equal(t, sub.Path, se.Dir, "the error names the subdomain directory")
}

func TestGenFullWritesRegionControl(t *testing.T) {
	full, sub := preparedPair(t, nil)

	require.NoError(t, sub.GenFull(1, 2))

	ctl, err := fort.ReadFullControl(full.ArtifactPath(fort.SubControlFile))
	require.NoError(t, err)
	assert.Equal(t, 1, ctl.NOutGS)
	assert.Equal(t, 2, ctl.NSpoolGS)
	assert.Equal(t, []int{7, 8, 9, 12, 13, 14, 17, 18, 19}, ctl.Nodes)
}

func TestGenFullBeforeSetupFails(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	sub.SetFulldomain(full)

	var mie *domain.MissingInputError
	require.ErrorAs(t, sub.GenFull(1, 1), &mie)
	assert.Equal(t, fort.NodeMapFile, mie.Artifact)
}

func TestGenBCsRequiresFulldomainOutput(t *testing.T) {
	full, sub := preparedPair(t, nil)
	assert.False(t, sub.CheckFulldomain())

	_, err := sub.GenBCs(0)
	var mie *domain.MissingInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, full.Path, mie.Dir)
	assert.False(t, sub.Check())
}

func TestGenBCsExtractsWetBoundaryForcing(t *testing.T) {
	full, sub := preparedPair(t, nil)

	times := []float64{0, 0.5, 1.0}
	value := func(node, step int) float64 { return float64(node) + 0.1*float64(step) }
	writeScalarSeries(t, full.ArtifactPath(fort.RegionElevation), 25, times, value)
	writeVectorSeries(t, full.ArtifactPath(fort.RegionVelocity), 25, times,
		func(node, step int) float64 { return 0.01 * float64(node) },
		func(node, step int) float64 { return -0.01 * float64(node) })
	require.NoError(t, full.Update())

	set, err := sub.GenBCs(0)
	require.NoError(t, err)

	assert.Equal(t, times, set.Times)
	assert.Len(t, set.Included, 8, "all ring nodes are wet")
	assert.Empty(t, set.Excluded)
	assert.True(t, sub.Check())

	// Forcing values come from the mapped fulldomain node.
	nodeMap := expectedNodeMap()
	for _, s := range set.Included {
		assert.Equal(t, nodeMap[s.SubNode], s.FullNode)
		for step := range times {
			assert.InDelta(t, value(s.FullNode, step), s.Elevation[step], 1e-9)
			assert.InDelta(t, 0.01*float64(s.FullNode), s.VelU[step], 1e-9)
			assert.InDelta(t, -0.01*float64(s.FullNode), s.VelV[step], 1e-9)
		}
	}

	// Record round-trips through the artifact.
	reread, err := fort.ReadBoundaryConditions(sub.ArtifactPath(fort.BCFile))
	require.NoError(t, err)
	assert.Equal(t, set.NodeIDs(), reread.NodeIDs())
	assert.Equal(t, set.Times, reread.Times)
}

func TestGenBCsTruncatedVelocityOutput(t *testing.T) {
	// An interrupted fulldomain run leaves fewer velocity snapshots than
	// elevation ones; forcing covers only the shared steps.
	full, sub := preparedPair(t, nil)

	value := func(node, step int) float64 { return float64(node) + 0.1*float64(step) }
	writeScalarSeries(t, full.ArtifactPath(fort.RegionElevation), 25, []float64{0, 0.5, 1.0}, value)
	writeVectorSeries(t, full.ArtifactPath(fort.RegionVelocity), 25, []float64{0},
		func(node, step int) float64 { return 0.01 * float64(node) },
		func(node, step int) float64 { return -0.01 * float64(node) })
	require.NoError(t, full.Update())

	set, err := sub.GenBCs(0)
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, set.Times)
	require.Len(t, set.Included, 8)
	for _, s := range set.Included {
		require.Len(t, s.Elevation, 1)
		require.Len(t, s.VelU, 1)
		require.Len(t, s.VelV, 1)
		assert.InDelta(t, value(s.FullNode, 0), s.Elevation[0], 1e-9)
		assert.InDelta(t, 0.01*float64(s.FullNode), s.VelU[0], 1e-9)
	}

	reread, err := fort.ReadBoundaryConditions(sub.ArtifactPath(fort.BCFile))
	require.NoError(t, err)
	assert.Equal(t, set.Times, reread.Times)
}

func TestGenBCsExcludesDryNodesInclusively(t *testing.T) {
	// Fulldomain node 7 (sub 1) is above sea level, node 8 (sub 2) sits
	// exactly at the threshold. Depth equal to h0 is wet.
	full, sub := preparedPair(t, map[int]float64{7: -1, 8: 0})

	writeScalarSeries(t, full.ArtifactPath(fort.RegionElevation), 25, []float64{0, 1}, func(node, step int) float64 {
		return float64(node)
	})
	require.NoError(t, full.Update())

	set, err := sub.GenBCs(0)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, set.Excluded)
	included := set.NodeIDs()
	sort.Ints(included)
	assert.Equal(t, []int{2, 3, 4, 6, 7, 8, 9}, included)
	assert.InDelta(t, 0.0, set.H0, 1e-12)
}

func TestUpdateSub2FullMapReadsPersistedMaps(t *testing.T) {
	_, sub := preparedPair(t, nil)

	// A fresh controller over the same directory must pick up the
	// persisted maps rather than rebuilding them.
	fresh := NewSubdomain(sub.Path, "", nil)
	fresh.SetFulldomain(sub.Fulldomain())
	require.NoError(t, fresh.Update())

	s2f, err := fresh.UpdateSub2FullMap()
	require.NoError(t, err)
	assert.Equal(t, expectedNodeMap(), s2f.Nodes)
}

func TestUpdateSub2FullMapRebuildsByNearestNode(t *testing.T) {
	_, sub := preparedPair(t, nil)

	// Deleting the persisted maps forces the nearest-node rebuild. The
	// nested grid reuses exact parent coordinates, so the rebuilt map is
	// the identity correspondence again.
	require.NoError(t, os.Remove(sub.ArtifactPath(fort.NodeMapFile)))
	require.NoError(t, os.Remove(sub.ArtifactPath(fort.ElementMapFile)))

	fresh := NewSubdomain(sub.Path, "", nil)
	fresh.SetFulldomain(sub.Fulldomain())
	require.NoError(t, fresh.Update())

	s2f, err := fresh.UpdateSub2FullMap()
	require.NoError(t, err)
	assert.Equal(t, expectedNodeMap(), s2f.Nodes)

	// Keys cover exactly the subdomain node set.
	mesh, err := fresh.Mesh()
	require.NoError(t, err)
	assert.Len(t, s2f.Nodes, len(mesh.Nodes))
	for _, n := range mesh.Nodes {
		assert.Contains(t, s2f.Nodes, n.ID)
	}

	// The rebuild persists the maps for the next run.
	assert.True(t, fresh.HasArtifact(fort.NodeMapFile))
	assert.True(t, fresh.HasArtifact(fort.ElementMapFile))
}

func TestSetupLinksForcingFiles(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	require.NoError(t, os.WriteFile(full.ArtifactPath("fort.22"), []byte("wind forcing\n"), 0644))

	sub := NewSubdomain(t.TempDir(), "", nil)
	sub.SetFulldomain(full)
	shape := testShape()
	require.NoError(t, sub.Ellipse(shape.Center, shape.SemiX, shape.SemiY, shape.Scale))
	require.NoError(t, sub.Setup())

	target, err := os.Readlink(sub.ArtifactPath("fort.22"))
	require.NoError(t, err)
	assert.Equal(t, full.ArtifactPath("fort.22"), target)

	// Re-running setup replaces the link instead of failing on it.
	require.NoError(t, sub.Setup())
	_, err = os.Lstat(sub.ArtifactPath("fort.22"))
	require.NoError(t, err)
}

func TestSetupIsRerunnable(t *testing.T) {
	_, sub := preparedPair(t, nil)

	before, err := os.ReadFile(sub.ArtifactPath(fort.GridFile))
	require.NoError(t, err)

	require.NoError(t, sub.Setup())

	after, err := os.ReadFile(sub.ArtifactPath(fort.GridFile))
	require.NoError(t, err)
	assert.Equal(t, before, after, "setup is deterministic given identical inputs")
}
