package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFulldomain(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)

	assert.False(t, full.CheckFulldomain(), "no region output yet")

	writeScalarSeries(t, full.ArtifactPath(fort.RegionElevation), 25, []float64{0}, func(node, step int) float64 {
		return float64(node)
	})
	assert.True(t, full.CheckFulldomain(), "region output exists")

	// A parallel run leaves per-processor directories; each must carry
	// its own output record before the run counts as complete.
	peDir := filepath.Join(full.Path, "PE0000")
	require.NoError(t, os.Mkdir(peDir, 0755))
	assert.False(t, full.CheckFulldomain(), "PE directory without fort.065")

	require.NoError(t, os.WriteFile(filepath.Join(peDir, "fort.065"), []byte("1\n"), 0644))
	assert.True(t, full.CheckFulldomain(), "PE directory carries fort.065")
}

func TestCaseMeshCacheInvalidation(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)

	mesh, err := full.Mesh()
	require.NoError(t, err)
	require.Len(t, mesh.Nodes, 25)

	// Rewrite the grid with different content and backdate nothing; the
	// mtime change must invalidate the cached parse on Update.
	smaller := testFullMesh(nil)
	smaller.Nodes = smaller.Nodes[:20]
	smaller.Elements = smaller.Elements[:10]
	require.NoError(t, fort.WriteGrid(full.ArtifactPath(fort.GridFile), smaller))
	touchFuture(t, full.ArtifactPath(fort.GridFile))
	require.NoError(t, full.Update())

	mesh, err = full.Mesh()
	require.NoError(t, err)
	assert.Len(t, mesh.Nodes, 20)
}

func TestCaseMeshMissingGrid(t *testing.T) {
	c := NewCase(t.TempDir(), "", nil)
	_, err := c.Mesh()
	assert.Error(t, err)
}

// touchFuture bumps a file's mtime past any cached value, since coarse
// filesystem timestamps can make back-to-back writes look identical.
func touchFuture(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	future := info.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
}
