package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadJobConfig(t *testing.T) {
	path := writeConfig(t, `
fulldomain_dir: /data/cases/full
subdomain_dir: /data/cases/sub
exe_dir: /opt/adcirc/bin
num_procs: 8
h0: 0.05
noutgs: 1
nspoolgs: 2
timeseries_vars: [fort.63, fort.64]
extrema_vars: [maxele.63]
shape:
  kind: ellipse
  center_x: -72.5
  center_y: 40.85
  semi_x: 0.12
  semi_y: 0.08
  scale: 0.01
store:
  backend: redis
  redis_addr: localhost:6379
  lock_ttl: 45m
`)

	cfg, err := LoadJobConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/cases/full", cfg.FulldomainDir)
	assert.Equal(t, 8, cfg.NumProcs)
	assert.InDelta(t, 0.05, cfg.H0, 1e-12)
	assert.Equal(t, []string{"fort.63", "fort.64"}, cfg.TimeseriesVars)

	shape, err := cfg.ExtractionShape()
	require.NoError(t, err)
	require.NotNil(t, shape)
	assert.Equal(t, domain.ShapeEllipse, shape.Kind)
	assert.InDelta(t, -72.5, shape.Center.X, 1e-12)

	ttl, err := cfg.LockTTL()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, ttl)
}

func TestLoadJobConfigWeakTyping(t *testing.T) {
	// Operators quote numbers in YAML more often than not.
	path := writeConfig(t, `
fulldomain_dir: /full
subdomain_dir: /sub
num_procs: "4"
h0: "0.1"
`)

	cfg, err := LoadJobConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumProcs)
	assert.InDelta(t, 0.1, cfg.H0, 1e-12)
}

func TestLoadJobConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
fulldomain_dir: /full
subdomain_dir: /sub
num_procss: 4
`)

	_, err := LoadJobConfig(path)
	assert.Error(t, err, "a typo must not be silently ignored")
}

func TestLoadJobConfigRequiresDirs(t *testing.T) {
	path := writeConfig(t, `
subdomain_dir: /sub
`)
	_, err := LoadJobConfig(path)
	assert.ErrorContains(t, err, "fulldomain_dir")
}

func TestExtractionShapeCircle(t *testing.T) {
	cfg := &JobConfig{Shape: ShapeConfig{Kind: "circle", CenterX: 1, CenterY: 2, Radius: 3}}
	shape, err := cfg.ExtractionShape()
	require.NoError(t, err)
	assert.Equal(t, domain.ShapeCircle, shape.Kind)
	assert.InDelta(t, 3.0, shape.SemiX, 1e-12)
}

func TestExtractionShapeAbsent(t *testing.T) {
	cfg := &JobConfig{}
	shape, err := cfg.ExtractionShape()
	require.NoError(t, err)
	assert.Nil(t, shape)
}

func TestExtractionShapeDegenerate(t *testing.T) {
	cfg := &JobConfig{Shape: ShapeConfig{Kind: "circle", Radius: 0}}
	_, err := cfg.ExtractionShape()
	assert.Error(t, err)
}

func TestLockTTLDefault(t *testing.T) {
	cfg := &JobConfig{}
	ttl, err := cfg.LockTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &JobConfig{FulldomainDir: "/f", SubdomainDir: "/s", Store: StoreConfig{Backend: "etcd"}}
	assert.Error(t, cfg.Validate())
}
