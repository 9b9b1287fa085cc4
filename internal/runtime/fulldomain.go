package runtime

import (
	"log/slog"
	"path/filepath"

	"github.com/coastalkit/nestor/internal/fort"
)

// Fulldomain manages the coarse-resolution run: it triggers the external
// solver and exposes the outputs the extraction step reads.
type Fulldomain struct {
	*Case
}

// NewFulldomain creates a fulldomain controller over a case directory.
func NewFulldomain(path, exeDir string, logger *slog.Logger) *Fulldomain {
	return &Fulldomain{Case: NewCase(path, exeDir, logger)}
}

// CheckFulldomain reports whether the region-limited output family from a
// completed fulldomain run is present: at least one fort.06* file, and when
// per-processor partition directories (PE*) exist, each holding its
// fort.065 wet/dry record. This is the idempotency predicate that lets the
// orchestrator skip the expensive coarse run.
func (f *Fulldomain) CheckFulldomain() bool {
	if !f.HasArtifact(fort.RegionOutputGlob) {
		return false
	}
	peDirs, _ := filepath.Glob(filepath.Join(f.Path, "PE*"))
	for _, dir := range peDirs {
		matches, _ := filepath.Glob(filepath.Join(dir, "fort.065"))
		if len(matches) == 0 {
			return false
		}
	}
	return true
}
