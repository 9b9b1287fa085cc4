package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/internal/spatial"
	"github.com/coastalkit/nestor/pkg/domain"
)

// Subdomain manages the refined nested run and all coupling logic between
// the two domains: geometry generation, control-file derivation, boundary
// extraction and the node correspondence to the parent mesh.
type Subdomain struct {
	*Case

	// full is a non-owning back-reference; the orchestrator owns both
	// controllers and their lifetimes.
	full *Fulldomain

	// H0 is the minimum water depth for a boundary node to be considered
	// wet. Nodes with depth >= H0 receive forcing (inclusive policy).
	H0 float64

	shape domain.Shape
	s2f   *domain.Sub2FullMap
}

// NewSubdomain creates a subdomain controller over a case directory.
func NewSubdomain(path, exeDir string, logger *slog.Logger) *Subdomain {
	return &Subdomain{Case: NewCase(path, exeDir, logger)}
}

// SetFulldomain establishes the back-reference used by setup, extraction
// and comparison. Calling it twice replaces the reference; it never
// accumulates. The link also invalidates any cached correspondence, since
// the parent mesh may differ.
func (s *Subdomain) SetFulldomain(full *Fulldomain) {
	s.full = full
	s.s2f = nil
}

// Fulldomain returns the parent controller, or nil before SetFulldomain.
func (s *Subdomain) Fulldomain() *Fulldomain { return s.full }

// Update refreshes the artifact listing and drops the cached correspondence
// when the grid file changed.
func (s *Subdomain) Update() error {
	hadMesh := s.mesh != nil
	if err := s.Case.Update(); err != nil {
		return err
	}
	if hadMesh && s.mesh == nil {
		s.s2f = nil
	}
	return nil
}

// Ellipse generates the elliptical extraction-region artifact unless a
// shape artifact already exists, in which case the existing geometry is
// loaded and kept unchanged. Deterministic given identical inputs.
func (s *Subdomain) Ellipse(center domain.Point, semiX, semiY, scale float64) error {
	return s.ensureShape(domain.Ellipse(center, semiX, semiY, scale))
}

// Circle is the circular analogue of Ellipse.
func (s *Subdomain) Circle(center domain.Point, radius float64) error {
	return s.ensureShape(domain.Circle(center, radius))
}

func (s *Subdomain) ensureShape(want domain.Shape) error {
	if fort.ShapeExists(s.Path) {
		existing, err := fort.ReadShape(s.Path)
		if err != nil {
			return err
		}
		s.logger.Info("shape artifact already exists, keeping it", "kind", existing.Kind.String())
		s.shape = existing
		return nil
	}
	if err := want.Validate(); err != nil {
		return err
	}
	if err := fort.WriteShape(s.Path, want); err != nil {
		return err
	}
	s.shape = want
	s.logger.Info("wrote extraction-region shape", "kind", want.Kind.String())
	return nil
}

// Shape returns the extraction-region geometry, reading the artifact when
// it has not been loaded yet.
func (s *Subdomain) Shape() (domain.Shape, error) {
	if s.shape.Kind != domain.ShapeNone {
		return s.shape, nil
	}
	shape, err := fort.ReadShape(s.Path)
	if err != nil {
		return domain.Shape{}, err
	}
	s.shape = shape
	return shape, nil
}

// Setup generates the subdomain input artifacts from the fulldomain mesh:
// the nested grid (fort.14), the node and element correspondence maps
// (py.140, py.141), the subdomain control file (fort.015), a copy of the
// model control (fort.15) and symbolic links to the meteorological forcing
// files (fort.22*). Stale artifacts from a previous setup are removed
// first, matching the behavior of the reference toolchain.
func (s *Subdomain) Setup() error {
	if s.full == nil {
		return &domain.SetupError{Dir: s.Path, Reason: "fulldomain reference not set"}
	}
	shape, err := s.Shape()
	if err != nil {
		return err
	}
	if err := shape.Validate(); err != nil {
		if se, ok := err.(*domain.SetupError); ok {
			se.Dir = s.Path
		}
		return err
	}

	fullMesh, err := s.full.Mesh()
	if err != nil {
		return &domain.SetupError{Dir: s.Path, Reason: fmt.Sprintf("fulldomain grid unavailable: %v", err)}
	}

	subMesh, nodeMap, elemMap, err := extractSubMesh(fullMesh, shape)
	if err != nil {
		if se, ok := err.(*domain.SetupError); ok {
			se.Dir = s.Path
		}
		return err
	}

	for _, stale := range []string{fort.SubControlFile, fort.GridFile, fort.NodeMapFile, fort.ElementMapFile, "bv.nodes"} {
		_ = os.Remove(s.ArtifactPath(stale))
	}

	if err := fort.WriteGrid(s.ArtifactPath(fort.GridFile), subMesh); err != nil {
		return err
	}
	if err := fort.WriteNodeMap(s.ArtifactPath(fort.NodeMapFile), "subdomain fulldomain node", nodeMap); err != nil {
		return err
	}
	if err := fort.WriteNodeMap(s.ArtifactPath(fort.ElementMapFile), "subdomain fulldomain element", elemMap); err != nil {
		return err
	}
	if err := fort.WriteSubControl(s.ArtifactPath(fort.SubControlFile), fort.SubControl{
		BoundEle: true, BoundVel: true, BoundWD: true,
	}); err != nil {
		return err
	}
	if err := s.copyModelControl(); err != nil {
		return err
	}
	if err := s.linkForcingFiles(); err != nil {
		return err
	}

	if err := s.Case.Update(); err != nil {
		return err
	}
	// Re-read the grid we just wrote so the cache carries its mtime.
	if _, err := s.Mesh(); err != nil {
		return err
	}
	s.s2f = &domain.Sub2FullMap{Nodes: nodeMap, Elements: elemMap}
	s.logger.Info("subdomain setup complete",
		"nodes", len(subMesh.Nodes),
		"elements", len(subMesh.Elements),
		"boundary_nodes", len(subMesh.BoundaryNodes()))
	return nil
}

// copyModelControl copies the fulldomain's fort.15 into the subdomain
// directory when present. The refined run reuses the model control verbatim;
// only the subdomain-modeling control (fort.015) differs.
func (s *Subdomain) copyModelControl() error {
	src := s.full.ArtifactPath(fort.ModelControl)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(s.ArtifactPath(fort.ModelControl), data, 0644)
}

// linkForcingFiles symlinks the fulldomain's meteorological forcing files
// (fort.22*) into the subdomain directory, replacing existing links.
func (s *Subdomain) linkForcingFiles() error {
	matches, err := filepath.Glob(s.full.ArtifactPath("fort.22*"))
	if err != nil {
		return err
	}
	for _, src := range matches {
		dst := s.ArtifactPath(filepath.Base(src))
		if _, err := os.Lstat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return err
			}
		}
		if err := os.Symlink(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// GenFull derives the fulldomain control file (fort.015 in the fulldomain
// directory) marking which fulldomain nodes fall inside the extraction
// region, so the coarse run retains region-limited output there. Requires
// Setup to have completed.
func (s *Subdomain) GenFull(noutgs, nspoolgs int) error {
	if s.full == nil {
		return &domain.SetupError{Dir: s.Path, Reason: "fulldomain reference not set"}
	}
	nodeMap, err := s.nodeMapFromDisk()
	if err != nil {
		return &domain.MissingInputError{
			Dir:      s.Path,
			Artifact: fort.NodeMapFile,
			Hint:     "subdomain setup has not run",
		}
	}

	fullNodes := make([]int, 0, len(nodeMap))
	for _, full := range nodeMap {
		fullNodes = append(fullNodes, full)
	}
	sort.Ints(fullNodes)

	return fort.WriteFullControl(s.full.ArtifactPath(fort.SubControlFile), fort.FullControl{
		NOutGS:   noutgs,
		NSpoolGS: nspoolgs,
		Nodes:    fullNodes,
	})
}

// GenBCs extracts boundary forcing from the fulldomain's region output for
// every open-boundary node of the subdomain and writes the
// boundary-condition file (fort.019). Nodes with depth below h0 are dry and
// receive no forcing. Fails with MissingInputError when the fulldomain
// output does not exist yet.
func (s *Subdomain) GenBCs(h0 float64) (*domain.BoundaryConditionSet, error) {
	if s.full == nil {
		return nil, &domain.SetupError{Dir: s.Path, Reason: "fulldomain reference not set"}
	}
	if !s.CheckFulldomain() {
		return nil, &domain.MissingInputError{
			Dir:      s.full.Path,
			Artifact: fort.RegionElevation,
			Hint:     "output files from the fulldomain run do not exist",
		}
	}

	subMesh, err := s.Mesh()
	if err != nil {
		return nil, err
	}
	s2f, err := s.UpdateSub2FullMap()
	if err != nil {
		return nil, err
	}
	boundary := subMesh.BoundaryNodes()
	if err := s2f.Complete(boundary); err != nil {
		return nil, err
	}

	elev, err := fort.ReadSeries(s.full.ArtifactPath(fort.RegionElevation))
	if err != nil {
		return nil, err
	}
	var vel *fort.Series
	if s.full.HasArtifact(fort.RegionVelocity) {
		vel, err = fort.ReadSeries(s.full.ArtifactPath(fort.RegionVelocity))
		if err != nil {
			return nil, err
		}
	}

	// An interrupted fulldomain run leaves fewer velocity snapshots than
	// elevation ones; forcing covers only the steps both outputs recorded.
	steps := len(elev.Times)
	if vel != nil && len(vel.Times) < steps {
		steps = len(vel.Times)
		s.logger.Warn("velocity output has fewer snapshots than elevation; truncating boundary forcing",
			"elevation_steps", len(elev.Times),
			"velocity_steps", len(vel.Times))
	}

	set := &domain.BoundaryConditionSet{Times: append([]float64(nil), elev.Times[:steps]...), H0: h0}
	for _, subID := range boundary {
		node, ok := subMesh.Node(subID)
		if !ok {
			return nil, &domain.MappingError{SubNode: subID, Reason: "boundary node missing from subdomain grid"}
		}
		if !set.Wet(node.Depth) {
			set.Excluded = append(set.Excluded, subID)
			continue
		}
		fullID, _ := s2f.FullNode(subID)
		if fullID < 1 || fullID > elev.NumNodes {
			return nil, &domain.MappingError{SubNode: subID, Reason: fmt.Sprintf("fulldomain node %d outside output range", fullID)}
		}

		series := domain.BoundaryNodeSeries{
			SubNode:   subID,
			FullNode:  fullID,
			Depth:     node.Depth,
			Elevation: append([]float64(nil), elev.Data[fullID-1][:steps]...),
		}
		if vel != nil && fullID <= vel.NumNodes {
			series.VelU = append([]float64(nil), vel.Data[fullID-1][:steps]...)
			series.VelV = append([]float64(nil), vel.DataV[fullID-1][:steps]...)
		} else {
			series.VelU = make([]float64, steps)
			series.VelV = make([]float64, steps)
		}
		set.Included = append(set.Included, series)
	}

	if err := fort.WriteBoundaryConditions(s.ArtifactPath(fort.BCFile), s.full.Path, set); err != nil {
		return nil, err
	}
	s.H0 = h0
	s.logger.Info("boundary conditions extracted",
		"included", len(set.Included),
		"excluded_dry", len(set.Excluded),
		"h0", h0)
	return set, nil
}

// Check reports whether the boundary-condition input needed to start a
// subdomain run exists.
func (s *Subdomain) Check() bool {
	return s.HasArtifact(fort.BCFile)
}

// CheckFulldomain delegates to the parent controller.
func (s *Subdomain) CheckFulldomain() bool {
	if s.full == nil {
		return false
	}
	return s.full.CheckFulldomain()
}

func (s *Subdomain) nodeMapFromDisk() (map[int]int, error) {
	return fort.ReadNodeMap(s.ArtifactPath(fort.NodeMapFile))
}

// UpdateSub2FullMap returns the subdomain-to-fulldomain correspondence,
// reading the persisted maps when present and otherwise rebuilding them by
// nearest-node search over a spatial index of the fulldomain mesh. The
// result is cached until either mesh changes.
func (s *Subdomain) UpdateSub2FullMap() (*domain.Sub2FullMap, error) {
	if s.s2f != nil {
		return s.s2f, nil
	}

	if s.HasArtifact(fort.NodeMapFile) && s.HasArtifact(fort.ElementMapFile) {
		nodes, err := fort.ReadNodeMap(s.ArtifactPath(fort.NodeMapFile))
		if err != nil {
			return nil, err
		}
		elems, err := fort.ReadNodeMap(s.ArtifactPath(fort.ElementMapFile))
		if err != nil {
			return nil, err
		}
		s.s2f = &domain.Sub2FullMap{Nodes: nodes, Elements: elems}
		return s.s2f, nil
	}

	if s.full == nil {
		return nil, &domain.SetupError{Dir: s.Path, Reason: "fulldomain reference not set"}
	}
	subMesh, err := s.Mesh()
	if err != nil {
		return nil, err
	}
	fullMesh, err := s.full.Mesh()
	if err != nil {
		return nil, err
	}

	cell := 0.0
	if shape, err := s.Shape(); err == nil {
		cell = shape.Scale
	}
	idx := spatial.NewIndex(fullMesh.Nodes, cell)

	nodes := make(map[int]int, len(subMesh.Nodes))
	for _, n := range subMesh.Nodes {
		nearest, ok := idx.Nearest(domain.Point{X: n.X, Y: n.Y})
		if !ok {
			return nil, &domain.MappingError{SubNode: n.ID, Reason: "fulldomain mesh is empty"}
		}
		nodes[n.ID] = nearest.ID
	}

	elems := make(map[int]int, len(subMesh.Elements))
	fullCentroids := make([]domain.MeshNode, 0, len(fullMesh.Elements))
	for _, e := range fullMesh.Elements {
		c, ok := centroid(fullMesh, e)
		if ok {
			fullCentroids = append(fullCentroids, domain.MeshNode{ID: e.ID, X: c.X, Y: c.Y})
		}
	}
	cidx := spatial.NewIndex(fullCentroids, cell)
	for _, e := range subMesh.Elements {
		c, ok := centroid(subMesh, e)
		if !ok {
			continue
		}
		nearest, ok := cidx.Nearest(c)
		if !ok {
			return nil, &domain.MappingError{SubNode: e.ID, Reason: "no fulldomain element centroid found"}
		}
		elems[e.ID] = nearest.ID
	}

	if err := fort.WriteNodeMap(s.ArtifactPath(fort.NodeMapFile), "subdomain fulldomain node", nodes); err != nil {
		return nil, err
	}
	if err := fort.WriteNodeMap(s.ArtifactPath(fort.ElementMapFile), "subdomain fulldomain element", elems); err != nil {
		return nil, err
	}

	s.s2f = &domain.Sub2FullMap{Nodes: nodes, Elements: elems}
	return s.s2f, nil
}

func centroid(m *domain.Mesh, e domain.MeshElement) (domain.Point, bool) {
	var cx, cy float64
	for _, id := range e.Nodes {
		n, ok := m.Node(id)
		if !ok {
			return domain.Point{}, false
		}
		cx += n.X
		cy += n.Y
	}
	return domain.Point{X: cx / 3, Y: cy / 3}, true
}

// extractSubMesh carves the nested mesh out of the fulldomain mesh: elements
// whose three vertices all lie inside the shape are kept, their nodes are
// renumbered 1..n in ascending fulldomain order, and every kept node that
// also belongs to a discarded element becomes an open-boundary node of the
// subdomain (the interface that receives forcing).
func extractSubMesh(full *domain.Mesh, shape domain.Shape) (*domain.Mesh, map[int]int, map[int]int, error) {
	inside := make(map[int]bool, len(full.Nodes))
	for _, n := range full.Nodes {
		if shape.Contains(domain.Point{X: n.X, Y: n.Y}) {
			inside[n.ID] = true
		}
	}

	var keptElems []domain.MeshElement
	used := make(map[int]bool)
	for _, e := range full.Elements {
		if inside[e.Nodes[0]] && inside[e.Nodes[1]] && inside[e.Nodes[2]] {
			keptElems = append(keptElems, e)
			for _, id := range e.Nodes {
				used[id] = true
			}
		}
	}
	if len(keptElems) == 0 {
		return nil, nil, nil, &domain.SetupError{Reason: "extraction region encloses no elements"}
	}

	boundary := make(map[int]bool)
	for _, e := range full.Elements {
		if inside[e.Nodes[0]] && inside[e.Nodes[1]] && inside[e.Nodes[2]] {
			continue
		}
		for _, id := range e.Nodes {
			if used[id] {
				boundary[id] = true
			}
		}
	}

	fullIDs := make([]int, 0, len(used))
	for id := range used {
		fullIDs = append(fullIDs, id)
	}
	sort.Ints(fullIDs)

	full2sub := make(map[int]int, len(fullIDs))
	nodeMap := make(map[int]int, len(fullIDs))
	sub := &domain.Mesh{Name: full.Name + " subdomain"}
	for i, fullID := range fullIDs {
		subID := i + 1
		full2sub[fullID] = subID
		nodeMap[subID] = fullID
		n, _ := full.Node(fullID)
		sub.Nodes = append(sub.Nodes, domain.MeshNode{ID: subID, X: n.X, Y: n.Y, Depth: n.Depth})
	}

	elemMap := make(map[int]int, len(keptElems))
	sort.Slice(keptElems, func(i, j int) bool { return keptElems[i].ID < keptElems[j].ID })
	for i, e := range keptElems {
		subID := i + 1
		elemMap[subID] = e.ID
		sub.Elements = append(sub.Elements, domain.MeshElement{
			ID:    subID,
			Nodes: [3]int{full2sub[e.Nodes[0]], full2sub[e.Nodes[1]], full2sub[e.Nodes[2]]},
		})
	}

	var seg []int
	for _, fullID := range fullIDs {
		if boundary[fullID] {
			seg = append(seg, full2sub[fullID])
		}
	}
	if len(seg) > 0 {
		sub.OpenBoundaries = [][]int{seg}
	}

	return sub, nodeMap, elemMap, nil
}
