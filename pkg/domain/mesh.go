package domain

// MeshNode is a single grid node: position plus bathymetric depth. Depth is
// positive below the geoid, so negative values are above sea level.
type MeshNode struct {
	ID    int
	X     float64
	Y     float64
	Depth float64
}

// MeshElement is a triangular element referencing node IDs.
type MeshElement struct {
	ID    int
	Nodes [3]int
}

// Mesh is the minimal view of a grid file: nodes, connectivity and the open
// boundary segments that receive forcing. Node and element IDs are the
// 1-based identifiers from the grid file.
type Mesh struct {
	Name           string
	Nodes          []MeshNode
	Elements       []MeshElement
	OpenBoundaries [][]int

	byID map[int]int
}

// Node returns the node with the given ID, or false when absent.
func (m *Mesh) Node(id int) (MeshNode, bool) {
	if m.byID == nil {
		m.byID = make(map[int]int, len(m.Nodes))
		for i, n := range m.Nodes {
			m.byID[n.ID] = i
		}
	}
	i, ok := m.byID[id]
	if !ok {
		return MeshNode{}, false
	}
	return m.Nodes[i], true
}

// BoundaryNodes returns the IDs of all open-boundary nodes, deduplicated,
// in segment order.
func (m *Mesh) BoundaryNodes() []int {
	seen := make(map[int]bool)
	var out []int
	for _, seg := range m.OpenBoundaries {
		for _, id := range seg {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Sub2FullMap is the node-level (and element-level) correspondence between a
// subdomain mesh and its parent fulldomain mesh. Keys are subdomain IDs,
// values fulldomain IDs. The map is built once per domain pair and must be
// invalidated when either mesh changes.
type Sub2FullMap struct {
	Nodes    map[int]int
	Elements map[int]int
}

// FullNode resolves a subdomain node ID to its fulldomain counterpart.
func (m *Sub2FullMap) FullNode(subID int) (int, bool) {
	full, ok := m.Nodes[subID]
	return full, ok
}

// Complete reports whether every ID in required has a node entry. The
// orchestrator calls this with the subdomain's boundary node set before
// trusting the map for extraction or comparison.
func (m *Sub2FullMap) Complete(required []int) error {
	for _, id := range required {
		if _, ok := m.Nodes[id]; !ok {
			return &MappingError{SubNode: id, Reason: "node absent from sub2full map"}
		}
	}
	return nil
}
