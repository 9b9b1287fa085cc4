package domain

// BoundaryNodeSeries is the forcing time series for one open-boundary node
// of the subdomain, in subdomain node numbering.
type BoundaryNodeSeries struct {
	SubNode   int
	FullNode  int
	Depth     float64
	Elevation []float64
	VelU      []float64
	VelV      []float64
}

// BoundaryConditionSet is the full forcing record extracted from a
// fulldomain solution: one series per wet open-boundary node, a shared time
// axis, and the depth threshold that was applied. Nodes with depth below H0
// are suppressed and carry no series.
type BoundaryConditionSet struct {
	Times    []float64
	H0       float64
	Included []BoundaryNodeSeries
	// Excluded lists the boundary nodes that failed the wet test
	// (depth < H0), kept for operator-visible reporting.
	Excluded []int
}

// Wet reports whether a node of the given depth receives forcing under the
// configured threshold. The policy is inclusive: a node is wet when its
// depth is greater than or equal to H0. This is deliberate and documented
// rather than inherited, since the upstream convention left the strictness
// of the inequality open.
func (b *BoundaryConditionSet) Wet(depth float64) bool {
	return depth >= b.H0
}

// NodeIDs returns the subdomain IDs of all included nodes, in series order.
func (b *BoundaryConditionSet) NodeIDs() []int {
	ids := make([]int, len(b.Included))
	for i, s := range b.Included {
		ids[i] = s.SubNode
	}
	return ids
}
