package domain

import "math"

// VariableDiff is the discrepancy record for one output variable. For
// time-varying variables Error is indexed [node][timestep]; for extrema
// variables each node carries a single value. Errors are computed as
// fulldomain minus subdomain at corresponding nodes, with the subdomain
// series resampled onto the fulldomain's coarser time axis by nearest
// timestamp.
type VariableDiff struct {
	Variable string
	// SubNodes holds the subdomain node IDs, parallel to the rows of
	// Error, Full and Sub.
	SubNodes []int
	Times    []float64
	Error    [][]float64
	Full     [][]float64
	Sub      [][]float64
}

// MaxAbs returns the largest absolute discrepancy and the subdomain node at
// which it occurs. NaN samples (dry nodes) are treated as zero, matching the
// fill-invalid convention of the reference tooling.
func (d *VariableDiff) MaxAbs() (float64, int) {
	maxVal, maxNode := 0.0, 0
	if len(d.SubNodes) > 0 {
		maxNode = d.SubNodes[0]
	}
	for i, row := range d.Error {
		for _, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			if math.Abs(v) > maxVal {
				maxVal = math.Abs(v)
				maxNode = d.SubNodes[i]
			}
		}
	}
	return maxVal, maxNode
}

// ComparisonResult aggregates the per-variable discrepancies of one
// subdomain-to-fulldomain comparison. TsData holds time-varying variables,
// NtsData the non-time-varying extrema (maxele, maxvel), and TimeObs the
// shared time axis per time-varying variable.
type ComparisonResult struct {
	TsData  map[string]*VariableDiff
	NtsData map[string]*VariableDiff
	TimeObs map[string][]float64
}

// NewComparisonResult allocates an empty result.
func NewComparisonResult() *ComparisonResult {
	return &ComparisonResult{
		TsData:  make(map[string]*VariableDiff),
		NtsData: make(map[string]*VariableDiff),
		TimeObs: make(map[string][]float64),
	}
}
