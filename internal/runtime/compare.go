package runtime

import (
	"context"
	"math"
	"sort"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// CompareToFulldomain loads the requested output variables from both
// domains, resolves node correspondence through the sub2full map, and
// returns aligned per-variable discrepancies (fulldomain minus subdomain).
//
// Time alignment policy: the fulldomain's coarser time axis is the
// resampling target, truncated to the range the subdomain actually covers;
// each target timestamp picks the nearest subdomain sample. Comparing
// misaligned samples silently would be a correctness hazard, so the policy
// is fixed here rather than configurable.
//
// tsVars name time-varying outputs (fort.63, fort.64), ntsVars the
// non-time-varying extrema (maxele.63, maxvel.63). Vector outputs are
// compared by magnitude.
func (s *Subdomain) CompareToFulldomain(ctx context.Context, tsVars, ntsVars []string) (*domain.ComparisonResult, error) {
	if s.full == nil {
		return nil, &domain.SetupError{Dir: s.Path, Reason: "fulldomain reference not set"}
	}
	s2f, err := s.UpdateSub2FullMap()
	if err != nil {
		return nil, err
	}
	subMesh, err := s.Mesh()
	if err != nil {
		return nil, err
	}

	subNodes := make([]int, len(subMesh.Nodes))
	for i, n := range subMesh.Nodes {
		subNodes[i] = n.ID
	}
	sort.Ints(subNodes)
	if err := s2f.Complete(subNodes); err != nil {
		return nil, err
	}

	result := domain.NewComparisonResult()

	for _, name := range tsVars {
		subSeries, fullSeries, err := s.loadBoth(ctx, name)
		if err != nil {
			return nil, err
		}
		diff, err := diffSeries(name, subNodes, s2f, subSeries, fullSeries)
		if err != nil {
			return nil, err
		}
		result.TsData[name] = diff
		result.TimeObs[name] = diff.Times
	}

	for _, name := range ntsVars {
		if !s.HasArtifact(name) {
			return nil, &domain.VariableNotFoundError{Variable: name, Dir: s.Path}
		}
		if !s.full.HasArtifact(name) {
			return nil, &domain.VariableNotFoundError{Variable: name, Dir: s.full.Path}
		}
		subVals, err := fort.ReadExtrema(s.ArtifactPath(name))
		if err != nil {
			return nil, err
		}
		fullVals, err := fort.ReadExtrema(s.full.ArtifactPath(name))
		if err != nil {
			return nil, err
		}
		diff := &domain.VariableDiff{Variable: name, SubNodes: subNodes}
		for _, subID := range subNodes {
			fullID, _ := s2f.FullNode(subID)
			if subID > len(subVals) || fullID > len(fullVals) {
				return nil, &domain.MappingError{SubNode: subID, Reason: "node outside extrema record"}
			}
			f, sv := fullVals[fullID-1], subVals[subID-1]
			diff.Full = append(diff.Full, []float64{f})
			diff.Sub = append(diff.Sub, []float64{sv})
			diff.Error = append(diff.Error, []float64{f - sv})
		}
		result.NtsData[name] = diff
	}

	return result, nil
}

// loadBoth reads one output variable from both case directories
// concurrently. Missing artifacts surface as VariableNotFoundError naming
// the domain that lacks them.
func (s *Subdomain) loadBoth(ctx context.Context, name string) (sub, full *fort.Series, err error) {
	if !s.HasArtifact(name) {
		return nil, nil, &domain.VariableNotFoundError{Variable: name, Dir: s.Path}
	}
	if !s.full.HasArtifact(name) {
		return nil, nil, &domain.VariableNotFoundError{Variable: name, Dir: s.full.Path}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sub, err = fort.ReadSeries(s.ArtifactPath(name))
		return err
	})
	g.Go(func() error {
		var err error
		full, err = fort.ReadSeries(s.full.ArtifactPath(name))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sub, full, nil
}

func diffSeries(name string, subNodes []int, s2f *domain.Sub2FullMap, sub, full *fort.Series) (*domain.VariableDiff, error) {
	times := alignTimes(full.Times, sub.Times)
	diff := &domain.VariableDiff{Variable: name, SubNodes: subNodes, Times: times}

	for _, subID := range subNodes {
		fullID, _ := s2f.FullNode(subID)
		if subID > sub.NumNodes || fullID > full.NumNodes {
			return nil, &domain.MappingError{SubNode: subID, Reason: "node outside time-series record"}
		}
		fullRow := make([]float64, len(times))
		subRow := make([]float64, len(times))
		errRow := make([]float64, len(times))
		for i, t := range times {
			fi := nearestStep(full.Times, t)
			si := nearestStep(sub.Times, t)
			f := sampleValue(full, fullID, fi)
			sv := sampleValue(sub, subID, si)
			fullRow[i] = f
			subRow[i] = sv
			errRow[i] = f - sv
		}
		diff.Full = append(diff.Full, fullRow)
		diff.Sub = append(diff.Sub, subRow)
		diff.Error = append(diff.Error, errRow)
	}
	return diff, nil
}

// alignTimes returns the fulldomain axis truncated to the subdomain's
// coverage.
func alignTimes(full, sub []float64) []float64 {
	if len(sub) == 0 || len(full) == 0 {
		return nil
	}
	last := sub[len(sub)-1]
	var out []float64
	for _, t := range full {
		if t > last+1e-9 {
			break
		}
		out = append(out, t)
	}
	return out
}

// nearestStep returns the index of the sample closest in time to t. Time
// axes are monotonically increasing.
func nearestStep(times []float64, t float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, ti := range times {
		d := math.Abs(ti - t)
		if d < bestDist {
			best, bestDist = i, d
		} else if ti > t {
			break
		}
	}
	return best
}

func sampleValue(s *fort.Series, nodeID, step int) float64 {
	if step >= len(s.Data[nodeID-1]) {
		step = len(s.Data[nodeID-1]) - 1
	}
	v := s.Data[nodeID-1][step]
	if s.Comp == 2 {
		return math.Hypot(v, s.DataV[nodeID-1][step])
	}
	return v
}
