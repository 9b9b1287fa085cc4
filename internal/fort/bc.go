package fort

import (
	"bufio"
	"fmt"
	"os"

	"github.com/coastalkit/nestor/pkg/domain"
)

// WriteBoundaryConditions persists the extracted forcing record (fort.019).
// Layout: a provenance header, a "nsteps nnodes h0" line, one "sub full
// depth" line per included node, then per recorded step the time followed by
// "eta u v" per node in node-list order.
func WriteBoundaryConditions(path, source string, set *domain.BoundaryConditionSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "boundary forcing extracted from %s\n", source)
	fmt.Fprintf(w, "%d %d %g\n", len(set.Times), len(set.Included), set.H0)
	for _, s := range set.Included {
		fmt.Fprintf(w, "%d %d %g\n", s.SubNode, s.FullNode, s.Depth)
	}
	for step, t := range set.Times {
		fmt.Fprintf(w, "%g\n", t)
		for _, s := range set.Included {
			fmt.Fprintf(w, "%g %g %g\n", s.Elevation[step], s.VelU[step], s.VelV[step])
		}
	}
	return w.Flush()
}

// ReadBoundaryConditions parses a record written by WriteBoundaryConditions.
func ReadBoundaryConditions(path string) (*domain.BoundaryConditionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	if ls.s.Scan() {
		ls.n++ // provenance header
	}

	header, err := ls.next()
	if err != nil {
		return nil, err
	}
	if len(header) < 3 {
		return nil, ls.errf("expected nsteps nnodes h0 header")
	}
	nsteps, err1 := parseInt(header[0])
	nnodes, err2 := parseInt(header[1])
	h0, err3 := parseFloat(header[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, ls.errf("bad boundary-condition header")
	}

	set := &domain.BoundaryConditionSet{H0: h0}
	for i := 0; i < nnodes; i++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if len(fields) < 3 {
			return nil, ls.errf("node record needs sub full depth")
		}
		sub, err1 := parseInt(fields[0])
		full, err2 := parseInt(fields[1])
		depth, err3 := parseFloat(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ls.errf("bad node record")
		}
		set.Included = append(set.Included, domain.BoundaryNodeSeries{
			SubNode:   sub,
			FullNode:  full,
			Depth:     depth,
			Elevation: make([]float64, 0, nsteps),
			VelU:      make([]float64, 0, nsteps),
			VelV:      make([]float64, 0, nsteps),
		})
	}

	for step := 0; step < nsteps; step++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}
		t, err := parseFloat(fields[0])
		if err != nil {
			return nil, ls.errf("bad step time %q", fields[0])
		}
		set.Times = append(set.Times, t)
		for i := range set.Included {
			fields, err := ls.next()
			if err != nil {
				return nil, err
			}
			if len(fields) < 3 {
				return nil, ls.errf("forcing record needs eta u v")
			}
			eta, err1 := parseFloat(fields[0])
			u, err2 := parseFloat(fields[1])
			v, err3 := parseFloat(fields[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, ls.errf("bad forcing record")
			}
			s := &set.Included[i]
			s.Elevation = append(s.Elevation, eta)
			s.VelU = append(s.VelU, u)
			s.VelV = append(s.VelV, v)
		}
	}
	return set, nil
}
