package fort

import (
	"bufio"
	"fmt"
	"os"
)

// Series is a global output record: one or two components per node per
// recorded timestep. Data is indexed [node][step] in file node order
// (node IDs run 1..NumNodes).
type Series struct {
	Name     string
	NumNodes int
	// Comp is 1 for scalar output (elevation) and 2 for vector output
	// (velocity).
	Comp  int
	Times []float64
	Data  [][]float64
	// DataV holds the second component when Comp == 2.
	DataV [][]float64
}

// Value returns the first-component sample for a 1-based node ID.
func (s *Series) Value(nodeID, step int) float64 {
	return s.Data[nodeID-1][step]
}

// ReadSeries parses a global time-series output file (fort.63, fort.64 and
// the region-limited fort.06* family share the layout).
func ReadSeries(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	s := &Series{}

	if ls.s.Scan() {
		ls.n++
		s.Name = ls.s.Text()
	}
	header, err := ls.next()
	if err != nil {
		return nil, err
	}
	if len(header) < 5 {
		return nil, ls.errf("expected NDSETS NP DT NSPOOL IRTYPE header")
	}
	nsets, err1 := parseInt(header[0])
	np, err2 := parseInt(header[1])
	irtype, err3 := parseInt(header[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, ls.errf("bad series header")
	}
	if irtype != 1 && irtype != 2 {
		return nil, ls.errf("unsupported record type %d", irtype)
	}

	s.NumNodes = np
	s.Comp = irtype
	s.Data = make([][]float64, np)
	if irtype == 2 {
		s.DataV = make([][]float64, np)
	}
	for i := range s.Data {
		s.Data[i] = make([]float64, 0, nsets)
		if irtype == 2 {
			s.DataV[i] = make([]float64, 0, nsets)
		}
	}

	for set := 0; set < nsets; set++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			// Tolerate truncated output from an interrupted run; the
			// caller sees however many complete sets were recorded.
			break
		}
		t, err := parseFloat(fields[0])
		if err != nil {
			return nil, ls.errf("bad snapshot time %q", fields[0])
		}
		s.Times = append(s.Times, t)
		for i := 0; i < np; i++ {
			fields, err := ls.next()
			if err != nil {
				return nil, err
			}
			if len(fields) < 1+irtype {
				return nil, ls.errf("truncated snapshot record")
			}
			id, err := parseInt(fields[0])
			if err != nil || id < 1 || id > np {
				return nil, ls.errf("bad node id %q in snapshot", fields[0])
			}
			v, err := parseFloat(fields[1])
			if err != nil {
				return nil, ls.errf("bad value for node %d", id)
			}
			s.Data[id-1] = append(s.Data[id-1], v)
			if irtype == 2 {
				v2, err := parseFloat(fields[2])
				if err != nil {
					return nil, ls.errf("bad second component for node %d", id)
				}
				s.DataV[id-1] = append(s.DataV[id-1], v2)
			}
		}
	}

	return s, nil
}

// WriteSeries writes a Series in the layout ReadSeries parses. The test
// fixtures and the fulldomain region-output generation both go through it.
func WriteSeries(path string, s *Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, s.Name)
	dt := 0.0
	if len(s.Times) > 1 {
		dt = s.Times[1] - s.Times[0]
	}
	fmt.Fprintf(w, "%d %d %g 1 %d\n", len(s.Times), s.NumNodes, dt, s.Comp)
	for step, t := range s.Times {
		fmt.Fprintf(w, "%g %d\n", t, step+1)
		for i := 0; i < s.NumNodes; i++ {
			if s.Comp == 2 {
				fmt.Fprintf(w, "%d %g %g\n", i+1, s.Data[i][step], s.DataV[i][step])
			} else {
				fmt.Fprintf(w, "%d %g\n", i+1, s.Data[i][step])
			}
		}
	}
	return w.Flush()
}

// ReadExtrema parses a non-time-varying extrema file (maxele.63, maxvel.63):
// a single snapshot holding one value per node.
func ReadExtrema(path string) ([]float64, error) {
	s, err := ReadSeries(path)
	if err != nil {
		return nil, err
	}
	out := make([]float64, s.NumNodes)
	for i := range out {
		if len(s.Data[i]) > 0 {
			out[i] = s.Data[i][len(s.Data[i])-1]
		}
	}
	return out, nil
}

// WriteExtrema writes a single-snapshot extrema file.
func WriteExtrema(path, name string, values []float64) error {
	s := &Series{
		Name:     name,
		NumNodes: len(values),
		Comp:     1,
		Times:    []float64{0},
		Data:     make([][]float64, len(values)),
	}
	for i, v := range values {
		s.Data[i] = []float64{v}
	}
	return WriteSeries(path, s)
}
