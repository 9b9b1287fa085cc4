package fort

import (
	"bufio"
	"fmt"
	"os"
)

// FullControl is the fulldomain control record written by the genfull step.
// It tells the fulldomain run which nodes fall inside the extraction region
// so that region-limited output (fort.06*) is retained there.
type FullControl struct {
	// NOutGS flags whether region output files are written at all.
	NOutGS int
	// NSpoolGS is the timestep stride at which region output is recorded.
	NSpoolGS int
	// Nodes are the fulldomain node IDs enclosed by the subdomain shape.
	Nodes []int
}

// WriteFullControl writes the control record.
func WriteFullControl(path string, c FullControl) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d\n%d\n%d\n", c.NOutGS, c.NSpoolGS, len(c.Nodes))
	for _, id := range c.Nodes {
		fmt.Fprintf(w, "%d\n", id)
	}
	return w.Flush()
}

// ReadFullControl parses a control record written by WriteFullControl.
func ReadFullControl(path string) (FullControl, error) {
	f, err := os.Open(path)
	if err != nil {
		return FullControl{}, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	var c FullControl
	for _, dst := range []*int{&c.NOutGS, &c.NSpoolGS} {
		fields, err := ls.next()
		if err != nil {
			return FullControl{}, err
		}
		if fields == nil {
			return FullControl{}, ls.errf("truncated control header")
		}
		v, err := parseInt(fields[0])
		if err != nil {
			return FullControl{}, ls.errf("bad control value %q", fields[0])
		}
		*dst = v
	}

	fields, err := ls.next()
	if err != nil {
		return FullControl{}, err
	}
	if fields == nil {
		return FullControl{}, ls.errf("missing enclosed node count")
	}
	count, err := parseInt(fields[0])
	if err != nil {
		return FullControl{}, ls.errf("bad node count %q", fields[0])
	}
	c.Nodes = make([]int, 0, count)
	for i := 0; i < count; i++ {
		fields, err := ls.next()
		if err != nil {
			return FullControl{}, err
		}
		if fields == nil {
			return FullControl{}, ls.errf("truncated node list")
		}
		id, err := parseInt(fields[0])
		if err != nil {
			return FullControl{}, ls.errf("bad node id %q", fields[0])
		}
		c.Nodes = append(c.Nodes, id)
	}
	return c, nil
}

// SubControl is the subdomain-side control record: which boundary variables
// the refined run enforces from the boundary-condition file.
type SubControl struct {
	BoundEle bool
	BoundVel bool
	BoundWD  bool
}

// WriteSubControl writes the subdomain control record.
func WriteSubControl(path string, c SubControl) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, flag := range []bool{c.BoundEle, c.BoundVel, c.BoundWD} {
		v := 0
		if flag {
			v = 1
		}
		fmt.Fprintf(w, "%d\n", v)
	}
	return w.Flush()
}
