package fort

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coastalkit/nestor/pkg/domain"
)

// Canonical artifact names within a case directory.
const (
	GridFile       = "fort.14"
	ModelControl   = "fort.15"
	SubControlFile = "fort.015"
	BCFile         = "fort.019"
	ElevationTS    = "fort.63"
	VelocityTS     = "fort.64"
	MaxElevation   = "maxele.63"
	MaxVelocity    = "maxvel.63"
	// RegionOutputGlob matches the region-limited output family written
	// by a fulldomain run (fort.063, fort.064).
	RegionOutputGlob = "fort.06*"
	// RegionElevation and RegionVelocity are the members the extraction
	// step actually reads.
	RegionElevation = "fort.063"
	RegionVelocity  = "fort.064"
	NodeMapFile     = "py.140"
	ElementMapFile  = "py.141"
	ShapeEllipse    = "shape.e14"
	ShapeCircle     = "shape.c14"
)

type lineScanner struct {
	s    *bufio.Scanner
	path string
	n    int
}

func newLineScanner(f *os.File) *lineScanner {
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &lineScanner{s: s, path: f.Name()}
}

// next returns the fields of the next non-empty line.
func (ls *lineScanner) next() ([]string, error) {
	for ls.s.Scan() {
		ls.n++
		fields := strings.Fields(ls.s.Text())
		if len(fields) > 0 {
			return fields, nil
		}
	}
	if err := ls.s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ls.path, err)
	}
	return nil, nil
}

func (ls *lineScanner) errf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", ls.path, ls.n, fmt.Sprintf(format, args...))
}

func parseInt(s string) (int, error) { return strconv.Atoi(s) }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// ReadGrid parses a grid file into the minimal mesh view. Land boundary
// sections, when present, are ignored: only open boundaries receive forcing.
func ReadGrid(path string) (*domain.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	mesh := &domain.Mesh{}

	// AGRID: alphanumeric grid name.
	if ls.s.Scan() {
		ls.n++
		mesh.Name = strings.TrimSpace(ls.s.Text())
	}

	counts, err := ls.next()
	if err != nil {
		return nil, err
	}
	if len(counts) < 2 {
		return nil, ls.errf("expected element and node counts")
	}
	ne, err := parseInt(counts[0])
	if err != nil {
		return nil, ls.errf("bad element count %q", counts[0])
	}
	np, err := parseInt(counts[1])
	if err != nil {
		return nil, ls.errf("bad node count %q", counts[1])
	}

	mesh.Nodes = make([]domain.MeshNode, 0, np)
	for i := 0; i < np; i++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if len(fields) < 4 {
			return nil, ls.errf("node record needs id x y depth")
		}
		id, err := parseInt(fields[0])
		if err != nil {
			return nil, ls.errf("bad node id %q", fields[0])
		}
		x, err1 := parseFloat(fields[1])
		y, err2 := parseFloat(fields[2])
		d, err3 := parseFloat(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ls.errf("bad node coordinates for node %d", id)
		}
		mesh.Nodes = append(mesh.Nodes, domain.MeshNode{ID: id, X: x, Y: y, Depth: d})
	}

	mesh.Elements = make([]domain.MeshElement, 0, ne)
	for i := 0; i < ne; i++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if len(fields) < 5 {
			return nil, ls.errf("element record needs id nvert n1 n2 n3")
		}
		id, err := parseInt(fields[0])
		if err != nil {
			return nil, ls.errf("bad element id %q", fields[0])
		}
		var nodes [3]int
		for j := 0; j < 3; j++ {
			n, err := parseInt(fields[2+j])
			if err != nil {
				return nil, ls.errf("bad vertex in element %d", id)
			}
			nodes[j] = n
		}
		mesh.Elements = append(mesh.Elements, domain.MeshElement{ID: id, Nodes: nodes})
	}

	// Open boundary section is optional in partial grids.
	fields, err := ls.next()
	if err != nil || fields == nil {
		return mesh, err
	}
	nope, err := parseInt(fields[0])
	if err != nil {
		return nil, ls.errf("bad open boundary count %q", fields[0])
	}
	// NETA (total open boundary nodes) is informational.
	if _, err := ls.next(); err != nil {
		return nil, err
	}
	for b := 0; b < nope; b++ {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return nil, ls.errf("truncated open boundary section")
		}
		count, err := parseInt(fields[0])
		if err != nil {
			return nil, ls.errf("bad boundary segment size %q", fields[0])
		}
		seg := make([]int, 0, count)
		for i := 0; i < count; i++ {
			fields, err := ls.next()
			if err != nil {
				return nil, err
			}
			if fields == nil {
				return nil, ls.errf("truncated boundary segment %d", b+1)
			}
			id, err := parseInt(fields[0])
			if err != nil {
				return nil, ls.errf("bad boundary node %q", fields[0])
			}
			seg = append(seg, id)
		}
		mesh.OpenBoundaries = append(mesh.OpenBoundaries, seg)
	}

	return mesh, nil
}

// WriteGrid writes a mesh in the same layout ReadGrid parses.
func WriteGrid(path string, mesh *domain.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, mesh.Name)
	fmt.Fprintf(w, "%d %d\n", len(mesh.Elements), len(mesh.Nodes))
	for _, n := range mesh.Nodes {
		fmt.Fprintf(w, "%d %17.15f %17.15f %17.15f\n", n.ID, n.X, n.Y, n.Depth)
	}
	for _, e := range mesh.Elements {
		fmt.Fprintf(w, "%d 3 %d %d %d\n", e.ID, e.Nodes[0], e.Nodes[1], e.Nodes[2])
	}
	total := 0
	for _, seg := range mesh.OpenBoundaries {
		total += len(seg)
	}
	fmt.Fprintf(w, "%d\n%d\n", len(mesh.OpenBoundaries), total)
	for _, seg := range mesh.OpenBoundaries {
		fmt.Fprintf(w, "%d\n", len(seg))
		for _, id := range seg {
			fmt.Fprintf(w, "%d\n", id)
		}
	}
	return w.Flush()
}
