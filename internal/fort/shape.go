package fort

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coastalkit/nestor/pkg/domain"
)

// ShapeExists reports whether a shape artifact (ellipse or circle) is
// already present in dir. Generation steps use this as their idempotency
// predicate: an existing artifact is never regenerated.
func ShapeExists(dir string) bool {
	matches, _ := filepath.Glob(filepath.Join(dir, "shape.*14"))
	return len(matches) > 0
}

// WriteShape persists the extraction-region geometry in dir under the
// conventional name for its kind.
func WriteShape(dir string, s domain.Shape) error {
	if err := s.Validate(); err != nil {
		return err
	}

	var path string
	switch s.Kind {
	case domain.ShapeEllipse:
		path = filepath.Join(dir, ShapeEllipse)
	case domain.ShapeCircle:
		path = filepath.Join(dir, ShapeCircle)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%17.15f %17.15f\n", s.Center.X, s.Center.Y)
	if s.Kind == domain.ShapeEllipse {
		fmt.Fprintf(w, "%17.15f %17.15f\n", s.SemiX, s.SemiY)
		fmt.Fprintf(w, "%17.15f\n", s.Scale)
	} else {
		fmt.Fprintf(w, "%17.15f\n", s.SemiX)
	}
	return w.Flush()
}

// ReadShape loads the shape artifact from dir, preferring the ellipse file
// when both exist. Returns a SetupError when neither is present.
func ReadShape(dir string) (domain.Shape, error) {
	if path := filepath.Join(dir, ShapeEllipse); fileExists(path) {
		return readEllipse(path)
	}
	if path := filepath.Join(dir, ShapeCircle); fileExists(path) {
		return readCircle(path)
	}
	return domain.Shape{}, &domain.SetupError{Dir: dir, Reason: "no shape.e14 or shape.c14 artifact"}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readEllipse(path string) (domain.Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Shape{}, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	center, err := readPoint(ls)
	if err != nil {
		return domain.Shape{}, err
	}
	axes, err := ls.next()
	if err != nil {
		return domain.Shape{}, err
	}
	if len(axes) < 2 {
		return domain.Shape{}, ls.errf("expected two semi-axes")
	}
	a, err1 := parseFloat(axes[0])
	b, err2 := parseFloat(axes[1])
	if err1 != nil || err2 != nil {
		return domain.Shape{}, ls.errf("bad semi-axes")
	}
	scale := 0.0
	if fields, err := ls.next(); err == nil && fields != nil {
		scale, _ = parseFloat(fields[0])
	}
	return domain.Ellipse(center, a, b, scale), nil
}

func readCircle(path string) (domain.Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Shape{}, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	center, err := readPoint(ls)
	if err != nil {
		return domain.Shape{}, err
	}
	fields, err := ls.next()
	if err != nil {
		return domain.Shape{}, err
	}
	if fields == nil {
		return domain.Shape{}, ls.errf("expected radius")
	}
	r, err := parseFloat(fields[0])
	if err != nil {
		return domain.Shape{}, ls.errf("bad radius %q", fields[0])
	}
	return domain.Circle(center, r), nil
}

func readPoint(ls *lineScanner) (domain.Point, error) {
	fields, err := ls.next()
	if err != nil {
		return domain.Point{}, err
	}
	if len(fields) < 2 {
		return domain.Point{}, ls.errf("expected x y pair")
	}
	x, err1 := parseFloat(fields[0])
	y, err2 := parseFloat(fields[1])
	if err1 != nil || err2 != nil {
		return domain.Point{}, ls.errf("bad coordinate pair")
	}
	return domain.Point{X: x, Y: y}, nil
}
