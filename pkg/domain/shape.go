package domain

import "math"

// ShapeKind discriminates the supported extraction-region geometries.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeEllipse
	ShapeCircle
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeEllipse:
		return "ellipse"
	case ShapeCircle:
		return "circle"
	default:
		return "none"
	}
}

// Point is a 2D mesh coordinate.
type Point struct {
	X float64
	Y float64
}

// Shape is the extraction-region geometry that carves the subdomain out of
// the fulldomain mesh. An ellipse is parameterized by its center, the two
// semi-axes and a characteristic length used to buffer the boundary search;
// a circle by center and radius.
type Shape struct {
	Kind   ShapeKind
	Center Point
	// SemiX and SemiY are the ellipse semi-axes. For a circle both carry
	// the radius.
	SemiX float64
	SemiY float64
	// Scale is the characteristic mesh length of the extraction region,
	// used to size the spatial index cells when building node maps.
	Scale float64
}

// Ellipse constructs an elliptical shape.
func Ellipse(center Point, semiX, semiY, scale float64) Shape {
	return Shape{Kind: ShapeEllipse, Center: center, SemiX: semiX, SemiY: semiY, Scale: scale}
}

// Circle constructs a circular shape.
func Circle(center Point, radius float64) Shape {
	return Shape{Kind: ShapeCircle, Center: center, SemiX: radius, SemiY: radius, Scale: radius}
}

// Validate reports why the shape cannot define a subdomain, or nil. A shape
// is degenerate when either semi-axis is non-positive (zero area).
func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeEllipse, ShapeCircle:
		if s.SemiX <= 0 || s.SemiY <= 0 {
			return &SetupError{Reason: "degenerate extraction region: semi-axes must be positive"}
		}
		return nil
	default:
		return &SetupError{Reason: "extraction region geometry is missing"}
	}
}

// Contains reports whether p lies inside or on the shape.
func (s Shape) Contains(p Point) bool {
	if s.SemiX <= 0 || s.SemiY <= 0 {
		return false
	}
	dx := (p.X - s.Center.X) / s.SemiX
	dy := (p.Y - s.Center.Y) / s.SemiY
	return dx*dx+dy*dy <= 1.0
}

// BoundingBox returns the axis-aligned extent of the shape, padded by the
// characteristic length so that boundary nodes on the rim are never missed.
func (s Shape) BoundingBox() (minPt, maxPt Point) {
	pad := s.Scale
	if pad < 0 {
		pad = 0
	}
	minPt = Point{X: s.Center.X - s.SemiX - pad, Y: s.Center.Y - s.SemiY - pad}
	maxPt = Point{X: s.Center.X + s.SemiX + pad, Y: s.Center.Y + s.SemiY + pad}
	return minPt, maxPt
}

// Area returns the enclosed area.
func (s Shape) Area() float64 {
	return math.Pi * s.SemiX * s.SemiY
}
