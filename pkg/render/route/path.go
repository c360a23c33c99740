package route

import (
	"fmt"
	"math"
)

// Kind tags the geometry held by a [Path].
type Kind int

const (
	Line Kind = iota
	Arc
	Cubic
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Arc:
		return "arc"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Point is a position in diagram space. Y grows downward.
type Point struct {
	X, Y float64
}

func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) scale(f float64) Point { return Point{p.X * f, p.Y * f} }

func (p Point) shift(dx, dy float64) Point { return Point{p.X + dx, p.Y + dy} }

func (p Point) dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

func (p Point) finite() bool { return finite(p.X) && finite(p.Y) }

// String formats the point as an SVG coordinate pair.
func (p Point) String() string { return fmt.Sprintf("%.2f,%.2f", p.X, p.Y) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func lerp(p, q Point, t float64) Point { return p.add(q.sub(p).scale(t)) }

func mid(p, q Point) Point { return lerp(p, q, 0.5) }

// Path is the routed geometry of one edge.
//
// Line uses From and To. Arc adds Radius and Center and is always drawn
// as the large clockwise arc from From to To. Cubic adds the control points
// C1 and C2.
type Path struct {
	Kind   Kind
	From   Point
	To     Point
	C1, C2 Point
	Center Point
	Radius float64
}

// D returns the path as SVG path data.
func (p Path) D() string {
	switch p.Kind {
	case Arc:
		return fmt.Sprintf("M%s A%.2f,%.2f 0 1,1 %s", p.From, p.Radius, p.Radius, p.To)
	case Cubic:
		return fmt.Sprintf("M%s C%s %s %s", p.From, p.C1, p.C2, p.To)
	default:
		return fmt.Sprintf("M%s L%s", p.From, p.To)
	}
}

// Midpoint returns the point halfway along the path, used to anchor labels.
func (p Path) Midpoint() Point {
	switch p.Kind {
	case Arc:
		// The large clockwise arc from top to bottom peaks opposite the chord.
		chord := mid(p.From, p.To)
		d := chord.dist(p.Center)
		if d == 0 {
			return p.Center.shift(p.Radius, 0)
		}
		return p.Center.add(p.Center.sub(chord).scale(p.Radius / d))
	case Cubic:
		// B(0.5) = (P0 + 3 P1 + 3 P2 + P3) / 8
		return p.From.add(p.C1.scale(3)).add(p.C2.scale(3)).add(p.To).scale(1.0 / 8)
	default:
		return mid(p.From, p.To)
	}
}

// Valid reports whether every coordinate of the path is finite and the path
// does not collapse to a single point.
func (p Path) Valid() bool {
	for _, q := range []Point{p.From, p.To, p.C1, p.C2, p.Center} {
		if !q.finite() {
			return false
		}
	}
	if !finite(p.Radius) {
		return false
	}
	switch p.Kind {
	case Arc:
		return p.Radius > 0 && p.From != p.To
	case Cubic:
		return p.From != p.To || p.C1 != p.From || p.C2 != p.From
	default:
		return p.From != p.To
	}
}
