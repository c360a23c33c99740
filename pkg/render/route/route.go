// Package route computes the path geometry of call tree edges.
//
// [Route] is a pure function from an edge type and its two endpoints to a
// [Path]. The shape depends on the edge type and on how the endpoints relate
// in the tree:
//
//   - initial: a short vertical segment ending just above the target
//   - call and return: a straight segment between the node boundaries
//   - self edges: a fixed-radius loop drawn on the right of the node
//   - siblings: a straight segment when adjacent, otherwise a cubic curve
//     bulging away from the tree edges between them
//   - anything else: a symmetric cubic through the horizontal midpoint
//
// No input yields NaN coordinates or a zero-length path; coincident
// endpoints are nudged apart by a fixed epsilon. These are the
// DEGENERATE_GEOMETRY cases of the errors package: they are repaired here and
// never returned.
package route

import (
	"math"

	"github.com/matzehuels/trialviz/pkg/trace"
)

// Endpoint is the routing view of a positioned tree node.
type Endpoint struct {
	Key     string
	X, Y    float64
	Depth   int
	Parent  string // parent key, empty for the root
	Ordinal int    // position among the parent's children
}

func (e Endpoint) point() Point { return Point{e.X, e.Y} }

// Config holds the geometric constants of the router.
type Config struct {
	Radius        float64 // node boundary radius
	LoopRadius    float64 // radius of self-edge loops
	InitialLength float64 // length of initial edges
	Nudge         float64 // vertical offset of same-row call and return edges
	Bulge         float64 // minimum sibling curve height
	Epsilon       float64 // separation applied to coincident endpoints
}

// DefaultConfig returns the router constants used by the viewer.
func DefaultConfig() Config {
	return Config{
		Radius:        10,
		LoopRadius:    14,
		InitialLength: 30,
		Nudge:         4,
		Bulge:         20,
		Epsilon:       0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Radius <= 0 {
		c.Radius = d.Radius
	}
	if c.LoopRadius <= 0 {
		c.LoopRadius = d.LoopRadius
	}
	if c.InitialLength <= 0 {
		c.InitialLength = d.InitialLength
	}
	if c.Nudge <= 0 {
		c.Nudge = d.Nudge
	}
	if c.Bulge <= 0 {
		c.Bulge = d.Bulge
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	return c
}

// Route returns the path of an edge of the given type from src to dst.
//
// Callers pass the type the edge is routed as; call edges rejected by the
// tree builder for closing a cycle arrive here as sequence edges.
func Route(typ trace.EdgeType, src, dst Endpoint, cfg Config) Path {
	cfg = cfg.withDefaults()
	self := src.Key == dst.Key && src.Key != ""

	switch typ {
	case trace.EdgeInitial:
		return initial(dst, cfg)
	case trace.EdgeCall, trace.EdgeReturn:
		if self {
			return loop(dst, cfg)
		}
		return straight(typ, src, dst, cfg)
	case trace.EdgeSequence, trace.EdgeLoop:
		if self {
			return loop(dst, cfg)
		}
		if src.Parent == dst.Parent {
			return sibling(src, dst, cfg)
		}
		return crossCaller(src, dst, cfg)
	default:
		return straight(typ, src, dst, cfg)
	}
}

// ShowLabel reports whether edges of the given type carry a count label.
func ShowLabel(typ trace.EdgeType) bool { return typ != trace.EdgeInitial }

// MarkerID returns the arrowhead marker used for edges of a membership.
func MarkerID(m trace.Membership) string { return "marker-" + m.String() }

func initial(dst Endpoint, cfg Config) Path {
	to := dst.point().shift(0, -cfg.Radius)
	return Path{Kind: Line, From: to.shift(0, -cfg.InitialLength), To: to}
}

// loop draws a circle of LoopRadius through the node boundary at -45 and +45
// degrees, on the right side of the node.
func loop(n Endpoint, cfg Config) Path {
	c := n.point()
	off := cfg.Radius / math.Sqrt2
	from, to := c.shift(off, -off), c.shift(off, off)

	half := from.dist(to) / 2
	r := max(cfg.LoopRadius, half)
	d := math.Sqrt(r*r - half*half)
	return Path{Kind: Arc, From: from, To: to, Radius: r, Center: mid(from, to).shift(d, 0)}
}

func straight(typ trace.EdgeType, src, dst Endpoint, cfg Config) Path {
	s, t := separate(src.point(), dst.point(), cfg)
	if s.Y == t.Y {
		dy := -cfg.Nudge
		if typ == trace.EdgeReturn {
			dy = cfg.Nudge
		}
		s, t = s.shift(0, dy), t.shift(0, dy)
	}
	return Path{Kind: Line, From: offsetToward(s, t, cfg.Radius), To: offsetToward(t, s, cfg.Radius)}
}

func sibling(src, dst Endpoint, cfg Config) Path {
	s, t := separate(src.point(), dst.point(), cfg)
	adjacent := src.Ordinal-dst.Ordinal == 1 || dst.Ordinal-src.Ordinal == 1
	if adjacent && src.Depth == dst.Depth {
		return Path{Kind: Line, From: offsetToward(s, t, cfg.Radius), To: offsetToward(t, s, cfg.Radius)}
	}

	dx, dy := t.X-s.X, t.Y-s.Y
	sign := 1.0
	switch {
	case dy < 0:
		sign = -1
	case dy == 0 && dx < 0:
		sign = -1
	}
	h := sign * max(cfg.Bulge, math.Abs(dx)/4)
	c1 := Point{s.X + dx/3, s.Y + h}
	c2 := Point{t.X - dx/3, t.Y + h}
	return curve(s, c1, c2, t, cfg)
}

func crossCaller(src, dst Endpoint, cfg Config) Path {
	s, t := separate(src.point(), dst.point(), cfg)
	mx := (s.X + t.X) / 2
	return curve(s, Point{mx, s.Y}, Point{mx, t.Y}, t, cfg)
}

// curve offsets the endpoints of a cubic along their tangents.
func curve(s, c1, c2, t Point, cfg Config) Path {
	dir1, dir2 := c1, c2
	if dir1 == s {
		dir1 = t
	}
	if dir2 == t {
		dir2 = s
	}
	return Path{
		Kind: Cubic,
		From: offsetToward(s, dir1, cfg.Radius),
		C1:   c1,
		C2:   c2,
		To:   offsetToward(t, dir2, cfg.Radius),
	}
}

// separate nudges t by epsilon when it coincides with s.
func separate(s, t Point, cfg Config) (Point, Point) {
	if s.dist(t) < cfg.Epsilon {
		t = s.shift(cfg.Epsilon, cfg.Epsilon)
	}
	return s, t
}

// offsetToward moves p by r in the direction of q. It returns p unchanged
// when the direction is undefined.
func offsetToward(p, q Point, r float64) Point {
	d := p.dist(q)
	if d < 1e-9 || !finite(d) {
		return p
	}
	if r >= d/2 {
		r = d / 2 * 0.9
	}
	return p.add(q.sub(p).scale(r / d))
}
