package layout

// Bounds is the axis-aligned box enclosing every laid out node center.
// All coordinates are in user units (pixels in SVG).
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal span of the box.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical span of the box.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// CenterX returns the horizontal center of the box.
func (b Bounds) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }

// CenterY returns the vertical center of the box.
func (b Bounds) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }

// Pad returns the box grown by m on every side.
func (b Bounds) Pad(m float64) Bounds {
	return Bounds{MinX: b.MinX - m, MinY: b.MinY - m, MaxX: b.MaxX + m, MaxY: b.MaxY + m}
}

func (b *Bounds) include(x, y float64) {
	b.MinX, b.MaxX = min(b.MinX, x), max(b.MaxX, x)
	b.MinY, b.MaxY = min(b.MinY, y), max(b.MaxY, y)
}
