package reconcile

import (
	"time"

	"github.com/matzehuels/trialviz/pkg/render/route"
)

// Default values of [Config].
const (
	DefaultNodeSpacingX  = 60.0
	DefaultNodeSpacingY  = 80.0
	DefaultFontSize      = 12.0
	DefaultLabelFontSize = 10.0
	DefaultNodeRadius    = 10.0
	DefaultDuration      = 750 * time.Millisecond
)

// Config holds the layout and styling parameters of an engine.
type Config struct {
	NodeSpacingX   float64       `json:"node_spacing_x" toml:"node_spacing_x" yaml:"node_spacing_x"`
	NodeSpacingY   float64       `json:"node_spacing_y" toml:"node_spacing_y" yaml:"node_spacing_y"`
	FontSize       float64       `json:"font_size" toml:"font_size" yaml:"font_size"`
	LabelFontSize  float64       `json:"label_font_size" toml:"label_font_size" yaml:"label_font_size"`
	TooltipEnabled bool          `json:"tooltip_enabled" toml:"tooltip_enabled" yaml:"tooltip_enabled"`
	NodeRadius     float64       `json:"node_radius" toml:"node_radius" yaml:"node_radius"`
	Duration       time.Duration `json:"duration" toml:"duration" yaml:"duration"`

	// CollapseDepth collapses every node at this depth or deeper when a
	// dataset is loaded. Zero or less keeps the whole tree expanded.
	CollapseDepth int `json:"collapse_depth" toml:"collapse_depth" yaml:"collapse_depth"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		NodeSpacingX:   DefaultNodeSpacingX,
		NodeSpacingY:   DefaultNodeSpacingY,
		FontSize:       DefaultFontSize,
		LabelFontSize:  DefaultLabelFontSize,
		TooltipEnabled: true,
		NodeRadius:     DefaultNodeRadius,
		Duration:       DefaultDuration,
	}
}

// WithDefaults fills every non-positive numeric field with its default.
func (c Config) WithDefaults() Config {
	if c.NodeSpacingX <= 0 {
		c.NodeSpacingX = DefaultNodeSpacingX
	}
	if c.NodeSpacingY <= 0 {
		c.NodeSpacingY = DefaultNodeSpacingY
	}
	if c.FontSize <= 0 {
		c.FontSize = DefaultFontSize
	}
	if c.LabelFontSize <= 0 {
		c.LabelFontSize = DefaultLabelFontSize
	}
	if c.NodeRadius <= 0 {
		c.NodeRadius = DefaultNodeRadius
	}
	if c.Duration < 0 {
		c.Duration = 0
	}
	return c
}

func (c Config) route() route.Config {
	r := route.DefaultConfig()
	r.Radius = c.NodeRadius
	r.LoopRadius = c.NodeRadius * 1.4
	return r
}

// ConfigChange is a partial configuration update. Nil fields are left
// unchanged.
type ConfigChange struct {
	NodeSpacingX   *float64 `json:"node_spacing_x,omitempty"`
	NodeSpacingY   *float64 `json:"node_spacing_y,omitempty"`
	FontSize       *float64 `json:"font_size,omitempty"`
	LabelFontSize  *float64 `json:"label_font_size,omitempty"`
	TooltipEnabled *bool    `json:"tooltip_enabled,omitempty"`
}

// Apply returns c with the non-nil fields of ch applied.
func (c Config) Apply(ch ConfigChange) Config {
	if ch.NodeSpacingX != nil {
		c.NodeSpacingX = *ch.NodeSpacingX
	}
	if ch.NodeSpacingY != nil {
		c.NodeSpacingY = *ch.NodeSpacingY
	}
	if ch.FontSize != nil {
		c.FontSize = *ch.FontSize
	}
	if ch.LabelFontSize != nil {
		c.LabelFontSize = *ch.LabelFontSize
	}
	if ch.TooltipEnabled != nil {
		c.TooltipEnabled = *ch.TooltipEnabled
	}
	return c.WithDefaults()
}

// Float returns a pointer to v, for building a [ConfigChange].
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for building a [ConfigChange].
func Bool(v bool) *bool { return &v }
