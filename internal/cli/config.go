package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
)

// fileConfig is the on-disk viewer configuration (TOML or YAML).
//
//	[viewer]
//	node_spacing_x = 80
//	tooltip_enabled = false
//	collapse_depth = 3
//
//	[output]
//	formats = ["svg", "json"]
//	legend = true
type fileConfig struct {
	Viewer reconcile.Config `toml:"viewer" yaml:"viewer"`
	Output outputConfig     `toml:"output" yaml:"output"`
}

type outputConfig struct {
	Formats []string `toml:"formats" yaml:"formats"`
	Legend  bool     `toml:"legend" yaml:"legend"`
	Dir     string   `toml:"dir" yaml:"dir"`
}

// loadConfig reads path, decoding by extension. Viewer fields left out of
// the file keep their defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Viewer: reconcile.DefaultConfig()}
	if path == "" {
		return cfg, nil
	}
	if err := errs.ValidatePath(path); err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeFileNotFound, err, "read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, errs.New(errs.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if cfg.Viewer.CollapseDepth < 0 {
		return cfg, errs.New(errs.ErrCodeInvalidConfig, "collapse_depth must not be negative")
	}
	cfg.Viewer = cfg.Viewer.WithDefaults()
	return cfg, nil
}

// viewerFlags binds the engine configuration flags shared by render,
// explore and serve.
type viewerFlags struct {
	configPath string
	spacingX   float64
	spacingY   float64
	fontSize   float64
	labelSize  float64
	noTooltip  bool
	depth      int
}

func (f *viewerFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "viewer config file (.toml or .yaml)")
	fs.Float64Var(&f.spacingX, "spacing-x", 0, "horizontal node spacing")
	fs.Float64Var(&f.spacingY, "spacing-y", 0, "vertical node spacing")
	fs.Float64Var(&f.fontSize, "font-size", 0, "node label font size")
	fs.Float64Var(&f.labelSize, "label-font-size", 0, "edge label font size")
	fs.BoolVar(&f.noTooltip, "no-tooltip", false, "omit node tooltips")
	fs.IntVarP(&f.depth, "depth", "d", 0, "collapse nodes at this depth or deeper on load (0 = expand all)")
}

// resolve loads the config file and applies the flags the user set.
func (f *viewerFlags) resolve(cmd *cobra.Command) (fileConfig, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return cfg, err
	}
	fs := cmd.Flags()
	v := &cfg.Viewer
	if fs.Changed("spacing-x") {
		v.NodeSpacingX = f.spacingX
	}
	if fs.Changed("spacing-y") {
		v.NodeSpacingY = f.spacingY
	}
	if fs.Changed("font-size") {
		v.FontSize = f.fontSize
	}
	if fs.Changed("label-font-size") {
		v.LabelFontSize = f.labelSize
	}
	if fs.Changed("no-tooltip") {
		v.TooltipEnabled = !f.noTooltip
	}
	if fs.Changed("depth") {
		if f.depth < 0 {
			return cfg, fmt.Errorf("--depth must not be negative")
		}
		v.CollapseDepth = f.depth
	}
	cfg.Viewer = v.WithDefaults()
	return cfg, nil
}
