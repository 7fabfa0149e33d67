package cartoview

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

type Config struct {
	Concurrency int                 `hcl:"concurrency,optional"`
	Viewer      *ViewerConfigBlock  `hcl:"viewer,block"`
	Layers      []*LayerConfigBlock `hcl:"layer,block"`
	Maps        []*MapConfigBlock   `hcl:"map,block"`
}

type ViewerConfigBlock struct {
	TickInterval string `hcl:"tick_interval,optional"`
	Workers      int    `hcl:"workers,optional"`
	QueueSize    int    `hcl:"queue_size,optional"`
	MaxViewport  int    `hcl:"max_viewport,optional"`
	Zoom         *int   `hcl:"zoom,optional"`
}

type LayerConfigBlock struct {
	Name    string     `hcl:"name,label"`
	Render  string     `hcl:"render"`
	Options RenderOpts `hcl:"options,optional"`
}

type MapConfigBlock struct {
	Name   string   `hcl:"name,label"`
	Path   string   `hcl:"path"`
	Layers []string `hcl:"layers"`
}

// RenderOpts are free-form per-layer options handed to a ChunkRenderer.
type RenderOpts map[string]string

func (o RenderOpts) GetBool(name string, def bool) bool {
	v, ok := o[name]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Renderers lists the chunk renderers a layer may select.
var Renderers = []string{"surface", "biome", "lighting"}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"env":    envFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config
	evalCtx := newHCLEvalContext()
	err := hclsimple.DecodeFile(path, evalCtx, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks cross references between blocks and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}

	if c.Viewer != nil {
		if c.Viewer.TickInterval != "" {
			d, err := time.ParseDuration(c.Viewer.TickInterval)
			if err != nil {
				errs = append(errs, fmt.Errorf("viewer.tick_interval: %w", err))
			} else if d <= 0 {
				errs = append(errs, errors.New("viewer.tick_interval must be positive"))
			}
		}
		if c.Viewer.Workers < 0 || c.Viewer.QueueSize < 0 || c.Viewer.MaxViewport < 0 {
			errs = append(errs, errors.New("viewer workers, queue_size and max_viewport must not be negative"))
		}
		if z := c.Viewer.Zoom; z != nil && (*z < MinZoom || *z > MaxZoom) {
			errs = append(errs, fmt.Errorf("viewer.zoom must be between %d and %d", MinZoom, MaxZoom))
		}
	}

	layers := map[string]struct{}{}
	for _, layer := range c.Layers {
		if _, ok := layers[layer.Name]; ok {
			errs = append(errs, fmt.Errorf("layer %q defined twice", layer.Name))
		}
		layers[layer.Name] = struct{}{}
		if !knownRenderer(layer.Render) {
			errs = append(errs, fmt.Errorf("layer %q: unsupported renderer %q", layer.Name, layer.Render))
		}
	}

	for _, m := range c.Maps {
		if m.Path == "" {
			errs = append(errs, fmt.Errorf("map %q: path must be set", m.Name))
		}
		if len(m.Layers) == 0 {
			errs = append(errs, fmt.Errorf("map %q: at least one layer is required", m.Name))
		}
		for _, name := range m.Layers {
			if _, ok := layers[name]; !ok {
				errs = append(errs, fmt.Errorf("map %q: unknown layer %q", m.Name, name))
			}
		}
	}

	return errors.Join(errs...)
}

func knownRenderer(name string) bool {
	for _, r := range Renderers {
		if r == name {
			return true
		}
	}
	return false
}

// RendererOpts converts the viewer block into renderer options. Concurrency
// is used for the worker count when the viewer block does not set one.
func (c *Config) RendererOpts() RendererOpts {
	opts := RendererOpts{Workers: c.Concurrency}
	if c.Viewer == nil {
		return opts
	}
	if d, err := time.ParseDuration(c.Viewer.TickInterval); err == nil {
		opts.TickInterval = d
	}
	if c.Viewer.Workers > 0 {
		opts.Workers = c.Viewer.Workers
	}
	opts.QueueSize = c.Viewer.QueueSize
	opts.MaxViewport = c.Viewer.MaxViewport
	return opts
}

// InitialZoom returns the configured starting zoom level, or BaseZoom.
func (c *Config) InitialZoom() int {
	if c.Viewer == nil || c.Viewer.Zoom == nil {
		return BaseZoom
	}
	return *c.Viewer.Zoom
}

func (c *Config) Map(name string) (*MapConfigBlock, bool) {
	for _, m := range c.Maps {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (c *Config) Layer(name string) (*LayerConfigBlock, bool) {
	for _, l := range c.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}
