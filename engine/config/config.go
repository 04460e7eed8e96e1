// Package config holds the externally owned tunables of the skeletal runtime: detail selection,
// solver limits, output buffer sizes and worker counts. Files are TOML or YAML, chosen by extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when a config file extension is neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("config: unsupported format")

// LOD holds the detail selection tunables.
type LOD struct {
	Scale             float32 `toml:"scale" yaml:"scale"`
	Bias              float32 `toml:"bias" yaml:"bias"`
	AllowDeadBelowMin bool    `toml:"allow_dead_below_min" yaml:"allow_dead_below_min"`
	DeadFloor         float32 `toml:"dead_floor" yaml:"dead_floor"`
}

// Solver holds the skeleton solver settings.
type Solver struct {
	SinTableShift uint `toml:"sin_table_shift" yaml:"sin_table_shift"`
	MaxBones      int  `toml:"max_bones" yaml:"max_bones"`
	LogStats      bool `toml:"log_stats" yaml:"log_stats"`
}

// Render holds the skinning backend and its output buffer sizes.
type Render struct {
	Backend     string `toml:"backend" yaml:"backend"`
	MaxVertices int    `toml:"max_vertices" yaml:"max_vertices"`
	MaxIndices  int    `toml:"max_indices" yaml:"max_indices"`
}

// Scene holds the frame preparation worker settings.
type Scene struct {
	Workers   int `toml:"workers" yaml:"workers"`
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// Config is the full runtime configuration.
type Config struct {
	LOD    LOD    `toml:"lod" yaml:"lod"`
	Solver Solver `toml:"solver" yaml:"solver"`
	Render Render `toml:"render" yaml:"render"`
	Scene  Scene  `toml:"scene" yaml:"scene"`
}

// Default returns the shipped configuration.
func Default() Config {
	p := lod.DefaultParams()
	return Config{
		LOD: LOD{
			Scale:     p.Scale,
			Bias:      p.Bias,
			DeadFloor: p.DeadFloor,
		},
		Solver: Solver{
			SinTableShift: skeleton.FuncTableShift,
			MaxBones:      skeleton.MaxBones,
		},
		Render: Render{
			Backend:     "cpu",
			MaxVertices: 1 << 16,
			MaxIndices:  6 << 16,
		},
		Scene: Scene{
			Workers:   max(runtime.NumCPU()-1, 1),
			QueueSize: 256,
		},
	}
}

// Load reads a config file on top of the defaults. Keys missing from the file keep their default values.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - Config: the configuration
//   - error: ErrUnsupportedFormat, or a read or parse error (wrapped)
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config data on top of the defaults and sanitizes the result.
//
// Parameters:
//   - data: the file contents
//   - ext: the file extension selecting the format, with or without the leading dot
//
// Returns:
//   - Config: the configuration
//   - error: ErrUnsupportedFormat or a parse error
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse toml: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize replaces out-of-range values with their defaults.
func (c *Config) Sanitize() {
	def := Default()
	if c.LOD.Scale <= 0 {
		c.LOD.Scale = def.LOD.Scale
	}
	if c.LOD.DeadFloor < 0 || c.LOD.DeadFloor > 1 {
		c.LOD.DeadFloor = def.LOD.DeadFloor
	}
	if c.Solver.SinTableShift > 14 {
		c.Solver.SinTableShift = def.Solver.SinTableShift
	}
	if c.Solver.MaxBones <= 0 || c.Solver.MaxBones > skeleton.MaxBones {
		c.Solver.MaxBones = def.Solver.MaxBones
	}
	if c.Render.Backend == "" {
		c.Render.Backend = def.Render.Backend
	}
	if c.Render.MaxVertices <= 0 {
		c.Render.MaxVertices = def.Render.MaxVertices
	}
	if c.Render.MaxIndices <= 0 {
		c.Render.MaxIndices = def.Render.MaxIndices
	}
	if c.Scene.Workers < 1 {
		c.Scene.Workers = def.Scene.Workers
	}
	if c.Scene.QueueSize < 1 {
		c.Scene.QueueSize = def.Scene.QueueSize
	}
}

// LodParams converts the detail section to the selector's tunables.
func (c *Config) LodParams() lod.Params {
	return lod.Params{
		Scale:             c.LOD.Scale,
		Bias:              c.LOD.Bias,
		AllowDeadBelowMin: c.LOD.AllowDeadBelowMin,
		DeadFloor:         c.LOD.DeadFloor,
	}
}

// SolverOptions converts the solver section to solver construction options.
// Sine tables are shared between solvers with the same shift.
func (c *Config) SolverOptions() []skeleton.SolverBuilderOption {
	return []skeleton.SolverBuilderOption{
		skeleton.WithSinTable(skeleton.SinTableFor(c.Solver.SinTableShift)),
		skeleton.WithMaxBones(c.Solver.MaxBones),
		skeleton.WithStatsLogging(c.Solver.LogStats),
	}
}
