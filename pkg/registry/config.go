package registry

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// Config selects functions declaratively. It is applied in field order:
// All, then Categories, then Enabled, then Disabled.
//
//	all: false
//	categories: [string, math]
//	enabled: [sha256]
//	disabled: [get_env]
type Config struct {
	All        bool     `yaml:"all"`
	Categories []string `yaml:"categories"`
	Enabled    []string `yaml:"enabled"`
	Disabled   []string `yaml:"disabled"`
}

// ParseConfig decodes a YAML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, types.NewError(types.ErrCodeConfig, "parsing registry config").WithCause(err)
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the caller
	if err != nil {
		return nil, types.Errorf(types.ErrCodeConfig, "reading registry config %s", path).WithCause(err)
	}
	return ParseConfig(data)
}

// NewFromConfig creates a registry over the full catalog and configures it
// with cfg.
func NewFromConfig(cfg *Config, opts ...Option) (*Registry, error) {
	r := New(opts...)
	if err := r.Configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Configure applies cfg on top of the current state. Every category and
// function name is checked before anything changes, so a failing
// configuration leaves the registry untouched.
func (r *Registry) Configure(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	cats := make([]functions.Category, 0, len(cfg.Categories))
	for _, name := range cfg.Categories {
		c, ok := functions.ParseCategory(name)
		if !ok {
			return types.Errorf(types.ErrCodeUnknownCategory, "unknown category %q", name)
		}
		cats = append(cats, c)
	}
	for _, list := range [][]string{cfg.Enabled, cfg.Disabled} {
		for _, name := range list {
			if _, ok := r.resolve(name); !ok {
				return types.UnknownFunction(name)
			}
		}
	}

	if cfg.All {
		r.RegisterAll()
	}
	for _, c := range cats {
		_ = r.RegisterCategory(c)
	}
	for _, name := range cfg.Enabled {
		_ = r.EnableFunction(name)
	}
	for _, name := range cfg.Disabled {
		_ = r.DisableFunction(name)
	}
	r.logger.Debug("registry configured", "enabled", r.Len())
	return nil
}
