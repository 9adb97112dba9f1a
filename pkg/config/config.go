// Package config loads onnxgraph settings from a TOML file.
//
// Settings are looked up at an explicit path (the CLI's --config flag),
// then at $XDG_CONFIG_HOME/onnxgraph/config.toml, and otherwise fall back
// to [Default]. Keys missing from the file keep their default values.
//
//	[export]
//	producer_name = "onnxgraph"
//	ir_version = 0        # 0 keeps the imported value
//
//	[layout]
//	reverse = true
//	hgap = 2.0
//
//	[cache]
//	enabled = true
//	dir = ""              # default $XDG_CACHE_HOME/onnxgraph
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/onnxgraph/pkg/buildinfo"
	"github.com/matzehuels/onnxgraph/pkg/layout"
	"github.com/matzehuels/onnxgraph/pkg/translate"
)

// AppName names the config and cache directories.
const AppName = "onnxgraph"

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// ErrUnknownKey is returned when the file contains keys this version does
// not understand.
var ErrUnknownKey = errors.New("unknown config key")

// Config is the full set of user settings.
type Config struct {
	Export Export `toml:"export"`
	Layout Layout `toml:"layout"`
	Cache  Cache  `toml:"cache"`
}

// Export holds the metadata stamped on exported models.
type Export struct {
	ProducerName    string `toml:"producer_name"`
	ProducerVersion string `toml:"producer_version"`
	IRVersion       int64  `toml:"ir_version"`
	ModelVersion    int64  `toml:"model_version"`
}

// Layout holds the auto-layout parameters.
type Layout struct {
	Reverse bool    `toml:"reverse"`
	HGap    float64 `toml:"hgap"`
	VGap    float64 `toml:"vgap"`
	ScaleX  float64 `toml:"scale_x"`
	ScaleY  float64 `toml:"scale_y"`
}

// Cache controls the computed-layout cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Export: Export{
			ProducerName:    AppName,
			ProducerVersion: buildinfo.Version,
		},
		Layout: Layout{
			Reverse: true,
			HGap:    layout.DefaultHGap,
			VGap:    layout.DefaultVGap,
			ScaleX:  layout.DefaultScaleX,
			ScaleY:  layout.DefaultScaleY,
		},
		Cache: Cache{Enabled: true},
	}
}

// Load reads the config at path. An empty path means [DefaultPath]; a
// missing default file yields [Default] without error, while a missing
// explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg, err := LoadFile(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads the config at path on top of [Default].
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text on top of [Default] and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Default(), err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return Default(), fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate rejects settings that cannot produce a usable layout or model.
func (c Config) Validate() error {
	if c.Export.IRVersion < 0 {
		return fmt.Errorf("export.ir_version must not be negative, got %d", c.Export.IRVersion)
	}
	if c.Export.ModelVersion < 0 {
		return fmt.Errorf("export.model_version must not be negative, got %d", c.Export.ModelVersion)
	}
	if c.Layout.HGap < 0 || c.Layout.VGap < 0 {
		return fmt.Errorf("layout gaps must not be negative, got hgap=%g vgap=%g", c.Layout.HGap, c.Layout.VGap)
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// LayoutOptions converts the layout section into [layout.Options].
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		Reverse: c.Layout.Reverse,
		HGap:    c.Layout.HGap,
		VGap:    c.Layout.VGap,
		ScaleX:  c.Layout.ScaleX,
		ScaleY:  c.Layout.ScaleY,
	}
}

// ExportOptions converts the export section into [translate.ExportOptions].
func (c Config) ExportOptions() translate.ExportOptions {
	return translate.ExportOptions{
		ProducerName:    c.Export.ProducerName,
		ProducerVersion: c.Export.ProducerVersion,
		IRVersion:       c.Export.IRVersion,
		ModelVersion:    c.Export.ModelVersion,
	}
}

// CacheDir returns the cache directory: the configured one, else
// $XDG_CACHE_HOME/onnxgraph, else ~/.cache/onnxgraph.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns $XDG_CONFIG_HOME/onnxgraph/config.toml, falling back
// to ~/.config/onnxgraph/config.toml.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, FileName), nil
}
