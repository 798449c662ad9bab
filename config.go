package capture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/capture/encode/gif"
	"github.com/gogpu/capture/encode/png"
	"github.com/gogpu/capture/pixel"
	"github.com/gogpu/capture/render"
)

// Duration is a time.Duration that reads and writes as text ("250ms", "3s")
// in configuration files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("capture: duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the tunables of a Capture.
type Config struct {
	// Workers is the size of the encode pool. 0 uses GOMAXPROCS.
	Workers int `toml:"workers"`

	// RowAlignment is the bytes-per-row alignment of readback copies.
	RowAlignment int `toml:"row_alignment"`

	// ReadbackTimeout bounds one device readback.
	ReadbackTimeout Duration `toml:"readback_timeout"`

	// DefaultWindow is used by start requests without a window.
	DefaultWindow Duration `toml:"default_window"`

	// OutputDir is where relative output paths are written.
	OutputDir string `toml:"output_dir"`

	// StillFormat and AnimationFormat name the formats used by requests
	// that do not choose one.
	StillFormat     string `toml:"still_format"`
	AnimationFormat string `toml:"animation_format"`

	// AnimationColors is the palette size of animation frames.
	AnimationColors int `toml:"animation_colors"`

	// AnimationScale shrinks animation frames, 0 < scale <= 1.
	AnimationScale float64 `toml:"animation_scale"`

	// PNGCompression is one of "default", "none", "speed" or "best".
	PNGCompression string `toml:"png_compression"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:         0,
		RowAlignment:    pixel.RowAlignment,
		ReadbackTimeout: Duration(render.DefaultReadbackTimeout),
		DefaultWindow:   Duration(5 * time.Second),
		OutputDir:       "",
		StillFormat:     png.Name,
		AnimationFormat: gif.Name,
		AnimationColors: gif.MaxColors,
		AnimationScale:  1,
		PNGCompression:  "default",
	}
}

// ParseConfig decodes TOML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("capture: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("capture: load config: %w", err)
	}
	return ParseConfig(data)
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks the configuration. Zero values fall back to the
// defaults; values that cannot be used are reported together.
func (c *Config) Validate() error {
	def := DefaultConfig()
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.RowAlignment < 0 {
		errs = append(errs, fmt.Errorf("row_alignment must not be negative, got %d", c.RowAlignment))
	}
	if c.ReadbackTimeout == 0 {
		c.ReadbackTimeout = def.ReadbackTimeout
	} else if c.ReadbackTimeout < 0 {
		errs = append(errs, fmt.Errorf("readback_timeout must be positive, got %v", c.ReadbackTimeout.Std()))
	}
	if c.DefaultWindow == 0 {
		c.DefaultWindow = def.DefaultWindow
	} else if c.DefaultWindow < 0 {
		errs = append(errs, fmt.Errorf("default_window must be positive, got %v", c.DefaultWindow.Std()))
	}
	if c.StillFormat == "" {
		c.StillFormat = def.StillFormat
	}
	if c.AnimationFormat == "" {
		c.AnimationFormat = def.AnimationFormat
	}
	if c.AnimationColors == 0 {
		c.AnimationColors = def.AnimationColors
	} else if c.AnimationColors < gif.MinColors || c.AnimationColors > gif.MaxColors {
		errs = append(errs, fmt.Errorf("animation_colors must be in [%d, %d], got %d",
			gif.MinColors, gif.MaxColors, c.AnimationColors))
	}
	if c.AnimationScale == 0 {
		c.AnimationScale = def.AnimationScale
	} else if c.AnimationScale < 0 || c.AnimationScale > 1 {
		errs = append(errs, fmt.Errorf("animation_scale must be in (0, 1], got %v", c.AnimationScale))
	}
	if _, err := png.ParseCompression(c.PNGCompression); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("capture: invalid config: %w", err)
	}
	return nil
}
