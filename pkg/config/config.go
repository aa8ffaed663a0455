// Package config loads run settings from defaults, an optional YAML file and
// the environment. Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/quidome/exif2kmz-go/pkg/geotag"
	"github.com/quidome/exif2kmz-go/pkg/kml"
)

// ErrInvalid is returned when a setting has an unusable value.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables read by ApplyEnv.
const (
	EnvReader       = "EXIF2KMZ_READER"
	EnvExiftoolPath = "EXIF2KMZ_EXIFTOOL_PATH"
	EnvRequireGPS   = "EXIF2KMZ_REQUIRE_GPS"
)

type Config struct {
	// Reader is the metadata backend, see geotag.Backends.
	Reader       string `yaml:"reader"`
	ExiftoolPath string `yaml:"exiftool_path"`

	RequireGPS bool     `yaml:"require_gps"`
	MaxDepth   int      `yaml:"max_depth"`
	Extensions []string `yaml:"extensions"`

	Style      Style `yaml:"style"`
	ImageWidth int   `yaml:"image_width"`
}

// Style configures the path line.
type Style struct {
	// Color is a KML aabbggrr hex color.
	Color string  `yaml:"color"`
	Width float64 `yaml:"width"`
}

func Default() Config {
	return Config{
		Reader:   geotag.BackendGoexif,
		MaxDepth: -1,
		Style: Style{
			Color: "ff0000ff",
			Width: kml.DefaultLineWidth,
		},
		ImageWidth: kml.DefaultImageWidth,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	path, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment, without overriding variables that are already set. Missing
// files are ignored. With no arguments, ./.env is used.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvReader); ok && v != "" {
		c.Reader = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvExiftoolPath); ok && v != "" {
		c.ExiftoolPath = v
	}
	if v, ok := lookup(EnvRequireGPS); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvRequireGPS, v)
		}
		c.RequireGPS = b
	}
	return nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	known := false
	for _, b := range geotag.Backends {
		if c.Reader == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: reader %q, want one of %s", ErrInvalid, c.Reader, strings.Join(geotag.Backends, ", "))
	}
	if c.MaxDepth < -1 {
		return fmt.Errorf("%w: max_depth %d", ErrInvalid, c.MaxDepth)
	}
	if _, err := kml.ParseColor(c.Style.Color); err != nil {
		return fmt.Errorf("%w: style.color: %v", ErrInvalid, err)
	}
	if c.Style.Width <= 0 {
		return fmt.Errorf("%w: style.width %v", ErrInvalid, c.Style.Width)
	}
	if c.ImageWidth <= 0 {
		return fmt.Errorf("%w: image_width %d", ErrInvalid, c.ImageWidth)
	}
	return nil
}

// KMLOptions returns the markup options for c. c must be valid.
func (c Config) KMLOptions() (kml.Options, error) {
	col, err := kml.ParseColor(c.Style.Color)
	if err != nil {
		return kml.Options{}, fmt.Errorf("%w: style.color: %v", ErrInvalid, err)
	}
	return kml.Options{
		LineColor:  col,
		LineWidth:  c.Style.Width,
		ImageWidth: c.ImageWidth,
	}, nil
}

// BackendOptions returns the metadata backend options for c.
func (c Config) BackendOptions() (geotag.BackendOptions, error) {
	p, err := ExpandPath(c.ExiftoolPath)
	if err != nil {
		return geotag.BackendOptions{}, err
	}
	return geotag.BackendOptions{ExiftoolPath: p}, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return expanded, nil
}
