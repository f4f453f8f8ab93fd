package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/trackmap/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
// This is the single source of truth for all default pipeline values.
const DefaultConfigPath = "config/trackmap.defaults.json"

// DefaultPalette is the fixed colour palette, in assignment order.
var DefaultPalette = []string{
	"darkred", "green", "red", "blue", "gray", "purple",
	"black", "cadetblue", "darkgreen", "orange", "darkblue",
}

// Config is the root configuration for a pipeline run. Every field is a
// pointer so a partial file only overrides what it names; the Get* methods
// supply defaults for the rest.
type Config struct {
	// Inputs and outputs
	InputDir       *string `json:"input_dir,omitempty"`
	CollectionPath *string `json:"collection_path,omitempty"`
	OutputDir      *string `json:"output_dir,omitempty"`
	SiteBaseURL    *string `json:"site_base_url,omitempty"`

	// Derivation
	SimplifyEpsilon *float64 `json:"simplify_epsilon,omitempty"`
	Workers         *int     `json:"workers,omitempty"`
	ClusterSeed     *uint64  `json:"cluster_seed,omitempty"`
	Palette         []string `json:"palette,omitempty"`
	Timezone        *string  `json:"timezone,omitempty"`

	// Reverse geocoding. The API key is never read from this file.
	GeocoderURL      *string `json:"geocoder_url,omitempty"`
	GeocoderAttempts *int    `json:"geocoder_attempts,omitempty"`
	GeocoderBackoff  *string `json:"geocoder_backoff,omitempty"` // duration string like "30s"
	GeocoderTimeout  *string `json:"geocoder_timeout,omitempty"`

	// Elevation profile size in inches
	ProfileWidthIn  *float64 `json:"profile_width_in,omitempty"`
	ProfileHeightIn *float64 `json:"profile_height_in,omitempty"`
}

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.SimplifyEpsilon != nil && *c.SimplifyEpsilon < 0 {
		return fmt.Errorf("simplify_epsilon must be non-negative, got %f", *c.SimplifyEpsilon)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.Palette != nil && len(c.Palette) == 0 {
		return fmt.Errorf("palette must not be empty")
	}
	if c.GeocoderAttempts != nil && *c.GeocoderAttempts < 1 {
		return fmt.Errorf("geocoder_attempts must be at least 1, got %d", *c.GeocoderAttempts)
	}
	for name, v := range map[string]*string{"geocoder_backoff": c.GeocoderBackoff, "geocoder_timeout": c.GeocoderTimeout} {
		if v != nil && *v != "" {
			if d, err := time.ParseDuration(*v); err != nil || d < 0 {
				return fmt.Errorf("invalid %s '%s'", name, *v)
			}
		}
	}
	if c.Timezone != nil && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone '%s'", *c.Timezone)
	}
	for name, v := range map[string]*string{"site_base_url": c.SiteBaseURL, "geocoder_url": c.GeocoderURL} {
		if v == nil {
			continue
		}
		if u, err := url.Parse(*v); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got '%s'", name, *v)
		}
	}
	for name, v := range map[string]*float64{"profile_width_in": c.ProfileWidthIn, "profile_height_in": c.ProfileHeightIn} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}
	return nil
}

func (c *Config) GetInputDir() string       { return stringOr(c.InputDir, "orig_gpx_files") }
func (c *Config) GetCollectionPath() string { return stringOr(c.CollectionPath, "moorwalkers.geojson") }
func (c *Config) GetOutputDir() string      { return stringOr(c.OutputDir, ".") }
func (c *Config) GetSiteBaseURL() string    { return stringOr(c.SiteBaseURL, "https://moorwalkers.github.io/") }
func (c *Config) GetTimezone() string       { return stringOr(c.Timezone, units.DefaultTimezone) }
func (c *Config) GetGeocoderURL() string {
	return stringOr(c.GeocoderURL, "https://us1.locationiq.com/v1/reverse.php")
}

// GetSimplifyEpsilon returns the Douglas-Peucker tolerance in degrees.
func (c *Config) GetSimplifyEpsilon() float64 {
	if c.SimplifyEpsilon == nil {
		return 0.0001
	}
	return *c.SimplifyEpsilon
}

// GetWorkers returns the per-track worker count.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetClusterSeed returns the k-means seed.
func (c *Config) GetClusterSeed() uint64 {
	if c.ClusterSeed == nil {
		return 0
	}
	return *c.ClusterSeed
}

// GetPalette returns a copy of the colour palette.
func (c *Config) GetPalette() []string {
	src := c.Palette
	if len(src) == 0 {
		src = DefaultPalette
	}
	return append([]string(nil), src...)
}

// GetGeocoderAttempts returns how many times a lookup is tried.
func (c *Config) GetGeocoderAttempts() int {
	if c.GeocoderAttempts == nil {
		return 2
	}
	return *c.GeocoderAttempts
}

// GetGeocoderBackoff returns the wait between geocoding attempts.
func (c *Config) GetGeocoderBackoff() time.Duration {
	return durationOr(c.GeocoderBackoff, 30*time.Second)
}

// GetGeocoderTimeout returns the per-request HTTP timeout.
func (c *Config) GetGeocoderTimeout() time.Duration {
	return durationOr(c.GeocoderTimeout, 20*time.Second)
}

// GetProfileSize returns the elevation profile width and height in inches.
func (c *Config) GetProfileSize() (w, h float64) {
	w, h = 8, 4
	if c.ProfileWidthIn != nil {
		w = *c.ProfileWidthIn
	}
	if c.ProfileHeightIn != nil {
		h = *c.ProfileHeightIn
	}
	return w, h
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}
