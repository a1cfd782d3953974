// Package config holds the compiled-in settings of the image pipeline and the
// import mapping table.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Config represents the pipeline configuration
type Config struct {
	// PublicRoot is the directory served as the site root
	PublicRoot string
	// SourceDir, OutputDir and ManifestPath are relative to PublicRoot and
	// double as public URL paths
	SourceDir    string
	OutputDir    string
	ManifestPath string

	WebpQuality  int
	AvifQuality  int
	BrandQuality int
	MaxWidth     int
	MaxHeight    int
	BlurWidth    int
	BlurQuality  int

	BrandMarkers        []string
	SupportedExtensions []string

	Import       ImportConfig
	Placeholders []PlaceholderSpec
}

// ImportConfig describes where the importer reads from and writes to
type ImportConfig struct {
	SourceRoot string
	DestRoot   string
	Subdirs    []string
}

// PlaceholderSpec describes one generated stand-in image
type PlaceholderSpec struct {
	Name   string
	Width  int
	Height int
	Color  string
	Label  string
}

// Default returns the settings the site is built with
func Default() *Config {
	return &Config{
		PublicRoot:   "public",
		SourceDir:    "images/source",
		OutputDir:    "images/optimized",
		ManifestPath: "images/image-manifest.json",

		WebpQuality:  90,
		AvifQuality:  85,
		BrandQuality: 100,
		MaxWidth:     2560,
		MaxHeight:    2560,
		BlurWidth:    20,
		BlurQuality:  40,

		BrandMarkers:        []string{"logos", "certificates"},
		SupportedExtensions: []string{".jpg", ".jpeg", ".png"},

		Import: ImportConfig{
			SourceRoot: "alachi-photos-web",
			DestRoot:   filepath.Join("public", "images", "source"),
			Subdirs:    []string{"rooms", "amenities", "location", "contact", "logos", "certificates"},
		},

		Placeholders: []PlaceholderSpec{
			{Name: "hero-home.jpg", Width: 1920, Height: 1080, Color: "#2C5F7C", Label: "Alachi Hotel"},
			{Name: "hero.jpg", Width: 1920, Height: 1080, Color: "#2C5F7C", Label: "Alachi Hero (Fallback)"},
			{Name: "rooms/hero-rooms.jpg", Width: 1920, Height: 1080, Color: "#4A5568", Label: "Rooms"},
			{Name: "rooms/standard-ground-1.jpg", Width: 800, Height: 600, Color: "#6B7280", Label: "Standard Room"},
			{Name: "amenities/hero-amenities.jpg", Width: 1920, Height: 1080, Color: "#059669", Label: "Amenities"},
			{Name: "amenities/hamam.jpg", Width: 800, Height: 600, Color: "#0891B2", Label: "Turkish Bath"},
			{Name: "location/hero-location.jpg", Width: 1920, Height: 1080, Color: "#7C3AED", Label: "Location"},
		},
	}
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	if c.PublicRoot == "" {
		return fmt.Errorf("public root is required")
	}
	if c.SourceDir == "" || c.OutputDir == "" || c.ManifestPath == "" {
		return fmt.Errorf("source dir, output dir and manifest path are required")
	}
	qualities := map[string]int{
		"webp quality":  c.WebpQuality,
		"avif quality":  c.AvifQuality,
		"brand quality": c.BrandQuality,
		"blur quality":  c.BlurQuality,
	}
	for name, q := range qualities {
		if q < 1 || q > 100 {
			return fmt.Errorf("%s must be within 1..100, got %d", name, q)
		}
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("max bounding box must be positive, got %dx%d", c.MaxWidth, c.MaxHeight)
	}
	if c.BlurWidth <= 0 {
		return fmt.Errorf("blur width must be positive, got %d", c.BlurWidth)
	}
	if len(c.SupportedExtensions) == 0 {
		return fmt.Errorf("at least one supported extension is required")
	}
	return nil
}

// SourcePath returns the on-disk source directory
func (c *Config) SourcePath() string {
	return filepath.Join(c.PublicRoot, filepath.FromSlash(c.SourceDir))
}

// OutputPath returns the on-disk derivative directory
func (c *Config) OutputPath() string {
	return filepath.Join(c.PublicRoot, filepath.FromSlash(c.OutputDir))
}

// ManifestFile returns the on-disk manifest location
func (c *Config) ManifestFile() string {
	return filepath.Join(c.PublicRoot, filepath.FromSlash(c.ManifestPath))
}

// SourcePublicPrefix returns the URL prefix raw source files are served under
func (c *Config) SourcePublicPrefix() string {
	return "/" + strings.Trim(path.Clean("/"+c.SourceDir), "/")
}
