// Package manifest defines the derivative manifest written by the optimizer
// and the lookup contract the site templates rely on.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DerivativeSet describes the derivatives of one source image
type DerivativeSet struct {
	Original     string  `json:"original"`
	Webp         string  `json:"webp"`
	Avif         string  `json:"avif"`
	Blur         string  `json:"blur,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	AspectRatio  float64 `json:"aspectRatio"`
	OriginalSize int64   `json:"originalSize"`
	WebpSize     int64   `json:"webpSize"`
	AvifSize     int64   `json:"avifSize"`
}

// Manifest maps a source-relative path (forward slashes) to its derivatives
type Manifest map[string]DerivativeSet

// Keys returns the manifest keys in sorted order
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write stores the manifest as indented JSON. The file is replaced
// atomically so readers never observe a partial manifest.
func Write(filePath string, m Manifest) error {
	if m == nil {
		m = Manifest{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".image-manifest-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// Load reads a manifest file. A missing file yields an empty manifest, the
// same state the site is in before the first optimizer run.
func Load(filePath string) (Manifest, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := Manifest{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// Picture is what a template needs to render one image
type Picture struct {
	Original  string `json:"original"`
	Webp      string `json:"webp,omitempty"`
	Avif      string `json:"avif,omitempty"`
	Blur      string `json:"blur,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Optimized bool   `json:"optimized"`
}

// Resolve looks up relPath. Absent keys fall back to the raw source file
// under sourcePrefix and are reported as not optimized.
func (m Manifest) Resolve(relPath, sourcePrefix string) Picture {
	key := Key(relPath)
	if set, ok := m[key]; ok {
		return Picture{
			Original:  set.Original,
			Webp:      set.Webp,
			Avif:      set.Avif,
			Blur:      set.Blur,
			Width:     set.Width,
			Height:    set.Height,
			Optimized: true,
		}
	}
	return Picture{Original: JoinPublic(sourcePrefix, key)}
}

// Key normalizes a source-relative path into a manifest key. Only the host
// separator is translated; a backslash is a filename character on Unix.
func Key(relPath string) string {
	return path.Clean(filepath.ToSlash(relPath))
}

var repeatedSlashes = regexp.MustCompile(`/+`)

// JoinPublic joins URL path segments into an absolute public path and
// collapses doubled separators
func JoinPublic(parts ...string) string {
	joined := "/" + strings.Join(parts, "/")
	return repeatedSlashes.ReplaceAllString(joined, "/")
}

// DerivativePublicPath returns the public path of a derivative:
// /{outputDir}/{format}/{relDir}/{base}.{format}
func DerivativePublicPath(outputDir, format, relPath string) string {
	key := Key(relPath)
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	return JoinPublic(outputDir, format, dir, base+"."+format)
}

// DerivativeFilePath returns where a derivative is stored on disk under the
// output root
func DerivativeFilePath(outputRoot, format, relPath string) string {
	key := Key(relPath)
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	return filepath.Join(outputRoot, format, filepath.FromSlash(path.Dir(key)), base+"."+format)
}
