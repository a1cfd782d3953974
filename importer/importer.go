// Package importer copies curated photos out of the raw archive into the
// site's source tree under canonical names.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hotelimages/config"
	"hotelimages/logging"
)

// Failure is one mapping entry that could not be copied
type Failure struct {
	From string
	To   string
	Err  error
}

// Result counts the outcome of an import run
type Result struct {
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Importer copies mapping entries from the archive into the source tree
type Importer struct {
	cfg     config.ImportConfig
	mapping *config.Mapping
	out     io.Writer
}

// New creates an importer for the given roots and mapping table
func New(cfg config.ImportConfig, mapping *config.Mapping) *Importer {
	return &Importer{cfg: cfg, mapping: mapping, out: os.Stdout}
}

// SetOutput redirects console output
func (im *Importer) SetOutput(w io.Writer) {
	im.out = w
}

// Run creates the fixed destination subdirectories and copies every mapping
// entry in order. A failed entry is recorded and the remaining entries are
// still attempted; only a destination directory that cannot be created is
// fatal. Later entries overwrite earlier ones with the same destination.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	var result Result

	for _, sub := range im.cfg.Subdirs {
		dir := filepath.Join(im.cfg.DestRoot, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return result, fmt.Errorf("cannot create destination directory %s: %w", dir, err)
		}
	}

	for _, dup := range im.mapping.Duplicates() {
		logging.LogWarning("destination %s is written by %d entries %v, the last one wins", dup.To, len(dup.Sources), dup.Sources)
		fmt.Fprintf(im.out, "Warning: %s is mapped from %d sources, keeping %s\n", dup.To, len(dup.Sources), dup.Sources[len(dup.Sources)-1])
	}

	fmt.Fprintf(im.out, "Importing %d photos from %s...\n", len(im.mapping.Entries), im.cfg.SourceRoot)

	for _, entry := range im.mapping.Entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		src := filepath.Join(im.cfg.SourceRoot, filepath.FromSlash(entry.From))
		dst := filepath.Join(im.cfg.DestRoot, filepath.FromSlash(entry.To))

		if err := copyFile(src, dst); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{From: entry.From, To: entry.To, Err: err})
			logging.LogError("Failed to copy %s: %v", entry.From, err)
			fmt.Fprintf(im.out, "  Failed to copy %s: %v\n", entry.From, err)
			continue
		}

		result.Succeeded++
		logging.DebugLog("Copied %s -> %s", src, dst)
		fmt.Fprintf(im.out, "  Copied: %s -> %s\n", entry.From, entry.To)
	}

	fmt.Fprintf(im.out, "\nImport complete. Success: %d, Errors: %d\n", result.Succeeded, result.Failed)
	return result, nil
}

// copyFile copies src to dst byte for byte. The data is written to a temp
// file next to dst and renamed into place.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".import-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, srcFile); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
