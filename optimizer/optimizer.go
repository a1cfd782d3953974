// Package optimizer turns every allow-listed source image into WebP and AVIF
// derivatives plus a blur placeholder and records them in the manifest.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hotelimages/config"
	"hotelimages/imageprocessor"
	"hotelimages/logging"
	"hotelimages/manifest"
	"hotelimages/types"
)

// derivativeFormats are produced for every source image, in this order
var derivativeFormats = []imageprocessor.FormatType{imageprocessor.FormatWEBP, imageprocessor.FormatAVIF}

// Optimizer runs the derivative pipeline over the source tree
type Optimizer struct {
	cfg      *config.Config
	codec    imageprocessor.Codec
	options  Options
	policies map[imageprocessor.Class]imageprocessor.EncodingPolicy
	blur     imageprocessor.BlurFunc
	out      io.Writer
}

// New creates an optimizer for cfg that probes and encodes with codec
func New(cfg *config.Config, codec imageprocessor.Codec, options Options) *Optimizer {
	if options.Workers < 1 {
		options.Workers = 1
	}
	blur := options.Blur
	if blur == nil {
		blur = imageprocessor.BlurPlaceholder
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	return &Optimizer{
		cfg:     cfg,
		codec:   codec,
		options: options,
		policies: imageprocessor.Policies(imageprocessor.Qualities{
			Webp:  cfg.WebpQuality,
			Avif:  cfg.AvifQuality,
			Brand: cfg.BrandQuality,
		}),
		blur: blur,
		out:  out,
	}
}

// Run optimizes every source image and writes the manifest. Per-image
// failures are reported in the returned Report. A cancelled context stops
// dispatching work and returns the context error without writing a manifest.
func (o *Optimizer) Run(ctx context.Context) (*Report, error) {
	report := &Report{Manifest: manifest.Manifest{}, StartedAt: time.Now()}

	outputRoot := o.cfg.OutputPath()
	for _, format := range derivativeFormats {
		dir := filepath.Join(outputRoot, string(format))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create output directory %s: %w", dir, err)
		}
	}

	files, err := o.collectFiles()
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		fmt.Fprintf(o.out, "No images found in %s\n", o.cfg.SourcePath())
		if err := manifest.Write(o.cfg.ManifestFile(), report.Manifest); err != nil {
			return nil, err
		}
		report.FinishedAt = time.Now()
		return report, nil
	}

	stats := o.countFiles(files)
	printStartupInfo(o.out, stats, o.cfg.SourcePath(), o.options)

	results := make([]ProcessImageResult, len(files))
	resultsChan := make(chan ProcessImageResult, len(files))
	tracker := NewProgressTracker(stats, resultsChan, o.out, o.options.ProgressInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.options.Workers)
	for i, rel := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = ProcessImageResult{RelPath: rel, Error: gctx.Err()}
				return nil
			}
			result := o.processFile(gctx, rel)
			results[i] = result
			resultsChan <- result
			return nil
		})
	}
	g.Wait()
	close(resultsChan)
	tracker.Stop()

	if err := ctx.Err(); err != nil {
		logging.LogWarning("optimization interrupted, manifest not written: %v", err)
		return nil, err
	}

	for _, result := range results {
		printFileResult(o.out, result)
		report.add(result)
	}

	if err := manifest.Write(o.cfg.ManifestFile(), report.Manifest); err != nil {
		return nil, err
	}
	report.FinishedAt = time.Now()

	PrintCompletionStats(o.out, report, o.cfg.ManifestFile(), o.options)
	return report, nil
}

// collectFiles returns allow-listed files under the source directory as
// forward-slash relative paths, sorted. A missing source directory is an
// empty set.
func (o *Optimizer) collectFiles() ([]string, error) {
	root := o.cfg.SourcePath()
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		logging.LogWarning("source directory %s does not exist", root)
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.LogError("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !imageprocessor.IsSupportedImage(path, o.cfg.SupportedExtensions) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot read source directory %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (o *Optimizer) countFiles(files []string) FileStats {
	stats := FileStats{totalFiles: len(files)}
	for _, rel := range files {
		if imageprocessor.Classify(rel, o.cfg.BrandMarkers) == imageprocessor.ClassBrand {
			stats.brandFiles++
		}
	}
	return stats
}

// processFile produces the derivatives of one source image
func (o *Optimizer) processFile(ctx context.Context, rel string) (result ProcessImageResult) {
	result = ProcessImageResult{
		RelPath: rel,
		Class:   imageprocessor.Classify(rel, o.cfg.BrandMarkers),
	}

	// Codecs call into C libraries; keep one bad file from taking down the run
	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			logging.LogError("Panic while optimizing %s: %v\nStack trace: %s", rel, r, string(stackTrace))
			result.Success = false
			result.Error = fmt.Errorf("panic while optimizing %s: %v", rel, r)
		}
	}()

	src := filepath.Join(o.cfg.SourcePath(), filepath.FromSlash(rel))

	info, err := os.Stat(src)
	if err != nil {
		result.Error = fmt.Errorf("cannot stat file %s: %w", rel, err)
		return result
	}

	meta, err := o.codec.Probe(src)
	if err != nil {
		result.Error = fmt.Errorf("cannot read metadata of %s: %w", rel, err)
		return result
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		result.Error = fmt.Errorf("image %s has no dimensions", rel)
		return result
	}

	set := manifest.DerivativeSet{
		Original:     manifest.JoinPublic(o.cfg.SourceDir, rel),
		Width:        meta.Width,
		Height:       meta.Height,
		AspectRatio:  imageprocessor.AspectRatio(meta.Width, meta.Height),
		OriginalSize: info.Size(),
	}

	blur, err := o.blur(src, o.cfg.BlurWidth, o.cfg.BlurQuality)
	if err != nil {
		result.BlurError = err
	} else {
		set.Blur = blur
	}

	policy := o.policies[result.Class]
	for _, format := range derivativeFormats {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result
		}

		size, err := o.writeDerivative(src, rel, format, policy)
		if err != nil {
			result.Error = err
			return result
		}

		publicPath := manifest.DerivativePublicPath(o.cfg.OutputDir, string(format), rel)
		switch format {
		case imageprocessor.FormatWEBP:
			set.Webp, set.WebpSize = publicPath, size
		case imageprocessor.FormatAVIF:
			set.Avif, set.AvifSize = publicPath, size
		}
	}

	if o.options.DebugMode {
		logging.DebugLog("Optimized %s image %s (%dx%d, %s)", result.Class, rel, meta.Width, meta.Height, meta.Format)
	}

	result.Set = set
	result.Success = true
	return result
}

// writeDerivative encodes one derivative and stores it, returning its size
func (o *Optimizer) writeDerivative(src, rel string, format imageprocessor.FormatType, policy imageprocessor.EncodingPolicy) (int64, error) {
	opts, err := imageprocessor.OptionsFor(format, policy, o.cfg.MaxWidth, o.cfg.MaxHeight)
	if err != nil {
		return 0, err
	}

	encoded, err := o.codec.Encode(src, opts)
	if err != nil {
		return 0, fmt.Errorf("cannot encode %s as %s: %w", rel, format, err)
	}

	dest := manifest.DerivativeFilePath(o.cfg.OutputPath(), string(format), rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("cannot create directory for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, encoded.Data, 0644); err != nil {
		return 0, fmt.Errorf("cannot write %s: %w", dest, err)
	}
	return int64(len(encoded.Data)), nil
}

// add folds one result into the report
func (r *Report) add(result ProcessImageResult) {
	record := types.ImageRecord{
		Path:   result.RelPath,
		Class:  string(result.Class),
		Status: types.StatusOptimized,
	}

	if !result.Success {
		r.Failed++
		record.Status = types.StatusFailed
		if result.Error != nil {
			record.Error = result.Error.Error()
		}
		r.Records = append(r.Records, record)
		return
	}

	s := result.Set
	r.Processed++
	r.TotalOriginal += s.OriginalSize
	r.TotalWebp += s.WebpSize
	r.TotalAvif += s.AvifSize
	r.Manifest[manifest.Key(result.RelPath)] = s

	record.Width = s.Width
	record.Height = s.Height
	record.OriginalSize = s.OriginalSize
	record.WebpSize = s.WebpSize
	record.AvifSize = s.AvifSize
	record.HasBlur = s.Blur != ""
	r.Records = append(r.Records, record)
}

// RunRecord converts the report into a ledger record
func (r *Report) RunRecord(id string) types.RunRecord {
	return types.RunRecord{
		ID:            id,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Processed:     r.Processed,
		Failed:        r.Failed,
		TotalOriginal: r.TotalOriginal,
		TotalWebp:     r.TotalWebp,
		TotalAvif:     r.TotalAvif,
		Images:        r.Records,
	}
}
