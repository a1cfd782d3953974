// Package vipscodec implements the imageprocessor prober and encoder on top
// of libvips. Derivatives are produced from the source file directly; the
// source is resized only when the encode options ask for it and only ever
// downwards.
package vipscodec

import (
	"fmt"
	"log/slog"

	"hotelimages/imageprocessor"

	"github.com/davidbyttow/govips/v2/vips"
)

// Startup initialises the libvips library. Call once at application start.
// concurrency controls the number of libvips worker threads (0 = auto).
func Startup(concurrency int) {
	cfg := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024,
	}
	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(cfg)
	slog.Debug("libvips started", "version", vips.Version)
}

// Shutdown releases libvips resources. Call at application shutdown.
func Shutdown() {
	vips.Shutdown()
}

// Codec probes and encodes images with libvips
type Codec struct {
	// StripMetadata drops EXIF/ICC data from derivatives
	StripMetadata bool
}

// New returns a libvips codec
func New() *Codec {
	return &Codec{StripMetadata: true}
}

// Probe implements imageprocessor.Prober
func (c *Codec) Probe(path string) (imageprocessor.Metadata, error) {
	img, err := vips.NewImageFromFile(path)
	if err != nil {
		return imageprocessor.Metadata{}, fmt.Errorf("vips: load %s: %w", path, err)
	}
	defer img.Close()

	format := imageprocessor.ParseFormat(vips.ImageTypes[img.Format()])
	if format == imageprocessor.FormatUnknown {
		format = imageprocessor.GetFileFormat(path)
	}

	return imageprocessor.Metadata{
		Width:  img.Width(),
		Height: img.Height(),
		Format: format,
	}, nil
}

// Encode implements imageprocessor.Encoder
func (c *Codec) Encode(path string, opts imageprocessor.EncodeOptions) (imageprocessor.Encoded, error) {
	img, err := vips.NewImageFromFile(path)
	if err != nil {
		return imageprocessor.Encoded{}, fmt.Errorf("vips: load %s: %w", path, err)
	}
	defer img.Close()

	if opts.Resize {
		if err := fitInside(img, opts.MaxWidth, opts.MaxHeight); err != nil {
			return imageprocessor.Encoded{}, fmt.Errorf("vips: resize %s: %w", path, err)
		}
	}

	var (
		buf  []byte
		meta *vips.ImageMetadata
	)
	switch opts.Format {
	case imageprocessor.FormatWEBP:
		params := vips.NewWebpExportParams()
		params.Quality = opts.Quality
		params.Lossless = opts.Lossless
		params.StripMetadata = c.StripMetadata
		buf, meta, err = img.ExportWebp(params)
	case imageprocessor.FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = opts.Quality
		params.Lossless = opts.Lossless
		params.StripMetadata = c.StripMetadata
		buf, meta, err = img.ExportAvif(params)
	default:
		return imageprocessor.Encoded{}, fmt.Errorf("vips: unsupported output format %s", opts.Format)
	}
	if err != nil {
		return imageprocessor.Encoded{}, fmt.Errorf("vips: export %s as %s: %w", path, opts.Format, err)
	}

	out := imageprocessor.Encoded{Data: buf, Width: img.Width(), Height: img.Height()}
	if meta != nil && meta.Width > 0 {
		out.Width, out.Height = meta.Width, meta.Height
	}
	return out, nil
}

// fitInside shrinks img to the bounding box, never enlarging it
func fitInside(img *vips.ImageRef, maxW, maxH int) error {
	w, h := img.Width(), img.Height()
	nw, nh := imageprocessor.FitInside(w, h, maxW, maxH)
	if nw == w && nh == h {
		return nil
	}
	return img.ResizeWithVScale(float64(nw)/float64(w), float64(nh)/float64(h), vips.KernelLanczos3)
}
