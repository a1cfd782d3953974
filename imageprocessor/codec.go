package imageprocessor

import (
	"fmt"
	"os"
)

// Metadata is the intrinsic information read from a source image
type Metadata struct {
	Width  int
	Height int
	Format FormatType
}

// Prober reads intrinsic metadata without producing derivatives
type Prober interface {
	Probe(path string) (Metadata, error)
}

// EncodeOptions describes one derivative to produce
type EncodeOptions struct {
	Format   FormatType // FormatWEBP or FormatAVIF
	Quality  int
	Lossless bool
	// MaxWidth and MaxHeight bound the output when Resize is set
	Resize    bool
	MaxWidth  int
	MaxHeight int
}

// Encoded is a produced derivative
type Encoded struct {
	Data   []byte
	Width  int
	Height int
}

// Encoder produces derivatives from a source file
type Encoder interface {
	Encode(path string, opts EncodeOptions) (Encoded, error)
}

// Codec is a prober and an encoder
type Codec interface {
	Prober
	Encoder
}

// WithProber returns a codec that probes with p and encodes with enc
func WithProber(p Prober, enc Encoder) Codec {
	return composedCodec{Prober: p, Encoder: enc}
}

type composedCodec struct {
	Prober
	Encoder
}

// OptionsFor builds the encode options for one output format under a policy
func OptionsFor(format FormatType, policy EncodingPolicy, maxW, maxH int) (EncodeOptions, error) {
	opts := EncodeOptions{
		Format:    format,
		Lossless:  policy.Lossless,
		Resize:    policy.Resize,
		MaxWidth:  maxW,
		MaxHeight: maxH,
	}
	switch format {
	case FormatWEBP:
		opts.Quality = policy.WebpQuality
	case FormatAVIF:
		opts.Quality = policy.AvifQuality
	default:
		return opts, fmt.Errorf("unsupported derivative format: %s", format)
	}
	return opts, nil
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
