package imageprocessor

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const blurDataURIPrefix = "data:image/webp;base64,"

// BlurFunc produces a placeholder data URI for a source image
type BlurFunc func(path string, width, quality int) (string, error)

// BlurPlaceholder downscales the image at path to width pixels (height
// follows the aspect ratio), encodes it as low-quality WebP and returns it as
// a data URI
func BlurPlaceholder(path string, width, quality int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("blur width must be positive, got %d", width)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot decode %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return "", newImageLoadError("image has no pixels", path)
	}

	height := ScaleToWidth(b.Dx(), b.Dy(), width)
	small := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, small, &webp.Options{Quality: float32(quality)}); err != nil {
		return "", fmt.Errorf("cannot encode blur for %s: %w", path, err)
	}

	return blurDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBlur returns the WebP bytes carried by a placeholder data URI
func DecodeBlur(dataURI string) ([]byte, error) {
	if len(dataURI) < len(blurDataURIPrefix) || dataURI[:len(blurDataURIPrefix)] != blurDataURIPrefix {
		return nil, fmt.Errorf("not a webp data URI")
	}
	return base64.StdEncoding.DecodeString(dataURI[len(blurDataURIPrefix):])
}
