package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlaceholderOptions describes a solid stand-in image
type PlaceholderOptions struct {
	Width   int
	Height  int
	Color   string // #RRGGBB
	Label   string
	Quality int
}

// GeneratePlaceholder writes a JPEG of the given size filled with a solid
// colour, with the label and a WxH caption centred on it
func GeneratePlaceholder(outputPath string, opts PlaceholderOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("placeholder size must be positive, got %dx%d", opts.Width, opts.Height)
	}
	bg, err := parseHexColor(opts.Color)
	if err != nil {
		return err
	}
	if opts.Quality == 0 {
		opts.Quality = 90
	}

	canvas := imaging.New(opts.Width, opts.Height, bg)

	// basicfont glyphs are 13px tall; scale the rendered text with the canvas
	scale := opts.Height / 200
	if scale < 1 {
		scale = 1
	}
	caption := fmt.Sprintf("%dx%d", opts.Width, opts.Height)

	if opts.Label != "" {
		label := renderText(opts.Label, color.White, scale)
		pos := image.Pt((opts.Width-label.Bounds().Dx())/2, opts.Height/2-label.Bounds().Dy())
		canvas = imaging.Overlay(canvas, label, pos, 1.0)
	}
	small := renderText(caption, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, max(1, scale/2))
	pos := image.Pt((opts.Width-small.Bounds().Dx())/2, opts.Height*55/100)
	canvas = imaging.Overlay(canvas, small, pos, 0.7)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("cannot create directory for %s: %w", outputPath, err)
	}
	if err := imaging.Save(canvas, outputPath, imaging.JPEGQuality(opts.Quality)); err != nil {
		return fmt.Errorf("cannot save placeholder %s: %w", outputPath, err)
	}
	return nil
}

// renderText draws s on a transparent canvas and scales it up by factor
func renderText(s string, c color.Color, factor int) image.Image {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	w := d.MeasureString(s).Ceil()
	h := face.Metrics().Height.Ceil()

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	d.Dst = dst
	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(0, face.Metrics().Ascent.Ceil())
	d.DrawString(s)

	if factor <= 1 {
		return dst
	}
	return imaging.Resize(dst, w*factor, h*factor, imaging.NearestNeighbor)
}

func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
