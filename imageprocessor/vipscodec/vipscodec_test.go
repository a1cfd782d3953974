package vipscodec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"hotelimages/imageprocessor"

	"golang.org/x/image/webp"
)

func TestMain(m *testing.M) {
	Startup(1)
	code := m.Run()
	Shutdown()
	os.Exit(code)
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x % 256), B: 10, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 320, 240)

	meta, err := New().Probe(src)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if meta.Width != 320 || meta.Height != 240 {
		t.Errorf("Expected 320x240, got %dx%d", meta.Width, meta.Height)
	}
	if meta.Format != imageprocessor.FormatJPEG {
		t.Errorf("Expected jpeg, got %s", meta.Format)
	}
}

func TestProbeCorruptFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(src, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Probe(src); err == nil {
		t.Error("Expected error for corrupt file")
	}
}

func TestEncodeWebpResizesWithinBox(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.jpg")
	writeJPEG(t, src, 400, 200)

	out, err := New().Encode(src, imageprocessor.EncodeOptions{
		Format:    imageprocessor.FormatWEBP,
		Quality:   90,
		Resize:    true,
		MaxWidth:  100,
		MaxHeight: 100,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("Output is not WebP: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("Expected 100x50, got %dx%d", cfg.Width, cfg.Height)
	}
	if out.Width != cfg.Width || out.Height != cfg.Height {
		t.Errorf("Reported %dx%d, decoded %dx%d", out.Width, out.Height, cfg.Width, cfg.Height)
	}
}

func TestEncodeNeverUpscales(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.jpg")
	writeJPEG(t, src, 64, 48)

	out, err := New().Encode(src, imageprocessor.EncodeOptions{
		Format:    imageprocessor.FormatWEBP,
		Quality:   90,
		Resize:    true,
		MaxWidth:  2560,
		MaxHeight: 2560,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("Output is not WebP: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("Expected 64x48, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestEncodeLosslessKeepsSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writePNG(t, src, 300, 100)

	out, err := New().Encode(src, imageprocessor.EncodeOptions{
		Format:   imageprocessor.FormatWEBP,
		Quality:  100,
		Lossless: true,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("Output is not WebP: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 100 {
		t.Errorf("Expected 300x100, got %dx%d", cfg.Width, cfg.Height)
	}
	// Lossless WebP uses the VP8L chunk
	if !bytes.Contains(out.Data[:32], []byte("VP8L")) {
		t.Error("Expected a lossless (VP8L) bitstream")
	}
}

func TestEncodeAvif(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "room.jpg")
	writeJPEG(t, src, 200, 150)

	out, err := New().Encode(src, imageprocessor.EncodeOptions{
		Format:    imageprocessor.FormatAVIF,
		Quality:   85,
		Resize:    true,
		MaxWidth:  100,
		MaxHeight: 100,
	})
	if err != nil {
		t.Skipf("libvips built without AVIF support: %v", err)
	}
	if len(out.Data) == 0 {
		t.Fatal("Expected AVIF bytes")
	}
	if !bytes.Contains(out.Data[:32], []byte("ftypavif")) {
		t.Error("Expected an AVIF file type box")
	}
	if out.Width != 100 || out.Height != 75 {
		t.Errorf("Expected 100x75, got %dx%d", out.Width, out.Height)
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 10, 10)

	if _, err := New().Encode(src, imageprocessor.EncodeOptions{Format: imageprocessor.FormatJPEG}); err == nil {
		t.Error("Expected error for jpeg output")
	}
}
