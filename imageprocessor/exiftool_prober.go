package imageprocessor

import (
	"fmt"
	"sync"

	"hotelimages/logging"

	"github.com/barasher/go-exiftool"
)

// ExiftoolProber reads image dimensions and type through a long-running
// exiftool process
type ExiftoolProber struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExiftoolProber creates a prober; the exiftool process starts on first use
func NewExiftoolProber() *ExiftoolProber {
	return &ExiftoolProber{}
}

// Probe implements Prober
func (p *ExiftoolProber) Probe(path string) (Metadata, error) {
	if !fileExists(path) {
		return Metadata{}, newImageLoadError("file not found", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.et == nil {
		et, err := exiftool.NewExiftool()
		if err != nil {
			logging.LogError("Failed to initialize exiftool: %v", err)
			return Metadata{}, fmt.Errorf("failed to initialize exiftool: %w", err)
		}
		p.et = et
	}

	fileInfos := p.et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return Metadata{}, newImageLoadError("no metadata extracted", path)
	}

	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return Metadata{}, fmt.Errorf("exiftool %s: %w", path, fileInfo.Err)
	}

	width, err := fileInfo.GetInt("ImageWidth")
	if err != nil {
		return Metadata{}, fmt.Errorf("exiftool %s: image width: %w", path, err)
	}
	height, err := fileInfo.GetInt("ImageHeight")
	if err != nil {
		return Metadata{}, fmt.Errorf("exiftool %s: image height: %w", path, err)
	}
	if width <= 0 || height <= 0 {
		return Metadata{}, newImageLoadError("invalid image dimensions", path)
	}

	format := GetFileFormat(path)
	if fileType, err := fileInfo.GetString("FileType"); err == nil {
		if parsed := ParseFormat(fileType); parsed != FormatUnknown {
			format = parsed
		}
	}

	return Metadata{Width: int(width), Height: int(height), Format: format}, nil
}

// Close stops the exiftool process
func (p *ExiftoolProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.et == nil {
		return nil
	}
	err := p.et.Close()
	p.et = nil
	return err
}
