package optimizer

import (
	"io"
	"sync"
	"time"

	"hotelimages/imageprocessor"
	"hotelimages/manifest"
	"hotelimages/types"
)

// Options defines the run-time options of an optimizer run
type Options struct {
	Workers   int // Bounded parallelism, 1 processes files sequentially
	DebugMode bool
	// Blur produces the placeholder data URI, BlurPlaceholder when nil
	Blur imageprocessor.BlurFunc
	// Out receives console output, os.Stdout when nil
	Out              io.Writer
	ProgressInterval time.Duration
}

// ProcessImageResult holds the result of optimizing one source image
type ProcessImageResult struct {
	RelPath   string
	Class     imageprocessor.Class
	Set       manifest.DerivativeSet
	Success   bool
	Error     error
	BlurError error
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
	brandFiles int
}

// Report is the outcome of a completed run
type Report struct {
	Manifest      manifest.Manifest
	Records       []types.ImageRecord
	Processed     int
	Failed        int
	TotalOriginal int64
	TotalWebp     int64
	TotalAvif     int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ProgressTracker tracks progress of the optimizer run
type ProgressTracker struct {
	processed      int
	errors         int
	brandProcessed int
	ticker         *time.Ticker
	done           chan bool
	drained        chan struct{}
	mu             sync.Mutex
	out            io.Writer
	totalFiles     int
	brandFiles     int
}
