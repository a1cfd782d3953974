package optimizer

import (
	"fmt"
	"io"
	"time"

	"hotelimages/imageprocessor"
	"hotelimages/logging"
)

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(stats FileStats, resultsChan <-chan ProcessImageResult, out io.Writer, interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(interval),
		done:       make(chan bool),
		drained:    make(chan struct{}),
		out:        out,
		totalFiles: stats.totalFiles,
		brandFiles: stats.brandFiles,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			p.printLine()
			p.mu.Unlock()
		}
	}
}

func (p *ProgressTracker) printLine() {
	if p.errors > 0 {
		fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d, Brand: %d/%d)",
			p.processed, p.totalFiles, p.errors, p.brandProcessed, p.brandFiles)
	} else {
		fmt.Fprintf(p.out, "\rProgress: %d/%d (Brand: %d/%d)",
			p.processed, p.totalFiles, p.brandProcessed, p.brandFiles)
	}
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.drained)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if result.Class == imageprocessor.ClassBrand {
			p.brandProcessed++
		}

		if !result.Success {
			p.errors++
			if result.Error != nil {
				logging.LogImageProcessed(result.RelPath, false, result.Error.Error())
			}
		} else {
			logging.LogImageProcessed(result.RelPath, true, "")
		}
		if result.BlurError != nil {
			logging.LogWarning("blur placeholder failed for %s: %v", result.RelPath, result.BlurError)
		}

		p.mu.Unlock()
	}
}

// Stop ends the progress tracking once the results channel has been closed
// and drained
func (p *ProgressTracker) Stop() {
	<-p.drained
	p.ticker.Stop()
	p.done <- true

	p.mu.Lock()
	p.printLine()
	fmt.Fprintln(p.out)
	p.mu.Unlock()
}
