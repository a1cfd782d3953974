package optimizer

import (
	"fmt"
	"io"
	"time"

	"hotelimages/logging"
	"hotelimages/utils"
)

// Reduction returns how much smaller derived is than original, in percent.
// A zero original yields 0.
func Reduction(original, derived int64) float64 {
	if original <= 0 {
		return 0
	}
	return (1 - float64(derived)/float64(original)) * 100
}

// printStartupInfo displays information about the run before starting
func printStartupInfo(out io.Writer, stats FileStats, sourceDir string, options Options) {
	fmt.Fprintf(out, "Optimizing images in %s...\nTotal image files to process: %d (including %d brand assets)\n",
		sourceDir, stats.totalFiles, stats.brandFiles)
	fmt.Fprintf(out, "Workers: %d\n", options.Workers)

	if options.DebugMode {
		fmt.Fprintf(out, "Debug mode: enabled\n")
		logging.DebugLog("Found %d image files to process (%d brand assets)", stats.totalFiles, stats.brandFiles)
	}
}

// printFileResult prints the per-file savings line
func printFileResult(out io.Writer, r ProcessImageResult) {
	if !r.Success {
		fmt.Fprintf(out, "  %s: FAILED: %v\n", r.RelPath, r.Error)
		return
	}
	s := r.Set
	fmt.Fprintf(out, "  %s [%s]: %s -> WebP %s (%.1f%% smaller), AVIF %s (%.1f%% smaller)\n",
		r.RelPath, r.Class,
		utils.FormatBytes(s.OriginalSize),
		utils.FormatBytes(s.WebpSize), Reduction(s.OriginalSize, s.WebpSize),
		utils.FormatBytes(s.AvifSize), Reduction(s.OriginalSize, s.AvifSize))
	if r.BlurError != nil {
		fmt.Fprintf(out, "    warning: no blur placeholder: %v\n", r.BlurError)
	}
}

// PrintCompletionStats displays totals after the run
func PrintCompletionStats(out io.Writer, report *Report, manifestPath string, options Options) {
	elapsed := report.FinishedAt.Sub(report.StartedAt)

	if options.DebugMode {
		logging.DebugLog("Optimization completed in %v. Processed: %d, Errors: %d, Original: %d, WebP: %d, AVIF: %d",
			elapsed, report.Processed, report.Failed, report.TotalOriginal, report.TotalWebp, report.TotalAvif)
	}

	fmt.Fprintln(out, "\nOptimization complete.")
	fmt.Fprintf(out, "Processed %d images in %v.\n", report.Processed, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Total original size: %s\n", utils.FormatBytes(report.TotalOriginal))
	fmt.Fprintf(out, "Total WebP size: %s (%.1f%% reduction)\n",
		utils.FormatBytes(report.TotalWebp), Reduction(report.TotalOriginal, report.TotalWebp))
	fmt.Fprintf(out, "Total AVIF size: %s (%.1f%% reduction)\n",
		utils.FormatBytes(report.TotalAvif), Reduction(report.TotalOriginal, report.TotalAvif))
	fmt.Fprintf(out, "Manifest saved to: %s\n", manifestPath)

	if report.Failed > 0 {
		fmt.Fprintf(out, "Encountered %d errors during optimization.\n", report.Failed)
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
