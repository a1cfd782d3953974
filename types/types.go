package types

import "time"

// ImageStatus is the outcome of optimizing one source image
type ImageStatus string

const (
	StatusOptimized ImageStatus = "optimized"
	StatusFailed    ImageStatus = "failed"
)

// ImageRecord holds the per-image outcome of an optimizer run
type ImageRecord struct {
	Path         string      `json:"path"`
	Class        string      `json:"class"`
	Status       ImageStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	OriginalSize int64       `json:"original_size"`
	WebpSize     int64       `json:"webp_size"`
	AvifSize     int64       `json:"avif_size"`
	HasBlur      bool        `json:"has_blur"`
}

// RunRecord holds the totals of one optimizer run
type RunRecord struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	TotalOriginal int64         `json:"total_original"`
	TotalWebp     int64         `json:"total_webp"`
	TotalAvif     int64         `json:"total_avif"`
	Images        []ImageRecord `json:"images,omitempty"`
}
