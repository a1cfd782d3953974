package imageprocessor

import "math"

// FitInside scales (w, h) to fit within (maxW, maxH) keeping the aspect
// ratio. It never enlarges and never returns a side smaller than 1.
func FitInside(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))

	if nw > maxW {
		nw = maxW
	}
	if nh > maxH {
		nh = maxH
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// ScaleToWidth returns the height matching width for a (w, h) source
func ScaleToWidth(w, h, width int) int {
	if w <= 0 {
		return 0
	}
	nh := int(math.Round(float64(h) * float64(width) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return nh
}

// AspectRatio returns w/h rounded to two decimals, or 0 when h is 0
func AspectRatio(w, h int) float64 {
	if h == 0 {
		return 0
	}
	return math.Round(float64(w)/float64(h)*100) / 100
}
