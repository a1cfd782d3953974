package imageprocessor

import "strings"

// Class tags a source image with the encoding policy it falls under
type Class string

const (
	// ClassPhoto is regular photography: resized and lossy encoded
	ClassPhoto Class = "photo"
	// ClassBrand covers logos and certificates: kept at full size, lossless
	ClassBrand Class = "brand"
)

// DefaultBrandMarkers are the directory names that mark brand assets
var DefaultBrandMarkers = []string{"logos", "certificates"}

// Classify returns the class of a source-relative path. A path is a brand
// asset when any of its directory or file-name segments equals a marker.
func Classify(relPath string, markers []string) Class {
	if len(markers) == 0 {
		markers = DefaultBrandMarkers
	}
	segments := strings.FieldsFunc(relPath, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, seg := range segments {
		for _, m := range markers {
			if strings.EqualFold(seg, m) {
				return ClassBrand
			}
		}
	}
	return ClassPhoto
}

// EncodingPolicy decides how derivatives of one class are produced
type EncodingPolicy struct {
	Resize      bool
	Lossless    bool
	WebpQuality int
	AvifQuality int
}

// Qualities carries the configured quality settings
type Qualities struct {
	Webp  int
	Avif  int
	Brand int
}

// Policies builds the class -> policy table
func Policies(q Qualities) map[Class]EncodingPolicy {
	return map[Class]EncodingPolicy{
		ClassPhoto: {Resize: true, Lossless: false, WebpQuality: q.Webp, AvifQuality: q.Avif},
		ClassBrand: {Resize: false, Lossless: true, WebpQuality: q.Brand, AvifQuality: q.Brand},
	}
}
