// Package imageprocessor provides the building blocks of the derivative
// pipeline: the supported format table, path classification and its encoding
// policy, bounding-box geometry, blur placeholders and the prober/encoder
// interfaces implemented by concrete codecs.
package imageprocessor
