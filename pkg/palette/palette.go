// Package palette maps escape counts to pixel colours.
//
// Points that never escape are painted black. Escaped points get a gray
// level proportional to how long they survived, so the boundary of the set,
// where orbits linger, is the brightest part of the image.
package palette

import (
	"image/color"
	"math"
)

// Normalize maps an escape count to [0, 1).
//
// It returns 0 for iter == maxIter (the point is inside) and iter/maxIter
// otherwise. A non-positive budget yields 0.
func Normalize(iter, maxIter int) float64 {
	if maxIter <= 0 || iter >= maxIter {
		return 0
	}
	if iter <= 0 {
		return 0
	}
	return float64(iter) / float64(maxIter)
}

// Level quantizes a normalized value to an 8-bit channel, rounding half away from zero.
func Level(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return math.MaxUint8
	}
	return uint8(math.Round(v * math.MaxUint8))
}

// Gray returns an opaque gray whose three channels equal Normalize(iter, maxIter)
// quantized to 8 bits.
func Gray(iter, maxIter int) color.RGBA {
	l := Level(Normalize(iter, maxIter))
	return color.RGBA{R: l, G: l, B: l, A: math.MaxUint8}
}

// Table precomputes Gray for every count in [0, maxIter] so the renderer's
// inner loop is a slice lookup.
type Table []color.RGBA

// NewTable builds the lookup table for a budget.
func NewTable(maxIter int) Table {
	if maxIter < 0 {
		maxIter = 0
	}
	t := make(Table, maxIter+1)
	for i := range t {
		t[i] = Gray(i, maxIter)
	}
	return t
}

// At returns the colour for iter, clamping out-of-range counts.
func (t Table) At(iter int) color.RGBA {
	if iter < 0 {
		iter = 0
	}
	if iter >= len(t) {
		iter = len(t) - 1
	}
	return t[iter]
}
