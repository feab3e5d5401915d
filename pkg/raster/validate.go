package raster

import (
	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/mandel"
)

// Validate reports whether a render request can be satisfied.
//
// Sizes below 1 and empty budgets fail with errs.ErrCodeInvalidArgument.
// A width or height of exactly 1 fails with errs.ErrCodeInvalidDimension:
// the pixel-to-plane mapping divides by (n-1), and a single sample has no
// edge to anchor to.
func Validate(bounds mandel.Bounds, width, height, maxIter int) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	if err := errs.ValidateIterations(maxIter); err != nil {
		return err
	}
	return errs.ValidateGrid(width, height)
}
