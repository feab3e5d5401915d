package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateDimensions checks that both axes of a requested image are positive.
func ValidateDimensions(width, height int) error {
	if width < 1 {
		return New(ErrCodeInvalidArgument, "width must be positive, got %d", width)
	}
	if height < 1 {
		return New(ErrCodeInvalidArgument, "height must be positive, got %d", height)
	}
	return nil
}

// ValidateGrid checks that a pixel grid can be mapped onto the plane.
// Each axis needs at least two samples so that the first and last pixel land
// on opposite edges of the bounds.
func ValidateGrid(width, height int) error {
	if err := ValidateDimensions(width, height); err != nil {
		return err
	}
	if width == 1 || height == 1 {
		return New(ErrCodeInvalidDimension, "grid %dx%d has a single-sample axis", width, height)
	}
	return ValidatePixelBuffer(width, height)
}

// ValidatePixelBuffer rejects positive sizes whose 4-byte-per-pixel buffer
// length does not fit in an int.
func ValidatePixelBuffer(width, height int) error {
	if err := ValidateDimensions(width, height); err != nil {
		return err
	}
	if width > math.MaxInt/4/height {
		return New(ErrCodeInvalidArgument, "image %dx%d is too large", width, height)
	}
	return nil
}

// ValidateDensity checks that a density factor is positive and finite.
func ValidateDensity(density float64) error {
	if math.IsNaN(density) || math.IsInf(density, 0) || density <= 0 {
		return New(ErrCodeInvalidArgument, "density must be a positive number, got %v", density)
	}
	return nil
}

// ValidateIterations checks the iteration budget.
func ValidateIterations(maxIter int) error {
	if maxIter < 1 {
		return New(ErrCodeInvalidArgument, "max iterations must be positive, got %d", maxIter)
	}
	return nil
}

// ValidateDPI checks the resolution written into image metadata.
func ValidateDPI(dpi int) error {
	if dpi < 1 {
		return New(ErrCodeInvalidArgument, "dpi must be positive, got %d", dpi)
	}
	return nil
}

// ValidateBounds checks that a plane rectangle is finite and non-empty.
func ValidateBounds(xMin, xMax, yMin, yMax float64) error {
	for _, v := range []float64{xMin, xMax, yMin, yMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidArgument, "bounds must be finite")
		}
	}
	if xMin >= xMax {
		return New(ErrCodeInvalidArgument, "x_min (%g) must be less than x_max (%g)", xMin, xMax)
	}
	if yMin >= yMax {
		return New(ErrCodeInvalidArgument, "y_min (%g) must be less than y_max (%g)", yMin, yMax)
	}
	return nil
}

// ValidateOutputPath rejects paths that cannot name a file.
//
// Existence and permissions are not checked here; those surface as
// ErrCodeIO when the file is created.
func ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidArgument, "output path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidArgument, "output path contains invalid characters")
		}
	}
	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidArgument, "output path %q names a directory", path)
	}
	return nil
}
