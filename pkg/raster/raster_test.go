package raster

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/mandel"
)

func TestRenderSize(t *testing.T) {
	img, err := Render(context.Background(), mandel.FullView, 100, 75, 50)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 100 || b.Dy() != 75 {
		t.Errorf("size = %dx%d, want 100x75", b.Dx(), b.Dy())
	}
}

func planePoint(t *testing.T, x, y, w, h int) complex128 {
	t.Helper()
	c, err := PlanePoint(mandel.FullView, x, y, w, h)
	if err != nil {
		t.Fatalf("PlanePoint(%d, %d, %d, %d): %v", x, y, w, h, err)
	}
	return c
}

func TestPlanePointCorners(t *testing.T) {
	const w, h = 100, 75

	if got := planePoint(t, 0, 0, w, h); got != complex(-2.0, -1.2) {
		t.Errorf("pixel (0,0) = %v, want (-2-1.2i)", got)
	}
	if got := planePoint(t, w-1, h-1, w, h); real(got) != 1.0 || math.Abs(imag(got)-1.2) > 1e-15 {
		t.Errorf("pixel (99,74) = %v, want (1+1.2i)", got)
	}
	// Row 37 of 75 is the exact middle of [-1.2, 1.2].
	if got := imag(planePoint(t, 0, 37, w, h)); got != 0 {
		t.Errorf("row 37 imaginary part = %v, want 0", got)
	}
}

func TestRenderOriginIsBlack(t *testing.T) {
	const w, h, maxIter = 100, 75, 50

	img, err := Render(context.Background(), mandel.FullView, w, h, maxIter)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Column 66 of 100 maps to -2 + 66/99*3 = 0 (up to rounding).
	x, y := 66, 37
	c := planePoint(t, x, y, w, h)
	if math.Abs(real(c)) > 1e-12 || imag(c) != 0 {
		t.Fatalf("pixel (%d,%d) maps to %v, want ~0", x, y, c)
	}
	if n := mandel.Escape(c, maxIter); n != maxIter {
		t.Errorf("Escape(%v) = %d, want %d", c, n, maxIter)
	}
	if got := img.RGBAAt(x, y); got != (color.RGBA{A: 255}) {
		t.Errorf("pixel (%d,%d) = %v, want opaque black", x, y, got)
	}
}

func TestRenderCornerIsOutside(t *testing.T) {
	img, err := Render(context.Background(), mandel.FullView, 100, 75, 50)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// -2-1.2i escapes after one step: 1/50 of full scale rounds to level 5.
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 5, G: 5, B: 5, A: 255}) {
		t.Errorf("pixel (0,0) = %v, want {5 5 5 255}", got)
	}
}

func TestRenderGrayscale(t *testing.T) {
	img, err := Render(context.Background(), mandel.FullView, 40, 30, 64)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4]
		if p[0] != p[1] || p[1] != p[2] || p[3] != 255 {
			t.Fatalf("pixel %d = %v, want equal RGB and opaque alpha", i/4, p)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := Render(ctx, mandel.FullView, 120, 90, 80)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(ctx, mandel.FullView, 120, 90, 80)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two renders of the same configuration differ")
	}
}

func TestRenderParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	bounds, _ := mandel.LookupRegion("seahorse-valley")

	seq, err := Render(ctx, bounds, 64, 48, 200, WithWorkers(1))
	if err != nil {
		t.Fatalf("sequential Render: %v", err)
	}
	for _, workers := range []int{0, 2, 3, 16} {
		par, err := Render(ctx, bounds, 64, 48, 200, WithWorkers(workers))
		if err != nil {
			t.Fatalf("Render(workers=%d): %v", workers, err)
		}
		if !bytes.Equal(seq.Pix, par.Pix) {
			t.Errorf("workers=%d differs from sequential render", workers)
		}
	}
}

func TestRenderValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name          string
		bounds        mandel.Bounds
		width, height int
		maxIter       int
		code          errs.Code
	}{
		{"single column", mandel.FullView, 1, 10, 50, errs.ErrCodeInvalidDimension},
		{"single row", mandel.FullView, 10, 1, 50, errs.ErrCodeInvalidDimension},
		{"zero width", mandel.FullView, 0, 10, 50, errs.ErrCodeInvalidArgument},
		{"negative height", mandel.FullView, 10, -3, 50, errs.ErrCodeInvalidArgument},
		{"no iterations", mandel.FullView, 10, 10, 0, errs.ErrCodeInvalidArgument},
		{"empty bounds", mandel.Bounds{}, 10, 10, 50, errs.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(ctx, tt.bounds, tt.width, tt.height, tt.maxIter)
			if img != nil {
				t.Error("no image should be returned on invalid input")
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		img, err := Render(ctx, mandel.FullView, 50, 50, 100, WithWorkers(workers))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: error = %v, want context.Canceled", workers, err)
		}
		if img != nil {
			t.Errorf("workers=%d: cancelled render returned an image", workers)
		}
	}
}

func TestPlanePointErrors(t *testing.T) {
	tests := []struct {
		name                string
		x, y, width, height int
		code                errs.Code
	}{
		{"single column", 0, 0, 1, 10, errs.ErrCodeInvalidDimension},
		{"empty grid", 0, 0, 0, 10, errs.ErrCodeInvalidArgument},
		{"column past edge", 10, 0, 10, 10, errs.ErrCodeInvalidArgument},
		{"negative row", 0, -1, 10, 10, errs.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanePoint(mandel.FullView, tt.x, tt.y, tt.width, tt.height)
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("PlanePoint() error = %v, want code %q", err, tt.code)
			}
		})
	}
}

func TestRenderRejectsOversizedGrid(t *testing.T) {
	img, err := Render(context.Background(), mandel.FullView, math.MaxInt/2, math.MaxInt/2, 10)
	if !errs.Is(err, errs.ErrCodeInvalidArgument) {
		t.Fatalf("Render(huge grid) error = %v, want INVALID_ARGUMENT", err)
	}
	if img != nil {
		t.Error("oversized render returned an image")
	}
}

func BenchmarkRender(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		if _, err := Render(ctx, mandel.FullView, 200, 150, 100); err != nil {
			b.Fatal(err)
		}
	}
}
