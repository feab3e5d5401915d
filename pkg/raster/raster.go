// Package raster fills an image buffer with an escape-time rendering of a
// region of the complex plane.
//
// Every pixel (x, y) of a width×height grid is mapped linearly onto
// [mandel.Bounds]: column 0 lands on XMin and column width-1 on XMax, row 0
// on YMin and row height-1 on YMax. The pixel is coloured with
// [palette.Gray] of its escape count.
//
// Rows are independent. [Render] hands each row to a bounded pool of
// goroutines; a worker writes only its own row's span of the pixel slice, so
// no locking is needed and the result does not depend on scheduling.
package raster

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/palette"
)

// Option configures Render.
type Option func(*renderer)

type renderer struct {
	workers int
}

// WithWorkers sets how many rows are computed concurrently.
// Values below 1 select runtime.GOMAXPROCS(0); 1 renders sequentially on the
// calling goroutine.
func WithWorkers(n int) Option {
	return func(r *renderer) { r.workers = n }
}

// Render computes a width×height image of bounds with the given iteration budget.
//
// The context is checked between rows; a cancelled render returns ctx.Err()
// and no image.
func Render(ctx context.Context, bounds mandel.Bounds, width, height, maxIter int, opts ...Option) (*image.RGBA, error) {
	if err := Validate(bounds, width, height, maxIter); err != nil {
		return nil, err
	}

	r := renderer{}
	for _, opt := range opts {
		opt(&r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	g := grid{
		bounds:  bounds,
		width:   width,
		height:  height,
		maxIter: maxIter,
		colors:  palette.NewTable(maxIter),
	}

	if r.workers == 1 {
		for y := 0; y < height; y++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			g.fillRow(img, y)
		}
		return img, nil
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for y := 0; y < height; y++ {
		if egctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			g.fillRow(img, y)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// grid holds the per-render constants shared read-only by all workers.
type grid struct {
	bounds  mandel.Bounds
	width   int
	height  int
	maxIter int
	colors  palette.Table
}

// fillRow writes row y of img. It touches only img.Pix[y*Stride : y*Stride+4*width].
func (g *grid) fillRow(img *image.RGBA, y int) {
	cy := axis(g.bounds.YMin, g.bounds.YMax, y, g.height)
	row := img.Pix[y*img.Stride : y*img.Stride+4*g.width]

	for x := 0; x < g.width; x++ {
		cx := axis(g.bounds.XMin, g.bounds.XMax, x, g.width)
		c := g.colors.At(mandel.Escape(complex(cx, cy), g.maxIter))

		i := 4 * x
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
	}
}

// axis maps sample i of n onto [lo, hi] as lo + i/(n-1)*(hi-lo).
func axis(lo, hi float64, i, n int) float64 {
	return lo + float64(i)/float64(n-1)*(hi-lo)
}

// PlanePoint returns the complex coordinate that pixel (x, y) of a
// width×height grid samples. The grid is checked like Render checks it, and
// (x, y) must lie inside it.
func PlanePoint(bounds mandel.Bounds, x, y, width, height int) (complex128, error) {
	if err := errs.ValidateGrid(width, height); err != nil {
		return 0, err
	}
	if x < 0 || x >= width || y < 0 || y >= height {
		return 0, errs.New(errs.ErrCodeInvalidArgument,
			"pixel (%d,%d) is outside the %dx%d grid", x, y, width, height)
	}
	return complex(
		axis(bounds.XMin, bounds.XMax, x, width),
		axis(bounds.YMin, bounds.YMax, y, height),
	), nil
}
