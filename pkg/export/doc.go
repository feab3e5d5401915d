// Package export scales, renders and serializes Mandelbrot images.
//
// # Overview
//
// [Export] is the one-call path from settings to a file on disk:
//
//	err := export.Export(ctx, "mandelbrot.png", export.Settings{Density: 2})
//
// The requested width and height are multiplied by the density factor
// (truncating toward zero), the plane bounds default to [mandel.FullView],
// and the DPI is written into the file so print layouts come out at the
// intended physical size. Density changes pixel count only; the region of
// the plane that is shown stays the same.
//
// # Formats
//
//   - png: 8-bit RGB with a pHYs chunk (pixels per metre)
//   - tiff: deflate-compressed, XResolution/YResolution in pixels per inch
//
// [ReadPNGResolution] and [ReadTIFFResolution] read the DPI back.
//
// # Errors
//
// Bad parameters fail with errors.ErrCodeInvalidArgument before any work is
// done. File problems, including a missing parent directory, fail with
// errors.ErrCodeIO. Directories are never created.
package export
