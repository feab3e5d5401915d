package export

import (
	"bytes"
	"context"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/raster"
)

// Default export settings.
const (
	DefaultWidth   = 800
	DefaultHeight  = 600
	DefaultMaxIter = 300
	DefaultDensity = 1.0
	DefaultDPI     = 300
	DefaultFormat  = FormatPNG
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatTIFF = "tiff"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG:  true,
	FormatTIFF: true,
}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatPNG:  "image/png",
	FormatTIFF: "image/tiff",
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidArgument, "invalid format: %q (must be one of: png, tiff)", format)
	}
	return nil
}

// FormatFromPath infers the format from a file extension, or "" if unknown.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG
	case ".tif", ".tiff":
		return FormatTIFF
	}
	return ""
}

// Settings describes one export. Zero fields take the package defaults.
type Settings struct {
	Bounds  mandel.Bounds
	Width   int
	Height  int
	MaxIter int
	Density float64
	DPI     int
	Format  string

	// Workers bounds row parallelism; see raster.WithWorkers.
	Workers int
}

// SetDefaults fills unset fields.
func (s *Settings) SetDefaults() {
	if s.Bounds.IsZero() {
		s.Bounds = mandel.FullView
	}
	if s.Width == 0 {
		s.Width = DefaultWidth
	}
	if s.Height == 0 {
		s.Height = DefaultHeight
	}
	if s.MaxIter == 0 {
		s.MaxIter = DefaultMaxIter
	}
	if s.Density == 0 {
		s.Density = DefaultDensity
	}
	if s.DPI == 0 {
		s.DPI = DefaultDPI
	}
	if s.Format == "" {
		s.Format = DefaultFormat
	}
}

// Validate checks every parameter, including the scaled grid size.
func (s Settings) Validate() error {
	if err := s.Bounds.Validate(); err != nil {
		return err
	}
	if err := errs.ValidateIterations(s.MaxIter); err != nil {
		return err
	}
	if err := errs.ValidateDPI(s.DPI); err != nil {
		return err
	}
	if err := ValidateFormat(s.Format); err != nil {
		return err
	}
	_, _, err := Scale(s.Width, s.Height, s.Density)
	return err
}

// Scale multiplies width and height by density, truncating toward zero.
// It fails with errs.ErrCodeInvalidArgument if either input is non-positive,
// either result is below 1, or the result is too large to allocate.
func Scale(width, height int, density float64) (int, int, error) {
	if err := errs.ValidateDimensions(width, height); err != nil {
		return 0, 0, err
	}
	if err := errs.ValidateDensity(density); err != nil {
		return 0, 0, err
	}
	fw, fh := float64(width)*density, float64(height)*density
	if fw >= math.MaxInt || fh >= math.MaxInt {
		return 0, 0, errs.New(errs.ErrCodeInvalidArgument,
			"%dx%d at density %g is too large", width, height, density)
	}
	sw, sh := int(fw), int(fh)
	if sw < 1 || sh < 1 {
		return 0, 0, errs.New(errs.ErrCodeInvalidArgument,
			"%dx%d at density %g scales to %dx%d", width, height, density, sw, sh)
	}
	if err := errs.ValidatePixelBuffer(sw, sh); err != nil {
		return 0, 0, err
	}
	return sw, sh, nil
}

// Render scales the settings and renders the image without writing it anywhere.
func Render(ctx context.Context, s Settings) (*image.RGBA, error) {
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sw, sh, _ := Scale(s.Width, s.Height, s.Density)
	return raster.Render(ctx, s.Bounds, sw, sh, s.MaxIter, raster.WithWorkers(s.Workers))
}

// Export renders s and writes it to path, creating or truncating the file.
func Export(ctx context.Context, path string, s Settings) error {
	if err := CheckOutputDir(path); err != nil {
		return err
	}
	img, err := Render(ctx, s)
	if err != nil {
		return err
	}
	s.SetDefaults()
	data, err := EncodeBytes(img, s.Format, s.DPI)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// CheckOutputDir validates path and confirms its parent directory exists.
// A missing or non-directory parent fails with errs.ErrCodeIO.
func CheckOutputDir(path string) error {
	if err := errs.ValidateOutputPath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "output directory %s", dir)
	}
	if !info.IsDir() {
		return errs.New(errs.ErrCodeIO, "output directory %s is not a directory", dir)
	}
	return nil
}

// Encode writes img to w in the given format with dpi resolution metadata.
func Encode(w io.Writer, img image.Image, format string, dpi int) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if err := errs.ValidateDPI(dpi); err != nil {
		return err
	}
	switch format {
	case FormatTIFF:
		return encodeTIFF(w, img, dpi)
	default:
		return encodePNG(w, img, dpi)
	}
}

// EncodeBytes is Encode into a byte slice.
func EncodeBytes(img image.Image, format string, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, dpi); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile creates or truncates path and writes data to it. The file is
// closed on every path; a failed close is reported like a failed write.
// A partially written file is left in place on error.
func WriteFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errs.Wrap(errs.ErrCodeIO, cerr, "close %s", path)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "write %s", path)
	}
	return nil
}
