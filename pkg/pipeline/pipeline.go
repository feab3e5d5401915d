// Package pipeline runs a complete render: validate → cache lookup → rasterize
// → encode → cache store.
//
// The CLI and the HTTP server both go through a Runner so that defaults,
// validation and caching behave the same from every entry point.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Region:  "seahorse-valley",
//	    Width:   800,
//	    Height:  600,
//	    Density: 2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Data
//
// Write straight to a file:
//
//	result, err := runner.Export(ctx, "mandelbrot.png", opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mandel/pkg/cache"
	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/mandel"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	DefaultWidth   = export.DefaultWidth
	DefaultHeight  = export.DefaultHeight
	DefaultMaxIter = export.DefaultMaxIter
	DefaultDensity = export.DefaultDensity
	DefaultDPI     = export.DefaultDPI
	DefaultFormat  = export.DefaultFormat
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one render.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Region names a landmark from mandel.Regions. It is used only when
	// Bounds is unset.
	Region string        `json:"region,omitempty"`
	Bounds mandel.Bounds `json:"bounds"`

	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	MaxIter int     `json:"max_iter,omitempty"`
	Density float64 `json:"density,omitempty"`
	DPI     int     `json:"dpi,omitempty"`
	Format  string  `json:"format,omitempty"`

	// Workers bounds row parallelism; zero means GOMAXPROCS.
	Workers int `json:"workers,omitempty"`

	// Refresh skips the cache lookup but still stores the result.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// ID identifies this run in logs and HTTP responses.
	ID string

	// Data is the encoded image.
	Data []byte

	Format string

	// Width and Height are the scaled pixel dimensions.
	Width  int
	Height int

	Stats Stats

	// CacheHit is true when Data came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RenderTime time.Duration
	EncodeTime time.Duration
	Bytes      int
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills unset fields. An unknown Region is left for Validate to
// report.
func (o *Options) SetDefaults() {
	if o.Bounds.IsZero() {
		if o.Region == "" {
			o.Bounds = mandel.FullView
		} else if b, ok := mandel.LookupRegion(o.Region); ok {
			o.Bounds = b
		}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Density == 0 {
		o.Density = DefaultDensity
	}
	if o.DPI == 0 {
		o.DPI = DefaultDPI
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
}

// Validate checks every option. Call SetDefaults first.
func (o *Options) Validate() error {
	if o.Bounds.IsZero() && o.Region != "" {
		return errs.New(errs.ErrCodeInvalidArgument,
			"unknown region %q (see 'mandel regions')", o.Region)
	}
	if o.Workers < 0 {
		return errs.New(errs.ErrCodeInvalidArgument, "workers must be non-negative, got %d", o.Workers)
	}
	return o.Settings().Validate()
}

// Settings converts the options to export settings.
func (o *Options) Settings() export.Settings {
	return export.Settings{
		Bounds:  o.Bounds,
		Width:   o.Width,
		Height:  o.Height,
		MaxIter: o.MaxIter,
		Density: o.Density,
		DPI:     o.DPI,
		Format:  o.Format,
		Workers: o.Workers,
	}
}

// Scaled returns the pixel dimensions after applying density.
func (o *Options) Scaled() (int, int, error) {
	return export.Scale(o.Width, o.Height, o.Density)
}

// ArtifactKeyOpts returns cache key options for the encoded image.
// Density is folded into the scaled size; Workers does not affect output.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	sw, sh, _ := o.Scaled()
	return cache.ArtifactKeyOpts{
		XMin:    o.Bounds.XMin,
		XMax:    o.Bounds.XMax,
		YMin:    o.Bounds.YMin,
		YMax:    o.Bounds.YMax,
		Width:   sw,
		Height:  sh,
		MaxIter: o.MaxIter,
		DPI:     o.DPI,
		Format:  o.Format,
	}
}
