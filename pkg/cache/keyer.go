package cache

import "math"

// ArtifactKeyOpts lists every parameter that changes the bytes of an artifact.
type ArtifactKeyOpts struct {
	XMin    float64 `json:"x_min"`
	XMax    float64 `json:"x_max"`
	YMin    float64 `json:"y_min"`
	YMax    float64 `json:"y_max"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	MaxIter int     `json:"max_iter"`
	DPI     int     `json:"dpi"`
	Format  string  `json:"format"`
}

// Keyer derives cache keys.
type Keyer interface {
	ArtifactKey(opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes opts. Float bounds are keyed by their exact bit
// patterns so that values which print alike never collide.
func (DefaultKeyer) ArtifactKey(opts ArtifactKeyOpts) string {
	return hashKey("artifact",
		math.Float64bits(opts.XMin), math.Float64bits(opts.XMax),
		math.Float64bits(opts.YMin), math.Float64bits(opts.YMax),
		opts.Width, opts.Height, opts.MaxIter, opts.DPI, opts.Format,
	)
}

var _ Keyer = DefaultKeyer{}
