package mandel

import (
	"fmt"
	"sort"

	errs "github.com/matzehuels/mandel/pkg/errors"
)

// Bounds is a rectangle of the complex plane: real axis [XMin, XMax],
// imaginary axis [YMin, YMax].
type Bounds struct {
	XMin float64 `json:"x_min" toml:"x_min"`
	XMax float64 `json:"x_max" toml:"x_max"`
	YMin float64 `json:"y_min" toml:"y_min"`
	YMax float64 `json:"y_max" toml:"y_max"`
}

// FullView frames the whole set with a little margin.
var FullView = Bounds{XMin: -2.0, XMax: 1.0, YMin: -1.2, YMax: 1.2}

// Validate checks that b is finite and non-empty.
func (b Bounds) Validate() error {
	return errs.ValidateBounds(b.XMin, b.XMax, b.YMin, b.YMax)
}

// IsZero reports whether b is the zero rectangle, which callers treat as "unset".
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Width is the extent along the real axis.
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height is the extent along the imaginary axis.
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

// Center returns the midpoint of b.
func (b Bounds) Center() complex128 {
	return complex((b.XMin+b.XMax)/2, (b.YMin+b.YMax)/2)
}

// String formats b as "[xmin, xmax] x [ymin, ymax]".
func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g] x [%g, %g]", b.XMin, b.XMax, b.YMin, b.YMax)
}

// Region is a named, well-known area of the set.
type Region struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Bounds      Bounds `json:"bounds"`
}

// Classic regions / landmarks in the Mandelbrot set.
var regions = map[string]Region{
	"full": {
		Name:        "full",
		Description: "the whole set",
		Bounds:      FullView,
	},
	"seahorse-valley": {
		Name:        "seahorse-valley",
		Description: "dense filaments and repeating seahorse curls",
		Bounds:      Bounds{XMin: -0.8, XMax: -0.7, YMin: 0.05, YMax: 0.15},
	},
	"elephant-valley": {
		Name:        "elephant-valley",
		Description: "large bulb with trunk-like tendrils",
		Bounds:      Bounds{XMin: -1.85, XMax: -1.75, YMin: -0.10, YMax: -0.02},
	},
	"spiral-minibrot": {
		Name:        "spiral-minibrot",
		Description: "small copy of the set with tight spiral arms",
		Bounds:      Bounds{XMin: -0.7435, XMax: -0.7420, YMin: 0.1310, YMax: 0.1325},
	},
	"triple-spiral": {
		Name:        "triple-spiral",
		Description: "threefold symmetric spiral structure",
		Bounds:      Bounds{XMin: -0.7480, XMax: -0.7450, YMin: 0.0950, YMax: 0.0980},
	},
	"valley-of-the-dragon": {
		Name:        "valley-of-the-dragon",
		Description: "deep, highly detailed spiral filaments",
		Bounds:      Bounds{XMin: -0.7400, XMax: -0.7350, YMin: 0.1800, YMax: 0.1850},
	},
	"minibrot-in-mini-spiral": {
		Name:        "minibrot-in-mini-spiral",
		Description: "self-similar copy inside a spiral arm",
		Bounds:      Bounds{XMin: -1.7390, XMax: -1.7375, YMin: -0.0235, YMax: -0.0220},
	},
}

// LookupRegion returns the named region's bounds.
func LookupRegion(name string) (Bounds, bool) {
	r, ok := regions[name]
	return r.Bounds, ok
}

// RegionNames returns all region names in sorted order.
func RegionNames() []string {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Regions returns every known region, sorted by name.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for _, name := range RegionNames() {
		out = append(out, regions[name])
	}
	return out
}
