package cli

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/mandel"
)

// profile is a render configuration file. Every key is optional; flags given
// on the command line override the file.
//
//	output   = "poster.tiff"
//	width    = 3000
//	height   = 2000
//	max_iter = 500
//	dpi      = 600
//
//	[bounds]
//	x_min = -0.8
//	x_max = -0.7
//	y_min = 0.05
//	y_max = 0.15
type profile struct {
	Output   string         `toml:"output"`
	Format   string         `toml:"format"`
	Width    int            `toml:"width"`
	Height   int            `toml:"height"`
	MaxIter  int            `toml:"max_iter"`
	Density  float64        `toml:"density"`
	DPI      int            `toml:"dpi"`
	Workers  int            `toml:"workers"`
	Region   string         `toml:"region"`
	Bounds   *mandel.Bounds `toml:"bounds"`
	CacheURL string         `toml:"cache_url"`
}

// loadProfile reads a TOML profile. Unknown keys are rejected so that typos
// do not silently fall back to defaults.
func loadProfile(path string) (*profile, error) {
	var p profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "config %s: unknown key %q", path, undecoded[0].String())
	}
	return &p, nil
}

// parseBounds parses "xmin,xmax,ymin,ymax".
func parseBounds(s string) (mandel.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return mandel.Bounds{}, errs.New(errs.ErrCodeInvalidArgument,
			"bounds must be xmin,xmax,ymin,ymax, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mandel.Bounds{}, errs.Wrap(errs.ErrCodeInvalidArgument, err, "invalid bound %q", p)
		}
		v[i] = f
	}
	b := mandel.Bounds{XMin: v[0], XMax: v[1], YMin: v[2], YMax: v[3]}
	if err := b.Validate(); err != nil {
		return mandel.Bounds{}, err
	}
	return b, nil
}
