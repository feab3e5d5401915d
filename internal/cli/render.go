package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/pipeline"
)

// renderFlags holds the command-line flags for rendering.
type renderFlags struct {
	output     string
	format     string
	width      int
	height     int
	maxIter    int
	density    float64
	dpi        int
	workers    int
	region     string
	bounds     string
	configPath string
	pick       bool
	noCache    bool
	refresh    bool
	cacheURL   string
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the Mandelbrot set to an image file",
		Long: `Render the Mandelbrot set to an image file.

The view is the full set unless --region or --bounds selects another part of
the plane. The pixel size is width x height multiplied by --density; the file
records --dpi as its print resolution.

Settings are read from --config (TOML) first, then from explicit flags.
Rendered files are cached locally, so repeating a render is instant.`,
		Example: `  mandel
  mandel render --region seahorse-valley --max-iter 500 -o seahorse.png
  mandel render --bounds=-0.8,-0.7,0.05,0.15 --format tiff --dpi 600
  mandel render --pick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, opts, err := resolveRender(cmd, flags)
			if err != nil {
				return err
			}
			if flags.pick {
				region, ok, err := pickRegion()
				if err != nil {
					return err
				}
				if !ok {
					printInfo("No region selected")
					return nil
				}
				opts.Region = region
				opts.Bounds = mandel.Bounds{}
			}
			cacheURL := flags.cacheURL
			if opts.cacheURL != "" && !cmd.Flags().Changed("cache-url") {
				cacheURL = opts.cacheURL
			}
			return c.runRender(cmd.Context(), output, opts.Options, flags.noCache, cacheURL)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", defaultOutput, "output file")
	f.StringVarP(&flags.format, "format", "f", "", "output format: png, tiff (default: from the output extension)")
	f.IntVar(&flags.width, "width", defaultWidth, "image width before density scaling")
	f.IntVar(&flags.height, "height", defaultHeight, "image height before density scaling")
	f.IntVar(&flags.maxIter, "max-iter", defaultMaxIter, "iteration budget per pixel")
	f.Float64Var(&flags.density, "density", defaultDensity, "pixel density multiplier")
	f.IntVar(&flags.dpi, "dpi", defaultDPI, "print resolution stored in the file")
	f.IntVar(&flags.workers, "workers", 0, "parallel row workers (default: number of CPUs)")
	f.StringVarP(&flags.region, "region", "r", "", "named region (see 'mandel regions')")
	f.StringVar(&flags.bounds, "bounds", "", "plane bounds as xmin,xmax,ymin,ymax")
	f.StringVarP(&flags.configPath, "config", "c", "", "TOML render profile")
	f.BoolVar(&flags.pick, "pick", false, "choose a region interactively")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	f.BoolVar(&flags.refresh, "refresh", false, "re-render even if cached")
	f.StringVar(&flags.cacheURL, "cache-url", "", "cache location: directory, redis://, or mongodb:// URL")

	_ = cmd.RegisterFlagCompletionFunc("region", completeRegions)
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{export.FormatPNG, export.FormatTIFF}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// resolvedRender is the merged result of defaults, profile and flags.
type resolvedRender struct {
	pipeline.Options
	cacheURL string
}

// resolveRender merges flag defaults, the optional profile and explicitly
// set flags, in increasing order of precedence.
func resolveRender(cmd *cobra.Command, flags renderFlags) (string, resolvedRender, error) {
	changed := cmd.Flags().Changed
	var res resolvedRender

	if flags.configPath != "" {
		p, err := loadProfile(flags.configPath)
		if err != nil {
			return "", res, err
		}
		applyProfile(&flags, p, changed)
		res.cacheURL = p.CacheURL
		if p.Bounds != nil && flags.bounds == "" && !changed("region") {
			res.Bounds = *p.Bounds
		}
	}

	if flags.bounds != "" {
		b, err := parseBounds(flags.bounds)
		if err != nil {
			return "", res, err
		}
		res.Bounds = b
	}
	if changed("region") && !changed("bounds") {
		res.Bounds = mandel.Bounds{}
	}

	format := flags.format
	if format == "" {
		format = export.FormatFromPath(flags.output)
	}
	if format == "" {
		format = export.FormatPNG
	}
	if err := export.ValidateFormat(format); err != nil {
		return "", res, err
	}

	output := flags.output
	if output == defaultOutput && format != export.FormatPNG {
		output = strings.TrimSuffix(defaultOutput, filepath.Ext(defaultOutput)) + "." + format
	}

	res.Region = flags.region
	res.Width = flags.width
	res.Height = flags.height
	res.MaxIter = flags.maxIter
	res.Density = flags.density
	res.DPI = flags.dpi
	res.Workers = flags.workers
	res.Format = format
	res.Refresh = flags.refresh

	if err := checkExplicit(res.Options); err != nil {
		return "", res, err
	}
	return output, res, nil
}

// applyProfile copies profile values into flags that were not set explicitly.
func applyProfile(flags *renderFlags, p *profile, changed func(string) bool) {
	if p.Output != "" && !changed("output") {
		flags.output = p.Output
	}
	if p.Format != "" && !changed("format") {
		flags.format = p.Format
	}
	if p.Width != 0 && !changed("width") {
		flags.width = p.Width
	}
	if p.Height != 0 && !changed("height") {
		flags.height = p.Height
	}
	if p.MaxIter != 0 && !changed("max-iter") {
		flags.maxIter = p.MaxIter
	}
	if p.Density != 0 && !changed("density") {
		flags.density = p.Density
	}
	if p.DPI != 0 && !changed("dpi") {
		flags.dpi = p.DPI
	}
	if p.Workers != 0 && !changed("workers") {
		flags.workers = p.Workers
	}
	if p.Region != "" && !changed("region") && !changed("bounds") {
		flags.region = p.Region
	}
}

// checkExplicit rejects zero values. The pipeline treats zero as "use the
// default", but on the command line "--width 0" is a mistake.
func checkExplicit(o pipeline.Options) error {
	if err := errs.ValidateDimensions(o.Width, o.Height); err != nil {
		return err
	}
	if err := errs.ValidateIterations(o.MaxIter); err != nil {
		return err
	}
	if err := errs.ValidateDensity(o.Density); err != nil {
		return err
	}
	return errs.ValidateDPI(o.DPI)
}

// runRender renders opts to output and reports the result.
func (c *CLI) runRender(ctx context.Context, output string, opts pipeline.Options, noCache bool, cacheURL string) error {
	runner, err := c.newRunner(ctx, noCache, cacheURL)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)

	sw, sh, err := export.Scale(opts.Width, opts.Height, opts.Density)
	if err != nil {
		return err
	}
	spinner := newSpinnerWithContext(ctx, spinnerOutput, fmt.Sprintf("Rendering %dx%d...", sw, sh))
	spinner.Start()

	result, err := runner.Export(ctx, output, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	prog.done("Wrote " + output)
	printSuccess("Rendered %dx%d %s at %d DPI", result.Width, result.Height, strings.ToUpper(result.Format), opts.DPI)
	printStats(result)
	printFile(output)
	return nil
}

// completeRegions offers region names for shell completion.
func completeRegions(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return mandel.RegionNames(), cobra.ShellCompDirectiveNoFileComp
}
