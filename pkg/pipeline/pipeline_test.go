package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mandel/pkg/cache"
	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/observability"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func smallOptions() Options {
	return Options{Width: 40, Height: 30, MaxIter: 20, Density: 1}
}

func TestSetDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()

	if o.Bounds != mandel.FullView {
		t.Errorf("Bounds = %v, want full view", o.Bounds)
	}
	if o.Width != 800 || o.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", o.Width, o.Height)
	}
	if o.MaxIter != 300 || o.Density != 1.0 || o.DPI != 300 {
		t.Errorf("max_iter/density/dpi = %d/%g/%d, want 300/1/300", o.MaxIter, o.Density, o.DPI)
	}
	if o.Format != "png" {
		t.Errorf("Format = %q, want png", o.Format)
	}
}

func TestSetDefaultsRegion(t *testing.T) {
	o := Options{Region: "seahorse-valley"}
	o.SetDefaults()
	want, _ := mandel.LookupRegion("seahorse-valley")
	if o.Bounds != want {
		t.Errorf("Bounds = %v, want %v", o.Bounds, want)
	}

	// Explicit bounds win over the region.
	custom := mandel.Bounds{XMin: -1, XMax: 0, YMin: 0, YMax: 1}
	o = Options{Region: "seahorse-valley", Bounds: custom}
	o.SetDefaults()
	if o.Bounds != custom {
		t.Errorf("Bounds = %v, want %v", o.Bounds, custom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		code   errs.Code
	}{
		{"valid", func(o *Options) {}, ""},
		{"unknown region", func(o *Options) { o.Region = "atlantis" }, errs.ErrCodeInvalidArgument},
		{"negative width", func(o *Options) { o.Width = -1 }, errs.ErrCodeInvalidArgument},
		{"negative density", func(o *Options) { o.Density = -2 }, errs.ErrCodeInvalidArgument},
		{"tiny density", func(o *Options) { o.Density = 0.001 }, errs.ErrCodeInvalidArgument},
		{"negative dpi", func(o *Options) { o.DPI = -72 }, errs.ErrCodeInvalidArgument},
		{"bad format", func(o *Options) { o.Format = "gif" }, errs.ErrCodeInvalidArgument},
		{"negative workers", func(o *Options) { o.Workers = -1 }, errs.ErrCodeInvalidArgument},
		{"inverted bounds", func(o *Options) {
			o.Bounds = mandel.Bounds{XMin: 1, XMax: -2, YMin: -1, YMax: 1}
		}, errs.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := smallOptions()
			tt.modify(&o)
			o.SetDefaults()
			err := o.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestScaled(t *testing.T) {
	o := Options{Width: 800, Height: 600, Density: 2}
	w, h, err := o.Scaled()
	if err != nil {
		t.Fatal(err)
	}
	if w != 1600 || h != 1200 {
		t.Errorf("Scaled() = %dx%d, want 1600x1200", w, h)
	}
}

func TestArtifactKeyOptsIgnoresWorkers(t *testing.T) {
	a := smallOptions()
	a.SetDefaults()
	b := a
	b.Workers = 7

	k := cache.NewDefaultKeyer()
	if k.ArtifactKey(a.ArtifactKeyOpts()) != k.ArtifactKey(b.ArtifactKeyOpts()) {
		t.Error("worker count should not change the cache key")
	}

	// Same scaled size through different density is the same artifact.
	c := a
	c.Width, c.Height, c.Density = 20, 15, 2
	if k.ArtifactKey(a.ArtifactKeyOpts()) != k.ArtifactKey(c.ArtifactKeyOpts()) {
		t.Error("equal scaled sizes should share a cache key")
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	opts := smallOptions()
	opts.Density = 2
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ID == "" {
		t.Error("result should have an ID")
	}
	if res.Width != 80 || res.Height != 60 {
		t.Errorf("size = %dx%d, want 80x60", res.Width, res.Height)
	}
	if res.CacheHit {
		t.Error("NullCache run should not be a cache hit")
	}
	if res.Stats.Bytes != len(res.Data) {
		t.Errorf("Stats.Bytes = %d, want %d", res.Stats.Bytes, len(res.Data))
	}

	dpiX, dpiY, err := export.ReadPNGResolution(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("ReadPNGResolution: %v", err)
	}
	if dpiX != 300 || dpiY != 300 {
		t.Errorf("dpi = %d/%d, want 300", dpiX, dpiY)
	}
}

func TestExecuteUsesCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, quietLogger())
	defer r.Close()

	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	first, err := r.Execute(ctx, smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, smallOptions())
	if err != nil {
		t.Fatal(err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("cached artifact differs from rendered one")
	}
	if first.ID == second.ID {
		t.Error("each run should get its own ID")
	}
	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks hit/miss/set = %d/%d/%d, want 1/1/1", hooks.hits, hooks.misses, hooks.sets)
	}

	refresh := smallOptions()
	refresh.Refresh = true
	third, err := r.Execute(ctx, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestExecuteWithNullCacheRendersEveryTime(t *testing.T) {
	r := NewRunner(cache.NewNullCache(), nil, quietLogger())
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	for i := 0; i < 2; i++ {
		res, err := r.Execute(context.Background(), smallOptions())
		if err != nil {
			t.Fatal(err)
		}
		if res.CacheHit {
			t.Errorf("run %d: CacheHit = true with caching disabled", i)
		}
	}
	if hooks.hits != 0 || hooks.misses != 2 {
		t.Errorf("hooks hit/miss = %d/%d, want 0/2", hooks.hits, hooks.misses)
	}
}

func TestExecuteTIFF(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	opts := smallOptions()
	opts.Format = export.FormatTIFF
	opts.DPI = 150

	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	dpiX, dpiY, err := export.ReadTIFFResolution(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("ReadTIFFResolution: %v", err)
	}
	if dpiX != 150 || dpiY != 150 {
		t.Errorf("dpi = %d/%d, want 150", dpiX, dpiY)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(ctx, smallOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute with cancelled context = %v, want context.Canceled", err)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Export(context.Background(), path, smallOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, res.Data) {
		t.Error("file contents differ from result data")
	}
}

func TestExportMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")

	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Export(context.Background(), path, smallOptions())
	if !errs.Is(err, errs.ErrCodeIO) {
		t.Errorf("Export into missing dir = %v, want IO_ERROR", err)
	}
	if _, statErr := os.Stat(filepath.Dir(path)); !os.IsNotExist(statErr) {
		t.Error("Export should not create directories")
	}
}

func TestExportMissingDirectorySkipsRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, quietLogger())
	if _, err := r.Export(ctx, path, smallOptions()); !errs.Is(err, errs.ErrCodeIO) {
		t.Fatalf("Export = %v, want IO_ERROR", err)
	}
	if hooks.hits+hooks.misses+hooks.sets != 0 {
		t.Errorf("cache was consulted before the directory check: %+v", hooks)
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }
