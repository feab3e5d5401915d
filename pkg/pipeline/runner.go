package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mandel/pkg/cache"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/observability"
)

const artifactKeyType = "artifact"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute renders and encodes the image described by opts, serving it from
// the cache when an identical render was stored earlier.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger(opts)

	sw, sh, _ := opts.Scaled()
	result := &Result{
		ID:     uuid.NewString(),
		Format: opts.Format,
		Width:  sw,
		Height: sh,
	}
	key := r.Keyer.ArtifactKey(opts.ArtifactKeyOpts())

	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			logger.Warn("cache lookup failed", "error", err)
		}
		if hit {
			observability.Cache().OnCacheHit(ctx, artifactKeyType)
			result.Data = data
			result.CacheHit = true
			result.Stats.Bytes = len(data)
			logger.Info("served from cache",
				"id", result.ID,
				"width", sw,
				"height", sh,
				"bytes", len(data))
			return result, nil
		}
		observability.Cache().OnCacheMiss(ctx, artifactKeyType)
	}

	hooks := observability.Render()

	logger.Debug("rendering",
		"id", result.ID,
		"bounds", opts.Bounds.String(),
		"width", sw,
		"height", sh,
		"max_iter", opts.MaxIter,
		"workers", opts.Workers)
	renderStart := time.Now()
	hooks.OnRenderStart(ctx, sw, sh, opts.MaxIter)
	img, err := export.Render(ctx, opts.Settings())
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, sw, sh, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	encodeStart := time.Now()
	hooks.OnEncodeStart(ctx, opts.Format)
	data, err := export.EncodeBytes(img, opts.Format, opts.DPI)
	result.Stats.EncodeTime = time.Since(encodeStart)
	hooks.OnEncodeComplete(ctx, opts.Format, len(data), result.Stats.EncodeTime, err)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	result.Data = data
	result.Stats.Bytes = len(data)

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		logger.Warn("cache store failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, artifactKeyType, len(data))
	}

	logger.Info("rendered image",
		"id", result.ID,
		"width", sw,
		"height", sh,
		"max_iter", opts.MaxIter,
		"format", opts.Format,
		"bytes", len(data),
		"duration", result.Stats.RenderTime+result.Stats.EncodeTime)

	return result, nil
}

// Export runs Execute and writes the image to path. The parent directory must
// already exist.
func (r *Runner) Export(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := export.CheckOutputDir(path); err != nil {
		return nil, err
	}
	result, err := r.Execute(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := export.WriteFile(path, result.Data); err != nil {
		return nil, err
	}
	r.logger(opts).Debug("wrote file", "path", path, "bytes", len(result.Data))
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// logger prefers a logger set on the options over the runner's own.
func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
