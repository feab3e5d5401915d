package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mandel/pkg/observability"
)

// logHooks reports observability events as debug log records.
type logHooks struct {
	logger *log.Logger
}

func (h *logHooks) OnRenderStart(_ context.Context, width, height, maxIter int) {
	h.logger.Debug("render start", "width", width, "height", height, "max_iter", maxIter)
}

func (h *logHooks) OnRenderComplete(_ context.Context, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "width", width, "height", height, "duration", d, "error", err)
		return
	}
	h.logger.Debug("render complete", "width", width, "height", height, "duration", d)
}

func (h *logHooks) OnEncodeStart(_ context.Context, format string) {
	h.logger.Debug("encode start", "format", format)
}

func (h *logHooks) OnEncodeComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("encode failed", "format", format, "duration", d, "error", err)
		return
	}
	h.logger.Debug("encode complete", "format", format, "bytes", size, "duration", d)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *logHooks) OnRequest(_ context.Context, requestID, method, path string) {
	h.logger.Debug("request", "id", requestID, "method", method, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, requestID, method, path string, status int, d time.Duration) {
	h.logger.Debug("response", "id", requestID, "method", method, "path", path, "status", status, "duration", d)
}

func (h *logHooks) OnError(_ context.Context, requestID, method, path string, err error) {
	h.logger.Debug("request error", "id", requestID, "method", method, "path", path, "error", err)
}

var (
	_ observability.RenderHooks = (*logHooks)(nil)
	_ observability.CacheHooks  = (*logHooks)(nil)
	_ observability.HTTPHooks   = (*logHooks)(nil)
)
