package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/observability"
	"github.com/matzehuels/mandel/pkg/pipeline"
)

const (
	defaultAddr      = ":8080"
	defaultMaxPixels = 4096 * 4096
	shutdownTimeout  = 10 * time.Second
	headerRequestID  = "X-Request-ID"
)

// serveCommand starts the HTTP render service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		maxPixels int
		workers   int
		noCache   bool
		cacheURL  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve renders over HTTP",
		Long: `Serve renders over HTTP.

Endpoints:
  GET /render.png    render as PNG
  GET /render.tiff   render as TIFF
  GET /regions       named regions as JSON
  GET /healthz       liveness check

Render query parameters: width, height, max_iter, density, dpi, region,
x_min, x_max, y_min, y_max, refresh. Unset parameters use the library
defaults (800x600, 300 iterations, density 1, 300 DPI).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache, cacheURL)
			if err != nil {
				return err
			}
			defer runner.Close()

			s := &server{runner: runner, logger: c.Logger, maxPixels: maxPixels, workers: workers}
			return s.listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().IntVar(&maxPixels, "max-pixels", defaultMaxPixels, "largest scaled image (width*height) a request may ask for")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel row workers per render (default: number of CPUs)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&cacheURL, "cache-url", "", "cache location: directory, redis://, or mongodb:// URL")

	return cmd
}

// =============================================================================
// Server
// =============================================================================

type server struct {
	runner    *pipeline.Runner
	logger    *log.Logger
	maxPixels int
	workers   int
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func (s *server) listen(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withLogger)
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/regions", s.handleRegions)
	r.Get("/render.png", s.handleRender(export.FormatPNG))
	r.Get("/render.tiff", s.handleRender(export.FormatTIFF))
	return r
}

// withLogger makes the server logger available to handlers.
func (s *server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), s.logger)))
	})
}

// requestID assigns each request an ID, reusing a client-supplied one.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// observe reports requests and responses to the HTTP hooks.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		id := requestIDFrom(r.Context())
		start := time.Now()
		hooks.OnRequest(r.Context(), id, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), id, r.Method, r.URL.Path, status, time.Since(start))
	})
}

func (s *server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mandel.Regions())
}

func (s *server) handleRender(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := loggerFromContext(ctx).With("request_id", requestIDFrom(ctx))

		opts, err := renderOptionsFromQuery(r.URL.Query())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		opts.Format = format
		opts.Workers = s.workers
		opts.Logger = logger

		opts.SetDefaults()
		if err := opts.Validate(); err != nil {
			s.fail(w, r, err)
			return
		}
		sw, sh, _ := opts.Scaled()
		if s.maxPixels > 0 && sw > s.maxPixels/sh {
			s.fail(w, r, errs.New(errs.ErrCodeInvalidArgument,
				"%dx%d exceeds the limit of %d pixels", sw, sh, s.maxPixels))
			return
		}

		result, err := s.runner.Execute(ctx, opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		cacheStatus := "MISS"
		if result.CacheHit {
			cacheStatus = "HIT"
		}
		h := w.Header()
		h.Set("Content-Type", export.ContentTypes[format])
		h.Set("Content-Length", strconv.Itoa(len(result.Data)))
		h.Set("X-Render-ID", result.ID)
		h.Set("X-Cache", cacheStatus)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
	}
}

// renderOptionsFromQuery parses render parameters. Absent parameters stay
// zero and take the pipeline defaults.
func renderOptionsFromQuery(q url.Values) (pipeline.Options, error) {
	var (
		opts pipeline.Options
		err  error
	)
	intParam := func(name string, dst *int) {
		if err != nil || !q.Has(name) {
			return
		}
		v, perr := strconv.Atoi(q.Get(name))
		if perr != nil {
			err = errs.Wrap(errs.ErrCodeInvalidArgument, perr, "invalid %s", name)
			return
		}
		if v <= 0 {
			err = errs.New(errs.ErrCodeInvalidArgument, "%s must be positive, got %d", name, v)
			return
		}
		*dst = v
	}
	floatParam := func(name string, dst *float64) {
		if err != nil || !q.Has(name) {
			return
		}
		v, perr := strconv.ParseFloat(q.Get(name), 64)
		if perr != nil {
			err = errs.Wrap(errs.ErrCodeInvalidArgument, perr, "invalid %s", name)
			return
		}
		*dst = v
	}

	intParam("width", &opts.Width)
	intParam("height", &opts.Height)
	intParam("max_iter", &opts.MaxIter)
	intParam("dpi", &opts.DPI)
	floatParam("density", &opts.Density)
	floatParam("x_min", &opts.Bounds.XMin)
	floatParam("x_max", &opts.Bounds.XMax)
	floatParam("y_min", &opts.Bounds.YMin)
	floatParam("y_max", &opts.Bounds.YMax)
	if err != nil {
		return opts, err
	}
	if opts.Density < 0 || (q.Has("density") && opts.Density == 0) {
		return opts, errs.New(errs.ErrCodeInvalidArgument, "density must be positive")
	}

	opts.Region = q.Get("region")
	opts.Refresh = q.Get("refresh") == "1" || q.Get("refresh") == "true"
	return opts, nil
}

// fail writes err as a JSON error body with a status derived from its code.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	id := requestIDFrom(r.Context())
	observability.HTTP().OnError(r.Context(), id, r.Method, r.URL.Path, err)

	status := http.StatusInternalServerError
	switch {
	case errs.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		return
	default:
		loggerFromContext(r.Context()).Error("render failed", "request_id", id, "error", err)
	}

	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, map[string]string{
		"error":      errs.UserMessage(err),
		"code":       string(code),
		"request_id": id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
