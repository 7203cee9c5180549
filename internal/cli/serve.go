package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relnet/pkg/buildinfo"
	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/image"
	"github.com/matzehuels/relnet/pkg/observability"
	"github.com/matzehuels/relnet/pkg/pipeline"
)

const (
	defaultAddr = ":8080"

	// maxBodyBytes caps the size of an uploaded document.
	maxBodyBytes = 4 << 20

	// keyPrefix scopes cache keys when the backend is shared.
	keyPrefix = appName + ":"

	shutdownTimeout = 30 * time.Second
)

// imageFlags are the operator's image settings. Request documents cannot
// override them.
type imageFlags struct {
	enabled  bool
	provider string
	dir      string
	endpoint string
}

func (f *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.enabled, "images", false, "allow requests to attach node images (?images=true)")
	cmd.Flags().StringVar(&f.provider, "image-provider", image.ProviderFile, "image provider: file or wiki")
	cmd.Flags().StringVar(&f.dir, "image-dir", image.DefaultDir, "image directory")
	cmd.Flags().StringVar(&f.endpoint, "wiki-endpoint", "", "MediaWiki API endpoint for the wiki provider")
}

// config returns the image settings handed to every compile, or nil when
// images are disabled.
func (f imageFlags) config() (map[string]any, error) {
	if !f.enabled {
		return nil, nil
	}
	cfg := map[string]any{"provider": f.provider, "dir": f.dir}
	if f.endpoint != "" {
		cfg["endpoint"] = f.endpoint
	}
	if _, err := image.ParseSettings(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "image flags")
	}
	return cfg, nil
}

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		flags  cacheFlags
		images imageFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Serve the compiler over HTTP.

Endpoints:
  POST /v1/compile                   compile a document, respond with the graph model
  POST /v1/render?format=&layout=    compile and render, respond with the artifact
  GET  /healthz                      liveness probe
  GET  /metrics                      Prometheus metrics

The request body is YAML unless the Content-Type names TOML or ?input=toml is given.
Images are only attached when the server runs with --images; the provider and
directory come from the flags and config.images in a request is ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, flags, images)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	flags.register(cmd)
	images.register(cmd)
	completeFlagValues(cmd, imageFlagValues())

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, flags cacheFlags, images imageFlags) error {
	imageCfg, err := images.config()
	if err != nil {
		return err
	}
	backend, err := c.newCache(ctx, flags)
	if err != nil {
		return err
	}

	var keyer cache.Keyer
	if flags.redis != "" || flags.mongo != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), keyPrefix)
	}
	runner := pipeline.NewRunner(backend, keyer, c.Logger)
	defer runner.Close()

	metrics := observability.NewPrometheus(nil)
	observability.SetPipelineHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetHTTPHooks(metrics)
	defer observability.Reset()

	srv := &http.Server{
		Addr:         addr,
		Handler:      newServer(runner, c.Logger, metrics.Handler(), imageCfg).routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("server starting", "addr", addr, "version", buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	c.Logger.Info("server exited")
	return nil
}

// =============================================================================
// Server
// =============================================================================

type server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	metrics http.Handler
	// images is nil when the operator has not enabled images.
	images map[string]any
}

func newServer(runner *pipeline.Runner, logger *log.Logger, metrics http.Handler, images map[string]any) *server {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	return &server{runner: runner, logger: logger, metrics: metrics, images: images}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/render", s.handleRender)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(withLogger(r.Context(), l))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		l.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *server) handleCompile(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.runner.Compile(r.Context(), doc, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Build-ID", res.BuildID)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	opts.Format = q.Get("format")
	opts.Layout = q.Get("layout")
	if opts.Detailed, err = queryBool(q.Get("detailed")); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), doc, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType(res.Format))
	w.Header().Set("X-Build-ID", res.BuildID)
	w.Header().Set("X-Cache", cacheStatus(res.CacheInfo.RenderHit))
	w.Header().Set("X-Warnings", strconv.Itoa(len(res.Warnings)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifact)
}

// =============================================================================
// Request decoding
// =============================================================================

// readDocument parses the body as YAML or TOML. ?input= wins over the
// Content-Type header.
func readDocument(r *http.Request) (*document.Document, error) {
	format := document.FormatYAML
	if in := r.URL.Query().Get("input"); in != "" {
		f, err := document.ParseFormat(in)
		if err != nil {
			return nil, err
		}
		format = f
	} else if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/toml", "text/toml", "application/x-toml":
			format = document.FormatTOML
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document exceeds %d bytes", maxBodyBytes)
	}
	return document.Parse(data, format)
}

// requestOptions reads the compile options shared by both endpoints. Images
// are off unless the request asks for them and the server allows it.
func (s *server) requestOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	images, err := queryBool(q.Get("images"))
	if err != nil {
		return pipeline.Options{}, err
	}
	if images && s.images == nil {
		return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "image acquisition is disabled on this server")
	}
	strict, err := queryBool(q.Get("strict_images"))
	if err != nil {
		return pipeline.Options{}, err
	}
	refresh, err := queryBool(q.Get("refresh"))
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Images:       &images,
		ImageConfig:  s.images,
		StrictImages: strict,
		Refresh:      refresh,
	}, nil
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", v)
	}
	return b, nil
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Code     errors.Code `json:"code,omitempty"`
	Message  string      `json:"message"`
	Location string      `json:"location,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		loggerFromContext(r.Context()).Error("request failed", "error", err)
	} else {
		loggerFromContext(r.Context()).Debug("request rejected", "error", err)
	}
	resp := errorResponse{Code: errors.GetCode(err), Message: errors.UserMessage(err)}
	if loc, ok := errors.GetLocation(err); ok {
		resp.Location = loc.String()
	}
	writeJSON(w, status, resp)
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeStructure, errors.ErrCodeConfig:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeImageProvider, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatPNG:
		return "image/png"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	case pipeline.FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
