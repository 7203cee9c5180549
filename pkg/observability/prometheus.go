package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	registry *prometheus.Registry

	CompilesTotal   *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	StageDuration   *prometheus.HistogramVec
	GraphNodes      prometheus.Histogram
	GraphEdges      prometheus.Histogram
	WarningsTotal   *prometheus.CounterVec

	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	CacheOpsTotal *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrorsTotal     *prometheus.CounterVec
}

// NewPrometheus registers relnet collectors on reg. A nil reg creates a
// private registry.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	sizeBuckets := []float64{1, 10, 50, 100, 500, 1000, 5000}

	return &Prometheus{
		registry: reg,
		CompilesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_compiles_total",
			Help: "Total number of compilations",
		}, []string{"status"}),
		CompileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relnet_compile_duration_seconds",
			Help:    "Compilation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relnet_stage_duration_seconds",
			Help:    "Duration of each compilation stage in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		GraphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relnet_graph_nodes",
			Help:    "Number of nodes per compiled graph",
			Buckets: sizeBuckets,
		}),
		GraphEdges: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relnet_graph_edges",
			Help:    "Number of edges per compiled graph",
			Buckets: sizeBuckets,
		}),
		WarningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_warnings_total",
			Help: "Total number of non-fatal compilation warnings",
		}, []string{"kind"}),
		RendersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_renders_total",
			Help: "Total number of rendered artifacts",
		}, []string{"format", "status"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relnet_render_duration_seconds",
			Help:    "Render duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		CacheOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_cache_operations_total",
			Help: "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_http_client_requests_total",
			Help: "Outgoing HTTP requests by host and status code",
		}, []string{"host", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relnet_http_client_request_duration_seconds",
			Help:    "Outgoing HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		HTTPErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relnet_http_client_errors_total",
			Help: "Outgoing HTTP requests that failed without a response",
		}, []string{"host"}),
	}
}

// Registry returns the underlying Prometheus registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnCompileStart(context.Context, string) {}

func (p *Prometheus) OnStage(_ context.Context, _ string, stage string, d time.Duration) {
	p.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prometheus) OnCompileComplete(_ context.Context, _ string, nodes, edges int, d time.Duration, err error) {
	p.CompilesTotal.WithLabelValues(status(err)).Inc()
	p.CompileDuration.Observe(d.Seconds())
	if err == nil {
		p.GraphNodes.Observe(float64(nodes))
		p.GraphEdges.Observe(float64(edges))
	}
}

func (p *Prometheus) OnWarning(_ context.Context, kind string) {
	p.WarningsTotal.WithLabelValues(kind).Inc()
}

func (p *Prometheus) OnRenderStart(context.Context, string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	p.RendersTotal.WithLabelValues(format, status(err)).Inc()
	p.RenderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	p.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _ string, host, _ string, code int, d time.Duration) {
	p.HTTPRequestsTotal.WithLabelValues(host, strconv.Itoa(code)).Inc()
	p.HTTPRequestDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _ string, host, _ string, _ error) {
	p.HTTPErrorsTotal.WithLabelValues(host).Inc()
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
