package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusPipelineHooks(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus(nil)

	p.OnCompileStart(ctx, "b1")
	p.OnStage(ctx, "b1", "classify", time.Millisecond)
	p.OnCompileComplete(ctx, "b1", 3, 3, time.Millisecond, nil)
	p.OnCompileComplete(ctx, "b2", 0, 0, time.Millisecond, errors.New("boom"))
	p.OnWarning(ctx, "image")
	p.OnWarning(ctx, "image")
	p.OnRenderComplete(ctx, "svg", time.Millisecond, nil)

	if got := testutil.ToFloat64(p.CompilesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("compiles{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.CompilesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("compiles{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.WarningsTotal.WithLabelValues("image")); got != 2 {
		t.Errorf("warnings{image} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.RendersTotal.WithLabelValues("svg", "ok")); got != 1 {
		t.Errorf("renders{svg,ok} = %v, want 1", got)
	}
}

func TestPrometheusCacheAndHTTPHooks(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus(nil)

	p.OnCacheHit(ctx, "graph")
	p.OnCacheMiss(ctx, "graph")
	p.OnCacheSet(ctx, "graph", 128)
	p.OnResponse(ctx, "GET", "example.org", "/", 200, time.Millisecond)
	p.OnError(ctx, "GET", "example.org", "/", errors.New("refused"))

	for _, result := range []string{"hit", "miss", "set"} {
		if got := testutil.ToFloat64(p.CacheOpsTotal.WithLabelValues("graph", result)); got != 1 {
			t.Errorf("cache{graph,%s} = %v, want 1", result, got)
		}
	}
	if got := testutil.ToFloat64(p.CacheBytes.WithLabelValues("graph")); got != 128 {
		t.Errorf("cache bytes = %v, want 128", got)
	}
	if got := testutil.ToFloat64(p.HTTPRequestsTotal.WithLabelValues("example.org", "200")); got != 1 {
		t.Errorf("http{example.org,200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.HTTPErrorsTotal.WithLabelValues("example.org")); got != 1 {
		t.Errorf("http errors = %v, want 1", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus(nil)
	p.OnCompileComplete(context.Background(), "b1", 1, 0, time.Millisecond, nil)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `relnet_compiles_total{status="ok"} 1`) {
		t.Errorf("metrics output missing compile counter:\n%s", body)
	}
}
