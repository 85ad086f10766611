package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	hrmAuth "github.com/MrEthical07/hrmAuth"
	"github.com/MrEthical07/hrmAuth/internal/stubapi"
)

type fakeSource struct {
	snapshot hrmAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() hrmAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: hrmAuth.MetricsSnapshot{
			Counters:   map[hrmAuth.MetricID]uint64{},
			Histograms: map[hrmAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
	var nilExp *PrometheusExporter
	if nilExp.Render() != "" {
		t.Fatal("nil exporter must render nothing")
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: hrmAuth.MetricsSnapshot{
			Counters: map[hrmAuth.MetricID]uint64{
				hrmAuth.MetricLoginSuccess:     7,
				hrmAuth.MetricRefreshCoalesced: 15,
			},
			Histograms: map[hrmAuth.MetricID][]uint64{
				hrmAuth.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"hrm_login_success_total 7",
		"hrm_refresh_coalesced_total 15",
		"hrm_forced_logout_total 0",
		"hrm_request_latency_seconds_bucket{le=\"0.025\"} 1",
		"hrm_request_latency_seconds_bucket{le=\"1\"} 21",
		"hrm_request_latency_seconds_bucket{le=\"+Inf\"} 36",
		"hrm_request_latency_seconds_count 36",
		"hrm_audit_dropped_total 2",
		"# TYPE hrm_request_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if out != exp.Render() {
		t.Fatal("render is not deterministic")
	}
}

func TestRenderFromRealClient(t *testing.T) {
	cfg := hrmAuth.DefaultConfig()
	c, err := hrmAuth.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	c.RecordGuard(hrmAuth.GuardLogin)
	c.RecordGuard(hrmAuth.GuardLogin)
	out := NewPrometheusExporter(c).Render()
	if !strings.Contains(out, "hrm_guard_login_total 2") {
		t.Fatalf("expected guard counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: hrmAuth.MetricsSnapshot{
			Counters:   map[hrmAuth.MetricID]uint64{hrmAuth.MetricLoginSuccess: 1},
			Histograms: map[hrmAuth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: hrmAuth.MetricsSnapshot{
			Counters: map[hrmAuth.MetricID]uint64{
				hrmAuth.MetricLoginSuccess:     1000,
				hrmAuth.MetricLoginFailure:     40,
				hrmAuth.MetricRefreshSuccess:   800,
				hrmAuth.MetricRefreshFailure:   10,
				hrmAuth.MetricRefreshCoalesced: 3000,
				hrmAuth.MetricGuardAdmit:       20000,
				hrmAuth.MetricForcedLogout:     3,
			},
			Histograms: map[hrmAuth.MetricID][]uint64{
				hrmAuth.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

// slowRefresh holds refresh calls long enough for concurrent 401s to join one flight.
type slowRefresh struct {
	next  http.RoundTripper
	delay time.Duration
}

func (s slowRefresh) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/auth/token/refresh") {
		time.Sleep(s.delay)
	}
	return s.next.RoundTrip(req)
}

func TestRenderCountsCoalescedRefreshesFromClient(t *testing.T) {
	api, err := stubapi.New(stubapi.Config{Secret: []byte("export-secret"), AccessTTL: time.Minute})
	if err != nil {
		t.Fatalf("stub: %v", err)
	}
	if err := api.Seed("export-password"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	cfg := hrmAuth.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	client, err := hrmAuth.New().
		WithConfig(cfg).
		WithHTTPClient(&http.Client{Transport: slowRefresh{next: http.DefaultTransport, delay: 100 * time.Millisecond}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Login(ctx, hrmAuth.Credentials{Username: "employee", Password: "export-password"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	api.RevokeAccessTokens()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(ctx, "dashboard")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("request: %v", err)
		}
	}
	if api.RefreshCalls() != 1 {
		t.Fatalf("expected one refresh call, got %d", api.RefreshCalls())
	}

	coalesced := client.MetricsSnapshot().Counters[hrmAuth.MetricRefreshCoalesced]
	if coalesced == 0 || coalesced > workers-1 {
		t.Fatalf("coalesced refreshes = %d, want 1..%d", coalesced, workers-1)
	}
	out := NewPrometheusExporter(client).Render()
	want := "hrm_refresh_coalesced_total " + strconv.FormatUint(coalesced, 10)
	if !strings.Contains(out, want) {
		t.Fatalf("missing %q in:\n%s", want, out)
	}
	if !strings.Contains(out, "hrm_refresh_success_total 1") {
		t.Fatalf("expected one successful refresh in:\n%s", out)
	}
}
