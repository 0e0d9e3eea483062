package healthcheck

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildinginthecloud/site/internal/probe"
)

func TestConfigURLs(t *testing.T) {
	c := Config{SourceDomain: "buildinginthecloud.com"}
	assert.Equal(t, []string{
		"http://buildinginthecloud.com",
		"https://buildinginthecloud.com",
		"https://www.buildinginthecloud.com",
	}, c.URLs())
}

func TestReportHealthy(t *testing.T) {
	ok := probe.Result{Status: probe.Healthy}
	bad := probe.Result{Status: probe.Error}

	assert.True(t, Report{Results: []probe.Result{ok, ok, ok}}.Healthy())
	// ceil(0.8 * 3) = 3
	assert.False(t, Report{Results: []probe.Result{ok, ok, bad}}.Healthy())
	assert.True(t, Report{Results: []probe.Result{ok, ok, ok, ok, bad}}.Healthy())
}

// rewriteTransport sends every request to a local test server while keeping
// the original Host header.
func rewriteTransport(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	addr := srv.Listener.Addr().String()
	dialer := &net.Dialer{Timeout: time.Second}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		},
	}
}

func TestCheckerRun(t *testing.T) {
	var host atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host.Store(r.Host)
		http.Redirect(w, r, "https://yvovanzee.nl/", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	cfg := Config{SourceDomain: "source.test", TargetDomain: "yvovanzee.nl", Timeout: time.Second}
	checker := New(cfg, probe.NewWithClient(rewriteTransport(t, srv)), nil)

	// only the plain http URL is reachable through the rewrite, https URLs fail
	report := checker.Run(context.Background())
	require.Len(t, report.Results, 3)
	assert.Equal(t, probe.Healthy, report.Results[0].Status)
	assert.Equal(t, "source.test", host.Load())
	assert.Equal(t, probe.Error, report.Results[1].Status)
	assert.Equal(t, probe.Error, report.Results[2].Status)
	assert.Equal(t, 1, report.HealthyCount())
	assert.False(t, report.Healthy())

	var out bytes.Buffer
	Print(&out, report)
	assert.Contains(t, out.String(), "Health check for source.test -> yvovanzee.nl")
	assert.Contains(t, out.String(), "http://source.test (")
	assert.Contains(t, out.String(), "-> https://yvovanzee.nl/")
	assert.Contains(t, out.String(), "Overall Health: UNHEALTHY (1/3)")
}

func TestPrintHealthy(t *testing.T) {
	report := Report{
		Source: "a.test",
		Target: "b.test",
		Results: []probe.Result{
			{URL: "http://a.test", Status: probe.Healthy, Location: "https://b.test/", Duration: 12 * time.Millisecond},
			{URL: "https://a.test", Status: probe.Healthy, Location: "https://b.test/"},
			{URL: "https://www.a.test", Status: probe.Healthy, Location: "https://b.test/"},
		},
	}

	var out bytes.Buffer
	Print(&out, report)
	assert.Contains(t, out.String(), "[OK]   http://a.test (12ms) -> https://b.test/")
	assert.Contains(t, out.String(), "Overall Health: HEALTHY (3/3)")
}
