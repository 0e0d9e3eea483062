// Package probe issues single HTTP requests without following redirects and
// classifies the answer as a redirect to an expected domain.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

// Status is the classification of a probe.
type Status string

const (
	// Healthy means a redirect to the expected target.
	Healthy Status = "healthy"
	// Unhealthy means a redirect somewhere else.
	Unhealthy Status = "unhealthy"
	// Error means no redirect or no response at all.
	Error Status = "error"
)

// RedirectCodes are the status codes accepted as a redirect.
var RedirectCodes = []int{
	http.StatusMovedPermanently,
	http.StatusFound,
	http.StatusTemporaryRedirect,
	http.StatusPermanentRedirect,
}

// IsRedirect reports whether code is one of RedirectCodes.
func IsRedirect(code int) bool {
	for _, c := range RedirectCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Classify returns the status of a response with code and location when
// target is the expected redirect domain.
func Classify(code int, location, target string) Status {
	switch {
	case !IsRedirect(code):
		return Error
	case location != "" && strings.Contains(location, target):
		return Healthy
	default:
		return Unhealthy
	}
}

// Result is the outcome of one probe.
type Result struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"statusCode,omitempty"`
	Location   string        `json:"location,omitempty"`
	Duration   time.Duration `json:"responseTime"`
	Status     Status        `json:"status"`
	Err        string        `json:"error,omitempty"`
}

// OK reports whether the probe saw a redirect to the target.
func (r Result) OK() bool {
	return r.Status == Healthy
}

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Prober checks URLs for redirects.
type Prober struct {
	client *http.Client
}

// New returns a Prober whose requests time out after timeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	return NewWithClient(&http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
		Timeout: timeout,
	})
}

// NewWithClient wraps client. Redirects are never followed.
func NewWithClient(client *http.Client) *Prober {
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Prober{client: &c}
}

// Check requests url and classifies the response against target.
func (p *Prober) Check(ctx context.Context, url, target string) Result {
	res := Result{URL: url, Status: Error}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	req.Header.Set("User-Agent", "buildinginthecloud-probe/1.0")

	start := time.Now()
	resp, err := p.client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = describe(err)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	res.StatusCode = resp.StatusCode
	res.Location = resp.Header.Get("Location")
	res.Status = Classify(res.StatusCode, res.Location, target)
	return res
}

// CheckAll probes urls in order.
func (p *Prober) CheckAll(ctx context.Context, urls []string, target string) []Result {
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		results = append(results, p.Check(ctx, u, target))
	}
	return results
}

func describe(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "request timeout"
	}
	return err.Error()
}

// CountHealthy returns the number of healthy results.
func CountHealthy(results []Result) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Quorum returns ceil(n * ratio), the number of passes needed out of n.
func Quorum(n int, ratio float64) int {
	return int(math.Ceil(float64(n) * ratio))
}

// Summary formats a results line such as "3/3".
func Summary(ok, total int) string {
	return fmt.Sprintf("%d/%d", ok, total)
}
