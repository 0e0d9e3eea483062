// Package healthcheck verifies that the source domain still redirects to
// the target domain. It is meant for monitoring and CI pipelines.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/probe"
)

// HealthyRatio is the share of URLs that must redirect correctly.
const HealthyRatio = 0.8

// Config configures a health check.
type Config struct {
	SourceDomain string
	TargetDomain string
	Timeout      time.Duration
}

// URLs returns the URLs probed for c.
func (c Config) URLs() []string {
	return []string{
		"http://" + c.SourceDomain,
		"https://" + c.SourceDomain,
		"https://www." + c.SourceDomain,
	}
}

// Report is the outcome of a health check.
type Report struct {
	Source  string
	Target  string
	Results []probe.Result
}

// HealthyCount returns the number of URLs that redirected to the target.
func (r Report) HealthyCount() int {
	return probe.CountHealthy(r.Results)
}

// Healthy reports whether at least HealthyRatio of the URLs are healthy.
func (r Report) Healthy() bool {
	return r.HealthyCount() >= probe.Quorum(len(r.Results), HealthyRatio)
}

// Checker runs health checks.
type Checker struct {
	config Config
	prober *probe.Prober
	logger *zap.Logger
}

// New returns a Checker. A nil logger disables logging.
func New(config Config, prober *probe.Prober, logger *zap.Logger) *Checker {
	if prober == nil {
		prober = probe.New(config.Timeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{config: config, prober: prober, logger: logger}
}

// Run probes every URL of the configuration.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{Source: c.config.SourceDomain, Target: c.config.TargetDomain}
	for _, url := range c.config.URLs() {
		res := c.prober.Check(ctx, url, c.config.TargetDomain)
		c.logger.Debug("probed",
			zap.String("url", url),
			zap.Int("statusCode", res.StatusCode),
			zap.String("location", res.Location),
			zap.Duration("took", res.Duration),
			zap.String("status", string(res.Status)))
		report.Results = append(report.Results, res)
	}
	return report
}

// Print writes report in human readable form.
func Print(w io.Writer, report Report) {
	fmt.Fprintf(w, "Health check for %s -> %s\n", report.Source, report.Target)
	for _, res := range report.Results {
		location := res.Location
		if location == "" {
			location = "N/A"
		}
		fmt.Fprintf(w, "%s %s (%dms) -> %s\n", marker(res.Status), res.URL, res.Duration.Milliseconds(), location)
		if res.Err != "" {
			fmt.Fprintf(w, "   Error: %s\n", res.Err)
		}
	}

	overall := "UNHEALTHY"
	if report.Healthy() {
		overall = "HEALTHY"
	}
	fmt.Fprintf(w, "\nOverall Health: %s (%s)\n", overall, probe.Summary(report.HealthyCount(), len(report.Results)))
}

func marker(s probe.Status) string {
	switch s {
	case probe.Healthy:
		return "[OK]  "
	case probe.Unhealthy:
		return "[WARN]"
	default:
		return "[FAIL]"
	}
}
