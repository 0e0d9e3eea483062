// Package validate runs the post-deployment checks of the domain redirect:
// stack status, DNS propagation, TLS certificate, redirect behaviour,
// CloudFront health, response times, the hosted zone and optionally the
// mail records.
package validate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/probe"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// Thresholds of the individual checks.
const (
	DefaultTimeout     = 10 * time.Second
	RedirectPassRatio  = 0.8
	ExcellentResponse  = time.Second
	AcceptableResponse = 2 * time.Second
	CertificateWarning = 30 * 24 * time.Hour
)

// DefaultDNSServers are the public resolvers used to check propagation.
var DefaultDNSServers = []string{
	"8.8.8.8",
	"1.1.1.1",
	"208.67.222.222",
	"9.9.9.9",
}

// Config configures a validation run.
type Config struct {
	SourceDomain string
	TargetDomain string
	StackName    string
	Timeout      time.Duration
	DNSServers   []string
	CheckMail    bool
}

// DefaultConfig returns the configuration for an environment.
func DefaultConfig(environment string) Config {
	return Config{
		SourceDomain: sitemeta.DomainName,
		TargetDomain: sitemeta.RedirectTarget,
		StackName:    sitemeta.RedirectStackName(environment),
		Timeout:      DefaultTimeout,
		DNSServers:   DefaultDNSServers,
	}
}

// Result is the outcome of a single check.
type Result struct {
	Name     string        `json:"test"`
	Passed   bool          `json:"success"`
	Message  string        `json:"message"`
	Details  any           `json:"details,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// CloudFormationAPI is the part of CloudFormation the checks use.
type CloudFormationAPI interface {
	awsenv.StackDescriber
	awsenv.StackResourceLister
}

// CloudFrontAPI is the part of CloudFront the checks use.
type CloudFrontAPI interface {
	GetDistribution(ctx context.Context, params *cloudfront.GetDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error)
}

// Route53API lists hosted zones.
type Route53API interface {
	route53.ListHostedZonesAPIClient
}

// Deps are the clients a Validator talks to. Nil network dependencies are
// replaced with real implementations.
type Deps struct {
	CloudFormation CloudFormationAPI
	CloudFront     CloudFrontAPI
	Route53        Route53API
	Resolver       func(server string) Resolver
	Certificate    CertificateFetcher
	Prober         *probe.Prober
	Logger         *zap.Logger
	Out            io.Writer
	Now            func() time.Time
}

// Validator runs the checks in order and collects their results.
type Validator struct {
	config  Config
	deps    Deps
	stack   *awsenv.Stack
	results []Result
}

// New returns a Validator for config.
func New(config Config, deps Deps) *Validator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if len(config.DNSServers) == 0 {
		config.DNSServers = DefaultDNSServers
	}
	if deps.Resolver == nil {
		timeout := config.Timeout
		deps.Resolver = func(server string) Resolver { return NewResolver(server, timeout) }
	}
	if deps.Certificate == nil {
		deps.Certificate = TLSCertificate(config.Timeout)
	}
	if deps.Prober == nil {
		deps.Prober = probe.New(config.Timeout)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Validator{config: config, deps: deps}
}

type step struct {
	title string
	run   func(context.Context)
}

// Run executes every check and returns the report.
func (v *Validator) Run(ctx context.Context) Report {
	v.printf("Starting post-deployment validation...\n")
	v.printf("Source Domain: %s\n", v.config.SourceDomain)
	v.printf("Target Domain: %s\n", v.config.TargetDomain)
	v.printf("Stack: %s\n\n", v.config.StackName)

	steps := []step{
		{"Validating stack deployment status...", v.checkStackStatus},
		{"Validating DNS propagation...", v.checkDNSPropagation},
		{"Validating SSL certificate...", v.checkCertificate},
		{"Validating redirect functionality...", v.checkRedirects},
		{"Validating CloudFront health...", v.checkCloudFront},
		{"Validating performance...", v.checkPerformance},
		{"Validating hosted zone...", v.checkHostedZone},
	}
	if v.config.CheckMail {
		steps = append(steps, step{"Validating mail records...", v.checkMailRecords})
	}

	for _, s := range steps {
		if ctx.Err() != nil {
			v.add(Result{Name: "Validation", Message: "validation cancelled", Details: ctx.Err().Error()})
			break
		}
		v.printf("%s\n", s.title)
		start := v.deps.Now()
		before := len(v.results)
		s.run(ctx)
		v.deps.Logger.Debug("step finished",
			zap.String("step", s.title),
			zap.Int("results", len(v.results)-before),
			zap.Duration("took", v.deps.Now().Sub(start)))
	}

	return Report{Results: append([]Result(nil), v.results...)}
}

// Results returns the results collected so far.
func (v *Validator) Results() []Result {
	return v.results
}

func (v *Validator) add(r Result) {
	v.results = append(v.results, r)
}

func (v *Validator) printf(format string, args ...any) {
	fmt.Fprintf(v.deps.Out, format, args...)
}

func (v *Validator) pass(format string, args ...any) {
	v.printf("  ✓ "+format+"\n", args...)
}

func (v *Validator) fail(format string, args ...any) {
	v.printf("  ✗ "+format+"\n", args...)
}

func (v *Validator) warn(format string, args ...any) {
	v.printf("  ! "+format+"\n", args...)
}

func (v *Validator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, v.config.Timeout)
}
