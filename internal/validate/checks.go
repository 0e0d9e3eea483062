package validate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/probe"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// Distribution id outputs, in lookup order.
var distributionOutputs = []string{"CloudFrontDistributionId", "DistributionId"}

const distributionResourceType = "AWS::CloudFront::Distribution"

var errNoClient = errors.New("client not configured")

func (v *Validator) describeStack(ctx context.Context) (awsenv.Stack, error) {
	if v.stack != nil {
		return *v.stack, nil
	}
	if v.deps.CloudFormation == nil {
		return awsenv.Stack{}, fmt.Errorf("CloudFormation %w", errNoClient)
	}
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	stack, err := awsenv.DescribeStack(ctx, v.deps.CloudFormation, v.config.StackName)
	if err != nil {
		return awsenv.Stack{}, err
	}
	v.stack = &stack
	return stack, nil
}

func (v *Validator) checkStackStatus(ctx context.Context) {
	const name = "Stack Status"

	stack, err := v.describeStack(ctx)
	if err != nil {
		v.add(Result{Name: name, Message: "Failed to check stack status", Details: err.Error()})
		v.fail("Failed to check stack status")
		return
	}

	r := Result{
		Name:    name,
		Passed:  stack.IsComplete(),
		Details: map[string]string{"status": stack.Status, "stackName": stack.Name},
	}
	if r.Passed {
		r.Message = "Stack deployed successfully"
		v.pass("Stack status: %s", stack.Status)
	} else {
		r.Message = "Stack status: " + stack.Status
		v.fail("Stack status: %s", stack.Status)
	}
	v.add(r)
}

type dnsAttempt struct {
	Server    string        `json:"server"`
	Addresses []string      `json:"addresses,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type lookupFunc func(ctx context.Context, r Resolver) ([]string, error)

func lookupIP(network, host string) lookupFunc {
	return func(ctx context.Context, r Resolver) ([]string, error) {
		ips, err := r.LookupIP(ctx, network, host)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(ips))
		for i, ip := range ips {
			out[i] = ip.String()
		}
		return out, nil
	}
}

func lookupCNAME(host string) lookupFunc {
	return func(ctx context.Context, r Resolver) ([]string, error) {
		cname, err := r.LookupCNAME(ctx, host)
		if err != nil {
			return nil, err
		}
		return []string{cname}, nil
	}
}

func (v *Validator) checkDNSPropagation(ctx context.Context) {
	source := v.config.SourceDomain
	v.checkRecord(ctx, "DNS A Record", "A", lookupIP("ip4", source))
	v.checkRecord(ctx, "DNS AAAA Record", "AAAA", lookupIP("ip6", source))
	v.checkRecord(ctx, "DNS CNAME Record (www)", "CNAME", lookupCNAME("www."+source))
}

// checkRecord passes when at least half of the DNS servers answer.
func (v *Validator) checkRecord(ctx context.Context, name, kind string, lookup lookupFunc) {
	servers := v.config.DNSServers
	attempts := make([]dnsAttempt, 0, len(servers))
	ok := 0

	for _, server := range servers {
		lctx, cancel := v.withTimeout(ctx)
		start := time.Now()
		values, err := lookup(lctx, v.deps.Resolver(server))
		took := time.Since(start)
		cancel()

		if err == nil && len(values) == 0 {
			err = errors.New("no records")
		}
		if err != nil {
			attempts = append(attempts, dnsAttempt{Server: server, Error: err.Error()})
			v.fail("%s record failed via %s", kind, server)
			continue
		}
		ok++
		attempts = append(attempts, dnsAttempt{Server: server, Addresses: values, Duration: took})
		v.pass("%s record resolved via %s: %s (%dms)", kind, server, strings.Join(values, ", "), took.Milliseconds())
	}

	r := Result{Name: name, Passed: ok >= probe.Quorum(len(servers), 0.5), Details: attempts}
	if r.Passed {
		r.Message = fmt.Sprintf("%s record resolved successfully (%d/%d servers)", kind, ok, len(servers))
	} else {
		r.Message = fmt.Sprintf("%s record resolution failed (%d/%d servers)", kind, ok, len(servers))
	}
	v.add(r)
}

type certificateDetails struct {
	Subject         string    `json:"subject"`
	Issuer          string    `json:"issuer"`
	DNSNames        []string  `json:"dnsNames,omitempty"`
	ValidFrom       time.Time `json:"validFrom"`
	ValidTo         time.Time `json:"validTo"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}

func (v *Validator) checkCertificate(ctx context.Context) {
	const name = "SSL Certificate"

	cctx, cancel := v.withTimeout(ctx)
	defer cancel()

	cert, err := v.deps.Certificate(cctx, v.config.SourceDomain)
	if err != nil {
		v.add(Result{Name: name, Message: "Failed to validate SSL certificate", Details: err.Error()})
		v.fail("Failed to validate SSL certificate")
		return
	}

	now := v.deps.Now()
	remaining := cert.NotAfter.Sub(now)
	details := certificateDetails{
		Subject:         cert.Subject.String(),
		Issuer:          cert.Issuer.String(),
		DNSNames:        cert.DNSNames,
		ValidFrom:       cert.NotBefore,
		ValidTo:         cert.NotAfter,
		DaysUntilExpiry: int(remaining / (24 * time.Hour)),
	}

	valid := !now.Before(cert.NotBefore) && !now.After(cert.NotAfter)
	r := Result{Name: name, Passed: valid, Details: details}
	switch {
	case !valid:
		r.Message = "SSL certificate invalid or expired"
		v.fail("SSL certificate invalid or expired")
	case remaining < CertificateWarning:
		r.Message = fmt.Sprintf("SSL certificate valid but expires in %d days", details.DaysUntilExpiry)
		v.warn("SSL certificate expires soon (%s)", cert.NotAfter.UTC().Format(time.RFC3339))
	default:
		r.Message = fmt.Sprintf("SSL certificate valid (expires in %d days)", details.DaysUntilExpiry)
		v.pass("SSL certificate valid (expires: %s)", cert.NotAfter.UTC().Format(time.RFC3339))
	}
	v.add(r)
}

// RedirectURLs returns the URLs whose redirects are verified for source.
func RedirectURLs(source string) []string {
	return []string{
		"http://" + source,
		"https://" + source,
		"http://www." + source,
		"https://www." + source,
		"http://" + source + "/blog",
		"https://" + source + "/blog/post-1",
		"http://" + source + "/about",
		"http://" + source + "/?param=value",
		"https://" + source + "/search?q=test&page=1",
	}
}

func (v *Validator) checkRedirects(ctx context.Context) {
	urls := RedirectURLs(v.config.SourceDomain)
	results := v.deps.Prober.CheckAll(ctx, urls, v.config.TargetDomain)

	for _, res := range results {
		if res.OK() {
			v.pass("%s -> %s (%d, %dms)", res.URL, res.Location, res.StatusCode, res.Duration.Milliseconds())
			continue
		}
		reason := res.Err
		if reason == "" {
			reason = fmt.Sprintf("status %d, location %q", res.StatusCode, res.Location)
		}
		v.fail("%s failed: %s", res.URL, reason)
	}

	ok := probe.CountHealthy(results)
	r := Result{
		Name:    "Redirect Functionality",
		Passed:  ok >= probe.Quorum(len(urls), RedirectPassRatio),
		Details: results,
	}
	if r.Passed {
		r.Message = "Redirect tests passed (" + probe.Summary(ok, len(urls)) + ")"
	} else {
		r.Message = "Redirect tests failed (" + probe.Summary(ok, len(urls)) + ")"
	}
	v.add(r)
}

func (v *Validator) distributionID(ctx context.Context) (string, error) {
	stack, err := v.describeStack(ctx)
	if err != nil {
		return "", err
	}
	for _, key := range distributionOutputs {
		if id := stack.Outputs[key]; id != "" {
			return id, nil
		}
	}

	ctx, cancel := v.withTimeout(ctx)
	defer cancel()
	id, err := awsenv.FindStackResource(ctx, v.deps.CloudFormation, v.config.StackName, distributionResourceType)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("stack %s has no CloudFront distribution", v.config.StackName)
	}
	return id, nil
}

func (v *Validator) checkCloudFront(ctx context.Context) {
	const name = "CloudFront Health Check"

	fail := func(err error) {
		v.add(Result{Name: name, Message: "Failed to check CloudFront health", Details: err.Error()})
		v.fail("Failed to check CloudFront health")
	}

	if v.deps.CloudFront == nil {
		fail(fmt.Errorf("CloudFront %w", errNoClient))
		return
	}
	id, err := v.distributionID(ctx)
	if err != nil {
		fail(err)
		return
	}

	cctx, cancel := v.withTimeout(ctx)
	defer cancel()
	out, err := v.deps.CloudFront.GetDistribution(cctx, &cloudfront.GetDistributionInput{Id: aws.String(id)})
	if err != nil {
		fail(fmt.Errorf("getting distribution %s: %w", id, err))
		return
	}

	dist := out.Distribution
	if dist == nil {
		fail(fmt.Errorf("distribution %s not returned", id))
		return
	}
	status := aws.ToString(dist.Status)
	enabled := dist.DistributionConfig != nil && aws.ToBool(dist.DistributionConfig.Enabled)

	r := Result{
		Name:    name,
		Passed:  status == "Deployed" && enabled,
		Details: map[string]any{"id": id, "status": status, "enabled": enabled, "domainName": aws.ToString(dist.DomainName)},
	}
	if r.Passed {
		r.Message = "CloudFront distribution is healthy and deployed"
		v.pass("CloudFront distribution healthy (Status: %s)", status)
	} else {
		r.Message = fmt.Sprintf("CloudFront distribution status: %s, enabled: %t", status, enabled)
		v.fail("CloudFront distribution unhealthy (Status: %s)", status)
	}
	v.add(r)
}

type performanceSample struct {
	URL      string        `json:"url"`
	Duration time.Duration `json:"responseTime"`
	Passed   bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Rating returns excellent, good or slow for a response time.
func Rating(d time.Duration) string {
	switch {
	case d < ExcellentResponse:
		return "excellent"
	case d < AcceptableResponse:
		return "good"
	default:
		return "slow"
	}
}

func (v *Validator) checkPerformance(ctx context.Context) {
	source := v.config.SourceDomain
	urls := []string{"https://" + source, "https://www." + source}

	samples := make([]performanceSample, 0, len(urls))
	var total time.Duration
	allPassed := true

	for _, res := range v.deps.Prober.CheckAll(ctx, urls, v.config.TargetDomain) {
		s := performanceSample{
			URL:      res.URL,
			Duration: res.Duration,
			Passed:   res.OK() && res.Duration < AcceptableResponse,
			Error:    res.Err,
		}
		samples = append(samples, s)
		total += res.Duration
		allPassed = allPassed && s.Passed

		rating := Rating(res.Duration)
		if rating == "slow" || !res.OK() {
			v.warn("%s response time: %dms (%s)", res.URL, res.Duration.Milliseconds(), rating)
		} else {
			v.pass("%s response time: %dms (%s)", res.URL, res.Duration.Milliseconds(), rating)
		}
	}

	avg := total / time.Duration(len(urls))
	r := Result{
		Name:    "Performance Validation",
		Passed:  allPassed && avg < AcceptableResponse,
		Details: map[string]any{"averageResponseTime": avg, "results": samples},
	}
	if r.Passed {
		r.Message = fmt.Sprintf("Performance acceptable (avg: %dms)", avg.Milliseconds())
	} else {
		r.Message = fmt.Sprintf("Performance issues detected (avg: %dms)", avg.Milliseconds())
	}
	v.add(r)
}

func (v *Validator) checkHostedZone(ctx context.Context) {
	const name = "Hosted Zone"

	if v.deps.Route53 == nil {
		v.add(Result{Name: name, Message: "Failed to list hosted zones", Details: fmt.Sprintf("Route 53 %v", errNoClient)})
		v.fail("Failed to list hosted zones")
		return
	}

	want := strings.TrimSuffix(v.config.SourceDomain, ".") + "."
	paginator := route53.NewListHostedZonesPaginator(v.deps.Route53, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		pctx, cancel := v.withTimeout(ctx)
		page, err := paginator.NextPage(pctx)
		cancel()
		if err != nil {
			v.add(Result{Name: name, Message: "Failed to list hosted zones", Details: err.Error()})
			v.fail("Failed to list hosted zones")
			return
		}
		for _, zone := range page.HostedZones {
			if !strings.EqualFold(aws.ToString(zone.Name), want) {
				continue
			}
			if zone.Config != nil && zone.Config.PrivateZone {
				continue
			}
			id := strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/")
			v.add(Result{
				Name:    name,
				Passed:  true,
				Message: fmt.Sprintf("Public hosted zone %s found", id),
				Details: map[string]any{"id": id, "name": want, "recordSetCount": aws.ToInt64(zone.ResourceRecordSetCount)},
			})
			v.pass("Hosted zone %s (%s)", want, id)
			return
		}
	}

	v.add(Result{Name: name, Message: "No public hosted zone for " + want})
	v.fail("No public hosted zone for %s", want)
}

func (v *Validator) checkMailRecords(ctx context.Context) {
	domain := v.config.SourceDomain
	resolver := v.deps.Resolver(v.config.DNSServers[0])

	mctx, cancel := v.withTimeout(ctx)
	defer cancel()

	v.checkMX(mctx, resolver, domain)
	v.checkSPF(mctx, resolver, domain)
	v.checkDKIM(mctx, resolver, domain)
}

func trimDot(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

func (v *Validator) checkMX(ctx context.Context, r Resolver, domain string) {
	const name = "Mail MX Records"

	records, err := r.LookupMX(ctx, domain)
	if err != nil {
		v.add(Result{Name: name, Message: "MX lookup failed", Details: err.Error()})
		v.fail("MX lookup failed")
		return
	}

	var hosts []string
	for _, mx := range records {
		hosts = append(hosts, trimDot(mx.Host))
	}
	var missing []string
	for _, want := range sitemeta.MailExchanges {
		if !slices.Contains(hosts, want.Host) {
			missing = append(missing, want.Host)
		}
	}

	res := Result{Name: name, Passed: len(missing) == 0, Details: map[string]any{"found": hosts, "missing": missing}}
	if res.Passed {
		res.Message = "MX records point to iCloud"
		v.pass("MX: %s", strings.Join(hosts, ", "))
	} else {
		res.Message = "Missing MX records: " + strings.Join(missing, ", ")
		v.fail("Missing MX records: %s", strings.Join(missing, ", "))
	}
	v.add(res)
}

func (v *Validator) checkSPF(ctx context.Context, r Resolver, domain string) {
	const name = "Mail SPF Record"

	txts, err := r.LookupTXT(ctx, domain)
	if err != nil {
		v.add(Result{Name: name, Message: "TXT lookup failed", Details: err.Error()})
		v.fail("TXT lookup failed")
		return
	}

	res := Result{Name: name, Passed: slices.Contains(txts, sitemeta.SPFRecord), Details: txts}
	if res.Passed {
		res.Message = "SPF record present"
		v.pass("SPF: %s", sitemeta.SPFRecord)
	} else {
		res.Message = "SPF record missing"
		v.fail("SPF record %q not found", sitemeta.SPFRecord)
	}
	v.add(res)
}

func (v *Validator) checkDKIM(ctx context.Context, r Resolver, domain string) {
	const name = "Mail DKIM Record"

	host := sitemeta.DKIMRecordName(domain)
	want := sitemeta.DKIMTarget(domain)

	cname, err := r.LookupCNAME(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		msg := "DKIM lookup failed"
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			msg = "DKIM record not found"
		}
		v.add(Result{Name: name, Message: msg, Details: err.Error()})
		v.fail("%s for %s", msg, host)
		return
	}

	res := Result{Name: name, Passed: trimDot(cname) == want, Details: map[string]string{"name": host, "target": trimDot(cname)}}
	if res.Passed {
		res.Message = "DKIM record points to iCloud"
		v.pass("DKIM: %s -> %s", host, want)
	} else {
		res.Message = fmt.Sprintf("DKIM record points to %s, want %s", trimDot(cname), want)
		v.fail("DKIM: %s -> %s", host, trimDot(cname))
	}
	v.add(res)
}
