package infra

import (
	"fmt"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53patterns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// RedirectCode is the status the HTTPS redirect pattern answers with.
const RedirectCode = 301

// RedirectStackName returns the stack name used for an environment.
func RedirectStackName(environment string) string {
	return sitemeta.RedirectStackName(environment)
}

// DomainRedirectConfig configures the domain redirect stack.
type DomainRedirectConfig struct {
	StackOptions `yaml:",inline"`

	// SourceDomain is the domain being redirected. Its hosted zone is looked up.
	SourceDomain string `json:"sourceDomain,omitempty" yaml:"sourceDomain,omitempty"`

	// TargetDomain receives the redirected traffic.
	TargetDomain string `json:"targetDomain,omitempty" yaml:"targetDomain,omitempty"`

	// PreservePath keeps the request path on the target. Default: true
	PreservePath *bool `json:"preservePath,omitempty" yaml:"preservePath,omitempty"`

	// ForceHTTPS redirects plain HTTP requests. Default: true
	ForceHTTPS *bool `json:"forceHttps,omitempty" yaml:"forceHttps,omitempty"`

	// RedirectCode is the HTTP status used for the redirect. Only 301 is
	// served by the redirect bucket. Default: 301
	RedirectCode int `json:"redirectCode,omitempty" yaml:"redirectCode,omitempty"`

	// DeployedAt is reported in the DeploymentTimestamp output. Default: now
	DeployedAt time.Time `json:"-" yaml:"-"`
}

// ApplyDefaults fills in unset fields.
func (c *DomainRedirectConfig) ApplyDefaults() {
	if c.SourceDomain == "" {
		c.SourceDomain = DefaultDomainName
	}
	if c.TargetDomain == "" {
		c.TargetDomain = DefaultRedirectTarget
	}
	if c.PreservePath == nil {
		c.PreservePath = jsii.Bool(true)
	}
	if c.ForceHTTPS == nil {
		c.ForceHTTPS = jsii.Bool(true)
	}
	if c.RedirectCode == 0 {
		c.RedirectCode = RedirectCode
	}
	if c.DeployedAt.IsZero() {
		c.DeployedAt = time.Now().UTC()
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("Redirect %s to %s", c.SourceDomain, c.TargetDomain)
	}
}

// Validate checks the configuration.
func (c *DomainRedirectConfig) Validate() error {
	var errs []error
	if err := validateDomain("sourceDomain", c.SourceDomain); err != nil {
		errs = append(errs, err)
	}
	if err := validateDomain("targetDomain", c.TargetDomain); err != nil {
		errs = append(errs, err)
	}
	if c.SourceDomain != "" && c.SourceDomain == c.TargetDomain {
		errs = append(errs, fmt.Errorf("sourceDomain and targetDomain must differ"))
	}
	if c.RedirectCode != RedirectCode {
		errs = append(errs, fmt.Errorf("redirectCode %d is not supported: the HTTPS redirect always answers %d", c.RedirectCode, RedirectCode))
	}
	// The S3 website redirect behind the HTTPS redirect pattern always keeps
	// the path and upgrades to HTTPS.
	if c.PreservePath != nil && !*c.PreservePath {
		errs = append(errs, fmt.Errorf("preservePath=false is not supported"))
	}
	if c.ForceHTTPS != nil && !*c.ForceHTTPS {
		errs = append(errs, fmt.Errorf("forceHttps=false is not supported"))
	}
	if c.Env.Account == "" || c.Env.Region == "" {
		errs = append(errs, fmt.Errorf("env account and region are required for the hosted zone lookup"))
	}
	return joinErrors(errs...)
}

// RedirectSummary describes the redirect in the form used by the stack output.
func (c *DomainRedirectConfig) RedirectSummary() string {
	return fmt.Sprintf("%s -> %s (%d redirect)", c.SourceDomain, c.TargetDomain, c.RedirectCode)
}

// DomainRedirectStack redirects the apex and www of one domain to another.
type DomainRedirectStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config DomainRedirectConfig

	// HostedZone is the looked-up zone of the source domain.
	HostedZone awsroute53.IHostedZone

	// LogsBucket receives CloudFront access logs.
	LogsBucket awss3.Bucket

	// Redirect is the CloudFront-backed HTTPS redirect.
	Redirect awsroute53patterns.HttpsRedirect
}

// NewDomainRedirectStack creates the domain redirect stack.
func NewDomainRedirectStack(scope constructs.Construct, id string, config DomainRedirectConfig) *DomainRedirectStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid domain redirect configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(id))

	s := &DomainRedirectStack{
		Stack:  stack,
		Config: config,
	}

	s.HostedZone = awsroute53.HostedZone_FromLookup(s.Stack, jsii.String("HostedZone"),
		&awsroute53.HostedZoneProviderProps{
			DomainName: jsii.String(config.SourceDomain),
		})

	s.createLogsBucket()
	s.createRedirect()
	s.addOutputs()

	return s
}

func (s *DomainRedirectStack) createLogsBucket() {
	s.LogsBucket = awss3.NewBucket(s.Stack, jsii.String("LogsBucket"), &awss3.BucketProps{
		BucketName:        jsii.String(fmt.Sprintf("%s-logs-%s", dashed(s.Config.SourceDomain), *s.Account())),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Versioned:         jsii.Bool(true),
		EnforceSSL:        jsii.Bool(true),
		LifecycleRules: &[]*awss3.LifecycleRule{
			{
				Id:                          jsii.String("DeleteOldLogs"),
				Enabled:                     jsii.Bool(true),
				Expiration:                  awscdk.Duration_Days(jsii.Number(90)),
				NoncurrentVersionExpiration: awscdk.Duration_Days(jsii.Number(30)),
				Transitions: &[]*awss3.Transition{
					{
						StorageClass:    awss3.StorageClass_INFREQUENT_ACCESS(),
						TransitionAfter: awscdk.Duration_Days(jsii.Number(30)),
					},
					{
						StorageClass:    awss3.StorageClass_GLACIER(),
						TransitionAfter: awscdk.Duration_Days(jsii.Number(60)),
					},
				},
			},
		},
	})

	s.LogsBucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("AllowCloudFrontLogging"),
		Effect:     awsiam.Effect_ALLOW,
		Principals: &[]awsiam.IPrincipal{awsiam.NewServicePrincipal(jsii.String("cloudfront.amazonaws.com"), nil)},
		Actions:    jsii.Strings("s3:PutObject"),
		Resources:  jsii.Strings(*s.LogsBucket.BucketArn() + "/*"),
		Conditions: &map[string]interface{}{
			"StringEquals": map[string]interface{}{
				"aws:SourceAccount": s.Account(),
			},
		},
	}))
}

func (s *DomainRedirectStack) createRedirect() {
	s.Redirect = awsroute53patterns.NewHttpsRedirect(s.Stack, jsii.String("Redirect"),
		&awsroute53patterns.HttpsRedirectProps{
			RecordNames:  jsii.Strings(s.Config.SourceDomain, "www."+s.Config.SourceDomain),
			TargetDomain: jsii.String(s.Config.TargetDomain),
			Zone:         s.HostedZone,
		})
}

func (s *DomainRedirectStack) output(name, description string, value *string) {
	awscdk.NewCfnOutput(s.Stack, jsii.String(name), &awscdk.CfnOutputProps{
		Value:       value,
		Description: jsii.String(description),
		ExportName:  jsii.String(fmt.Sprintf("%s-%s", *s.StackName(), name)),
	})
}

func (s *DomainRedirectStack) addOutputs() {
	s.output("HostedZoneId", "Hosted zone ID of the source domain", s.HostedZone.HostedZoneId())
	s.output("HostedZoneName", "Hosted zone name of the source domain", s.HostedZone.ZoneName())
	s.output("RedirectConfiguration", "Redirect configuration summary", jsii.String(s.Config.RedirectSummary()))
	s.output("DeploymentTimestamp", "Deployment timestamp for tracking",
		jsii.String(s.Config.DeployedAt.Format(time.RFC3339)))
	s.output("LogsBucketName", "S3 bucket for CloudFront access logs", s.LogsBucket.BucketName())
}
