package infra

import (
	"fmt"
	"maps"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// Environments are the deployment stages the redirect stack is deployed to.
var Environments = sitemeta.Environments

// DefaultEnvironment is used when no environment is given.
const DefaultEnvironment = sitemeta.DefaultEnvironment

// ValidEnvironment reports whether env is a known deployment stage.
func ValidEnvironment(env string) bool {
	return sitemeta.ValidEnvironment(env)
}

// Stack IDs used by NewSite.
const (
	CertificateStackID   = "certificate"
	StaticHostingStackID = sitemeta.StaticHostingStack
	MailRelayStackID     = "mail-relay"
	GitHubOIDCStackID    = "github-oidc"
	AmplifyStackID       = "amplify-hosting"
	HostedZoneStackID    = "hosted-zone"
)

// SiteConfig describes the full set of stacks behind the website.
// Optional stacks are enabled by setting their section; unset fields in a
// section inherit the site-level values.
type SiteConfig struct {
	// Account is the AWS account all stacks deploy to.
	Account string `json:"account,omitempty" yaml:"account,omitempty"`

	// Region is the primary region. Default: eu-central-1
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Environment is the deployment stage. Default: dev
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// DomainName is the apex domain of the website.
	DomainName string `json:"domainName,omitempty" yaml:"domainName,omitempty"`

	// HostedZoneID is the Route53 zone of DomainName.
	HostedZoneID string `json:"hostedZoneId" yaml:"hostedZoneId"`

	// GitHubActionsRoleARN grants an existing CI role access to the site bucket.
	// When empty and GitHubOIDC is enabled, the role created there is used.
	GitHubActionsRoleARN string `json:"githubActionsRoleArn,omitempty" yaml:"githubActionsRoleArn,omitempty"`

	// WebsitePath is the static export directory.
	WebsitePath string `json:"websitePath,omitempty" yaml:"websitePath,omitempty"`

	// Tags are applied to all stacks.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	HostedZone     *HostedZoneConfig     `json:"hostedZone,omitempty" yaml:"hostedZone,omitempty"`
	MailRelay      *MailRelayConfig      `json:"mailRelay,omitempty" yaml:"mailRelay,omitempty"`
	DomainRedirect *DomainRedirectConfig `json:"domainRedirect,omitempty" yaml:"domainRedirect,omitempty"`
	GitHubOIDC     *GitHubOIDCConfig     `json:"githubOidc,omitempty" yaml:"githubOidc,omitempty"`
	Amplify        *AmplifyHostingConfig `json:"amplify,omitempty" yaml:"amplify,omitempty"`

	// Imports adopts existing CloudFormation templates as additional stacks.
	Imports []ImportedTemplateConfig `json:"imports,omitempty" yaml:"imports,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *SiteConfig) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.WebsitePath == "" {
		c.WebsitePath = DefaultWebsitePath
	}
	if c.Tags == nil {
		c.Tags = make(map[string]string)
	}
	if _, ok := c.Tags["Project"]; !ok {
		c.Tags["Project"] = c.DomainName
	}
	if _, ok := c.Tags["Environment"]; !ok {
		c.Tags["Environment"] = c.Environment
	}
}

// Validate checks the configuration.
func (c *SiteConfig) Validate() error {
	var errs []error
	if !ValidEnvironment(c.Environment) {
		errs = append(errs, fmt.Errorf("environment %q must be one of %v", c.Environment, Environments))
	}
	if err := validateDomain("domainName", c.DomainName); err != nil {
		errs = append(errs, err)
	}
	if c.HostedZoneID == "" {
		errs = append(errs, fmt.Errorf("hostedZoneId is required"))
	}
	seen := make(map[string]bool, len(c.Imports))
	for _, imp := range c.Imports {
		if seen[imp.StackName] {
			errs = append(errs, fmt.Errorf("imports: duplicate stackName %q", imp.StackName))
		}
		seen[imp.StackName] = true
	}
	return joinErrors(errs...)
}

func (c *SiteConfig) env(region string) StackEnv {
	return StackEnv{Account: c.Account, Region: region}
}

// inherit fills a stack's shared options from the site.
func (c *SiteConfig) inherit(o *StackOptions, region string, crossRegion bool) {
	if o.Env.IsZero() {
		o.Env = c.env(region)
	}
	tags := maps.Clone(c.Tags)
	maps.Copy(tags, o.Tags)
	o.Tags = tags
	o.CrossRegionReferences = o.CrossRegionReferences || crossRegion
}

// Site holds the stacks created by NewSite. Optional stacks are nil when disabled.
type Site struct {
	Config SiteConfig

	Certificate    *CertificateStack
	StaticHosting  *StaticHostingStack
	HostedZone     *HostedZoneStack
	MailRelay      *MailRelayStack
	DomainRedirect *DomainRedirectStack
	GitHubOIDC     *GitHubOIDCStack
	Amplify        *AmplifyHostingStack
	Imports        []*ImportedTemplateStack
}

// NewSite creates the certificate and static hosting stacks plus every
// enabled optional stack.
func NewSite(scope constructs.Construct, config SiteConfig) *Site {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid site configuration: %v", err))
	}

	site := &Site{Config: config}

	if config.HostedZone != nil {
		zone := *config.HostedZone
		config.inherit(&zone.StackOptions, config.Region, false)
		if zone.ZoneName == "" {
			zone.ZoneName = config.DomainName
		}
		site.HostedZone = NewHostedZoneStack(scope, HostedZoneStackID, zone)
	}

	certificate := CertificateConfig{DomainName: config.DomainName, HostedZoneID: config.HostedZoneID}
	config.inherit(&certificate.StackOptions, CertificateRegion, true)
	site.Certificate = NewCertificateStack(scope, CertificateStackID, certificate)

	roleARN := config.GitHubActionsRoleARN
	if config.GitHubOIDC != nil {
		oidc := *config.GitHubOIDC
		config.inherit(&oidc.StackOptions, config.Region, false)
		site.GitHubOIDC = NewGitHubOIDCStack(scope, GitHubOIDCStackID, oidc)
		if roleARN == "" {
			roleARN = *site.GitHubOIDC.Role.RoleArn()
		}
	}

	hosting := StaticHostingConfig{
		DomainName:           config.DomainName,
		HostedZoneID:         config.HostedZoneID,
		CertificateARN:       *site.Certificate.CertificateARN(),
		GitHubActionsRoleARN: roleARN,
		WebsitePath:          config.WebsitePath,
	}
	config.inherit(&hosting.StackOptions, config.Region, true)
	site.StaticHosting = NewStaticHostingStack(scope, StaticHostingStackID, hosting)

	if config.MailRelay != nil {
		mail := *config.MailRelay
		config.inherit(&mail.StackOptions, config.Region, false)
		if mail.DomainName == "" {
			mail.DomainName = config.DomainName
		}
		if mail.HostedZoneID == "" {
			mail.HostedZoneID = config.HostedZoneID
		}
		site.MailRelay = NewMailRelayStack(scope, MailRelayStackID, mail)
	}

	if config.DomainRedirect != nil {
		redirect := *config.DomainRedirect
		config.inherit(&redirect.StackOptions, config.Region, false)
		site.DomainRedirect = NewDomainRedirectStack(scope, RedirectStackName(config.Environment), redirect)
	}

	if config.Amplify != nil {
		amplify := *config.Amplify
		config.inherit(&amplify.StackOptions, config.Region, false)
		if amplify.DomainName == "" {
			amplify.DomainName = config.DomainName
		}
		site.Amplify = NewAmplifyHostingStack(scope, AmplifyStackID, amplify)
	}

	for _, imp := range config.Imports {
		config.inherit(&imp.StackOptions, config.Region, false)
		site.Imports = append(site.Imports, NewImportedTemplateStack(scope, imp.StackName, imp))
	}

	return site
}

// Stacks returns the created stacks in creation order.
func (s *Site) Stacks() []awscdk.Stack {
	var stacks []awscdk.Stack
	if s.HostedZone != nil {
		stacks = append(stacks, s.HostedZone.Stack)
	}
	stacks = append(stacks, s.Certificate.Stack)
	if s.GitHubOIDC != nil {
		stacks = append(stacks, s.GitHubOIDC.Stack)
	}
	stacks = append(stacks, s.StaticHosting.Stack)
	if s.MailRelay != nil {
		stacks = append(stacks, s.MailRelay.Stack)
	}
	if s.DomainRedirect != nil {
		stacks = append(stacks, s.DomainRedirect.Stack)
	}
	if s.Amplify != nil {
		stacks = append(stacks, s.Amplify.Stack)
	}
	for _, imp := range s.Imports {
		stacks = append(stacks, imp.Stack)
	}
	return stacks
}
