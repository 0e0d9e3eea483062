package infra

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// SiteBuilder provides a fluent interface for building the site stacks.
type SiteBuilder struct {
	config SiteConfig
}

// NewSiteBuilder creates a new site builder for domain.
func NewSiteBuilder(domain string) *SiteBuilder {
	return &SiteBuilder{
		config: SiteConfig{
			DomainName: domain,
			Tags:       make(map[string]string),
		},
	}
}

// WithAccount sets the AWS account.
func (b *SiteBuilder) WithAccount(account string) *SiteBuilder {
	b.config.Account = account
	return b
}

// WithRegion sets the primary region.
func (b *SiteBuilder) WithRegion(region string) *SiteBuilder {
	b.config.Region = region
	return b
}

// WithEnvironment sets the deployment stage.
func (b *SiteBuilder) WithEnvironment(env string) *SiteBuilder {
	b.config.Environment = env
	return b
}

// WithHostedZone sets the existing hosted zone of the domain.
func (b *SiteBuilder) WithHostedZone(zoneID string) *SiteBuilder {
	b.config.HostedZoneID = zoneID
	return b
}

// WithManagedHostedZone also creates the hosted zone stack.
func (b *SiteBuilder) WithManagedHostedZone() *SiteBuilder {
	b.config.HostedZone = &HostedZoneConfig{}
	return b
}

// WithWebsitePath sets the static export directory.
func (b *SiteBuilder) WithWebsitePath(path string) *SiteBuilder {
	b.config.WebsitePath = path
	return b
}

// WithDeployRole grants an existing CI role access to the site bucket.
func (b *SiteBuilder) WithDeployRole(roleARN string) *SiteBuilder {
	b.config.GitHubActionsRoleARN = roleARN
	return b
}

// WithGitHubOIDC adds the GitHub Actions OIDC role for owner/repo.
func (b *SiteBuilder) WithGitHubOIDC(owner, repo string) *SiteBuilder {
	b.config.GitHubOIDC = &GitHubOIDCConfig{Owner: owner, Repo: repo}
	return b
}

// WithMailRelay adds the iCloud mail records.
func (b *SiteBuilder) WithMailRelay() *SiteBuilder {
	b.config.MailRelay = &MailRelayConfig{}
	return b
}

// WithDomainRedirect redirects source to target.
func (b *SiteBuilder) WithDomainRedirect(source, target string) *SiteBuilder {
	b.config.DomainRedirect = &DomainRedirectConfig{SourceDomain: source, TargetDomain: target}
	return b
}

// WithRedirectCode sets the status code of the domain redirect.
func (b *SiteBuilder) WithRedirectCode(code int) *SiteBuilder {
	if b.config.DomainRedirect == nil {
		b.config.DomainRedirect = &DomainRedirectConfig{}
	}
	b.config.DomainRedirect.RedirectCode = code
	return b
}

// WithAmplify adds Amplify hosting for the repository's Next.js app.
func (b *SiteBuilder) WithAmplify(config AmplifyHostingConfig) *SiteBuilder {
	b.config.Amplify = &config
	return b
}

// WithImport adopts an existing CloudFormation template as stackName.
func (b *SiteBuilder) WithImport(stackName, templateFile string, parameters map[string]string) *SiteBuilder {
	b.config.Imports = append(b.config.Imports, ImportedTemplateConfig{
		StackOptions: StackOptions{StackName: stackName},
		TemplateFile: templateFile,
		Parameters:   parameters,
	})
	return b
}

// WithTags adds tags to all stacks.
func (b *SiteBuilder) WithTags(tags map[string]string) *SiteBuilder {
	for k, v := range tags {
		b.config.Tags[k] = v
	}
	return b
}

// WithTag adds a single tag.
func (b *SiteBuilder) WithTag(key, value string) *SiteBuilder {
	b.config.Tags[key] = value
	return b
}

// Config returns the current configuration.
func (b *SiteBuilder) Config() SiteConfig {
	return b.config
}

// Validate validates the current configuration.
func (b *SiteBuilder) Validate() error {
	b.config.ApplyDefaults()
	return b.config.Validate()
}

// Build creates the site stacks.
func (b *SiteBuilder) Build(scope constructs.Construct) *Site {
	return NewSite(scope, b.config)
}

// ContextEnvironment is the CDK context key selecting the deployment stage.
const ContextEnvironment = "environment"

// NewApp creates a new CDK app with common settings.
func NewApp() awscdk.App {
	return awscdk.NewApp(&awscdk.AppProps{
		Context: &map[string]interface{}{
			"@aws-cdk/core:newStyleStackSynthesis": true,
		},
	})
}

// EnvironmentFromContext returns the stage passed with
// `--context environment=<env>`, or DefaultEnvironment.
func EnvironmentFromContext(scope constructs.Construct) string {
	return ContextString(scope, ContextEnvironment, DefaultEnvironment)
}

// ContextString returns the string context value key, or fallback when it
// is unset or empty.
func ContextString(scope constructs.Construct, key, fallback string) string {
	if v, ok := scope.Node().TryGetContext(jsii.String(key)).(string); ok && v != "" {
		return v
	}
	return fallback
}

// Synth synthesizes the CDK app to CloudFormation templates.
func Synth(app awscdk.App) {
	app.Synth(nil)
}
