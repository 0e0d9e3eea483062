package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsamplify"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"gopkg.in/yaml.v3"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

const (
	// DefaultGitHubTokenSecret is the Secrets Manager secret holding the
	// GitHub token Amplify uses to read the repository.
	DefaultGitHubTokenSecret = sitemeta.GitHubTokenSecret

	// DefaultBranch is the production branch.
	DefaultBranch = "main"

	// DefaultAppRoot is the monorepo directory of the Next.js app.
	DefaultAppRoot = "buildinginthecloud"
)

// EnvVar is an ordered environment variable.
type EnvVar struct {
	Name  string
	Value string
}

// AmplifyHostingConfig configures the Amplify hosting stack.
type AmplifyHostingConfig struct {
	StackOptions `yaml:",inline"`

	DomainName            string `json:"domainName,omitempty" yaml:"domainName,omitempty"`
	GitHubOwner           string `json:"githubOwner,omitempty" yaml:"githubOwner,omitempty"`
	GitHubRepo            string `json:"githubRepo,omitempty" yaml:"githubRepo,omitempty"`
	GitHubTokenSecretName string `json:"githubTokenSecretName,omitempty" yaml:"githubTokenSecretName,omitempty"`
	BranchName            string `json:"branchName,omitempty" yaml:"branchName,omitempty"`
	AppRoot               string `json:"appRoot,omitempty" yaml:"appRoot,omitempty"`

	// HostedZoneID enables the custom domain when set.
	HostedZoneID string `json:"hostedZoneId,omitempty" yaml:"hostedZoneId,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *AmplifyHostingConfig) ApplyDefaults() {
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.GitHubOwner == "" {
		c.GitHubOwner = DefaultGitHubOwner
	}
	if c.GitHubRepo == "" {
		c.GitHubRepo = DefaultGitHubRepo
	}
	if c.GitHubTokenSecretName == "" {
		c.GitHubTokenSecretName = DefaultGitHubTokenSecret
	}
	if c.BranchName == "" {
		c.BranchName = DefaultBranch
	}
	if c.AppRoot == "" {
		c.AppRoot = DefaultAppRoot
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("Amplify hosting for %s", c.DomainName)
	}
}

// Validate checks the configuration.
func (c *AmplifyHostingConfig) Validate() error {
	var errs []error
	if err := validateDomain("domainName", c.DomainName); err != nil {
		errs = append(errs, err)
	}
	if c.GitHubOwner == "" || c.GitHubRepo == "" {
		errs = append(errs, fmt.Errorf("githubOwner and githubRepo are required"))
	}
	return joinErrors(errs...)
}

// AppName returns the Amplify app name.
func (c *AmplifyHostingConfig) AppName() string {
	return dashed(c.DomainName)
}

// RepositoryURL returns the GitHub URL of the repository.
func (c *AmplifyHostingConfig) RepositoryURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", c.GitHubOwner, c.GitHubRepo)
}

// AppEnvironment returns the app-level build environment in declaration order.
func (c *AmplifyHostingConfig) AppEnvironment() []EnvVar {
	return []EnvVar{
		{Name: "AMPLIFY_MONOREPO_APP_ROOT", Value: c.AppRoot},
		// Amazon Linux 2023 ships Node.js 20+.
		{Name: "_CUSTOM_IMAGE", Value: "amplify:al2023"},
		{Name: "NODE_ENV", Value: "production"},
		{Name: "NEXT_TELEMETRY_DISABLED", Value: "1"},
	}
}

// BuildSpec is the Amplify monorepo build specification.
type BuildSpec struct {
	Version      int                    `yaml:"version"`
	Applications []BuildSpecApplication `yaml:"applications"`
}

type BuildSpecApplication struct {
	AppRoot  string            `yaml:"appRoot"`
	Frontend BuildSpecFrontend `yaml:"frontend"`
}

type BuildSpecFrontend struct {
	Phases    BuildSpecPhases    `yaml:"phases"`
	Artifacts BuildSpecArtifacts `yaml:"artifacts"`
	Cache     BuildSpecCache     `yaml:"cache"`
}

type BuildSpecPhases struct {
	PreBuild BuildSpecCommands `yaml:"preBuild"`
	Build    BuildSpecCommands `yaml:"build"`
}

type BuildSpecCommands struct {
	Commands []string `yaml:"commands"`
}

type BuildSpecArtifacts struct {
	BaseDirectory string   `yaml:"baseDirectory"`
	Files         []string `yaml:"files"`
}

type BuildSpecCache struct {
	Paths []string `yaml:"paths"`
}

// NextJSBuildSpec returns the build spec for a Next.js app under appRoot.
func NextJSBuildSpec(appRoot string) BuildSpec {
	return BuildSpec{
		Version: 1,
		Applications: []BuildSpecApplication{{
			AppRoot: appRoot,
			Frontend: BuildSpecFrontend{
				Phases: BuildSpecPhases{
					PreBuild: BuildSpecCommands{Commands: []string{"npm ci"}},
					Build: BuildSpecCommands{Commands: []string{
						"npm run build",
						"rm -rf .next/standalone/node_modules/.pnpm || true",
					}},
				},
				Artifacts: BuildSpecArtifacts{
					BaseDirectory: ".next",
					Files:         []string{"**/*"},
				},
				Cache: BuildSpecCache{
					Paths: []string{"node_modules/**/*", ".next/cache/**/*"},
				},
			},
		}},
	}
}

// YAML renders the build spec.
func (b BuildSpec) YAML() (string, error) {
	out, err := yaml.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshaling build spec: %w", err)
	}
	return string(out), nil
}

// AmplifyHostingStack builds and hosts the Next.js site from GitHub with Amplify.
type AmplifyHostingStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config AmplifyHostingConfig

	// ServiceRole is assumed by Amplify during builds.
	ServiceRole awsiam.Role

	App    awsamplify.CfnApp
	Branch awsamplify.CfnBranch

	// Domain is set when a hosted zone is configured.
	Domain awsamplify.CfnDomain
}

// NewAmplifyHostingStack creates the Amplify hosting stack.
func NewAmplifyHostingStack(scope constructs.Construct, id string, config AmplifyHostingConfig) *AmplifyHostingStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid amplify hosting configuration: %v", err))
	}

	buildSpec, err := NextJSBuildSpec(config.AppRoot).YAML()
	if err != nil {
		panic(err.Error())
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &AmplifyHostingStack{
		Stack:  stack,
		Config: config,
	}

	s.createServiceRole()
	s.createApp(buildSpec)
	s.createBranch()
	s.createDomain()
	s.addOutputs()

	return s
}

func (s *AmplifyHostingStack) createServiceRole() {
	s.ServiceRole = awsiam.NewRole(s.Stack, jsii.String("AmplifyRole"), &awsiam.RoleProps{
		AssumedBy:   awsiam.NewServicePrincipal(jsii.String("amplify.amazonaws.com"), nil),
		Description: jsii.String(fmt.Sprintf("Amplify service role for %s", s.Config.AppName())),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AdministratorAccess-Amplify")),
		},
	})
}

func (s *AmplifyHostingStack) createApp(buildSpec string) {
	env := s.Config.AppEnvironment()
	vars := make([]*awsamplify.CfnApp_EnvironmentVariableProperty, len(env))
	for i, v := range env {
		vars[i] = &awsamplify.CfnApp_EnvironmentVariableProperty{
			Name:  jsii.String(v.Name),
			Value: jsii.String(v.Value),
		}
	}

	token := awscdk.SecretValue_SecretsManager(jsii.String(s.Config.GitHubTokenSecretName), nil)

	s.App = awsamplify.NewCfnApp(s.Stack, jsii.String("AmplifyApp"), &awsamplify.CfnAppProps{
		Name:                     jsii.String(s.Config.AppName()),
		Repository:               jsii.String(s.Config.RepositoryURL()),
		AccessToken:              token.UnsafeUnwrap(),
		Platform:                 jsii.String("WEB_COMPUTE"),
		EnableBranchAutoDeletion: jsii.Bool(true),
		IamServiceRole:           s.ServiceRole.RoleArn(),
		BuildSpec:                jsii.String(buildSpec),
		EnvironmentVariables:     &vars,
	})
}

func (s *AmplifyHostingStack) createBranch() {
	s.Branch = awsamplify.NewCfnBranch(s.Stack, jsii.String("MainBranch"), &awsamplify.CfnBranchProps{
		AppId:           s.App.AttrAppId(),
		BranchName:      jsii.String(s.Config.BranchName),
		EnableAutoBuild: jsii.Bool(true),
		Stage:           jsii.String("PRODUCTION"),
		EnvironmentVariables: &[]*awsamplify.CfnBranch_EnvironmentVariableProperty{
			{
				Name:  jsii.String("NEXT_PUBLIC_SITE_URL"),
				Value: jsii.String("https://" + s.Config.DomainName),
			},
		},
	})
}

func (s *AmplifyHostingStack) createDomain() {
	if s.Config.HostedZoneID == "" {
		return
	}

	s.Domain = awsamplify.NewCfnDomain(s.Stack, jsii.String("Domain"), &awsamplify.CfnDomainProps{
		AppId:               s.App.AttrAppId(),
		DomainName:          jsii.String(s.Config.DomainName),
		EnableAutoSubDomain: jsii.Bool(false),
		SubDomainSettings: &[]*awsamplify.CfnDomain_SubDomainSettingProperty{
			{BranchName: s.Branch.AttrBranchName(), Prefix: jsii.String("")},
			{BranchName: s.Branch.AttrBranchName(), Prefix: jsii.String("www")},
		},
	})
}

func (s *AmplifyHostingStack) addOutputs() {
	if s.Domain != nil {
		awscdk.NewCfnOutput(s.Stack, jsii.String("AmplifyDomainStatus"), &awscdk.CfnOutputProps{
			Value:       jsii.String(fmt.Sprintf("Check Amplify Console for domain %s DNS configuration", s.Config.DomainName)),
			Description: jsii.String("Domain configuration status"),
		})
	}

	awscdk.NewCfnOutput(s.Stack, jsii.String("AmplifyAppId"), &awscdk.CfnOutputProps{
		Value:       s.App.AttrAppId(),
		Description: jsii.String("Amplify App ID"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("AmplifyAppArn"), &awscdk.CfnOutputProps{
		Value:       s.App.AttrArn(),
		Description: jsii.String("Amplify App ARN"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("AmplifyDefaultDomain"), &awscdk.CfnOutputProps{
		Value:       jsii.String(fmt.Sprintf("https://%s.%s", s.Config.BranchName, *s.App.AttrDefaultDomain())),
		Description: jsii.String("Amplify default domain URL"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("AmplifyBranchUrl"), &awscdk.CfnOutputProps{
		Value:       s.Branch.AttrBranchName(),
		Description: jsii.String("Amplify branch name"),
	})
}
