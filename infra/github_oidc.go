package infra

import (
	"fmt"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const (
	// GitHubOIDCHost is the token issuer for GitHub Actions.
	GitHubOIDCHost = "token.actions.githubusercontent.com"

	githubAudience = "sts.amazonaws.com"
)

// GitHubOIDCConfig configures the GitHub Actions deployment role.
type GitHubOIDCConfig struct {
	StackOptions `yaml:",inline"`

	// Owner is the GitHub user or organisation.
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`

	// Repo is the repository name.
	Repo string `json:"repo,omitempty" yaml:"repo,omitempty"`

	// Filter restricts the subject claim, e.g. "ref:refs/heads/main". Default: *
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`

	// CreateProvider creates the account's GitHub OIDC provider instead of
	// importing the existing one. Only one provider per issuer may exist.
	CreateProvider bool `json:"createProvider,omitempty" yaml:"createProvider,omitempty"`

	// ManagedPolicies are AWS managed policy names attached to the role.
	// Default: AdministratorAccess
	ManagedPolicies []string `json:"managedPolicies,omitempty" yaml:"managedPolicies,omitempty"`

	// MaxSessionDuration bounds role sessions. Default: 1h
	MaxSessionDuration Duration `json:"maxSessionDuration,omitempty" yaml:"maxSessionDuration,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *GitHubOIDCConfig) ApplyDefaults() {
	if c.Owner == "" {
		c.Owner = DefaultGitHubOwner
	}
	if c.Repo == "" {
		c.Repo = DefaultGitHubRepo
	}
	if c.Filter == "" {
		c.Filter = "*"
	}
	if len(c.ManagedPolicies) == 0 {
		c.ManagedPolicies = []string{"AdministratorAccess"}
	}
	if c.MaxSessionDuration.IsZero() {
		c.MaxSessionDuration = Duration{Duration: time.Hour}
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("GitHub Actions OIDC role for %s", c.Repository())
	}
}

// Validate checks the configuration.
func (c *GitHubOIDCConfig) Validate() error {
	var errs []error
	if c.Owner == "" {
		errs = append(errs, fmt.Errorf("owner is required"))
	}
	if c.Repo == "" {
		errs = append(errs, fmt.Errorf("repo is required"))
	}
	// IAM accepts 1 to 12 hours.
	if d := c.MaxSessionDuration.Duration; d < time.Hour || d > 12*time.Hour {
		errs = append(errs, fmt.Errorf("maxSessionDuration %s must be between 1h and 12h", d))
	}
	return joinErrors(errs...)
}

// Repository returns owner/repo.
func (c *GitHubOIDCConfig) Repository() string {
	return c.Owner + "/" + c.Repo
}

// RoleName returns the name of the deployment role.
func (c *GitHubOIDCConfig) RoleName() string {
	return dashed(c.Repo) + "-github-actions-role"
}

// GitHubOIDCStack lets GitHub Actions assume a deployment role without stored keys.
type GitHubOIDCStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config GitHubOIDCConfig

	// Provider is the GitHub OIDC identity provider.
	Provider awsiam.IOpenIdConnectProvider

	// Role is the deployment role assumed by workflows.
	Role awsiam.Role
}

// NewGitHubOIDCStack creates the GitHub OIDC stack.
func NewGitHubOIDCStack(scope constructs.Construct, id string, config GitHubOIDCConfig) *GitHubOIDCStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid github oidc configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &GitHubOIDCStack{
		Stack:  stack,
		Config: config,
	}

	s.createProvider()
	s.createRole()
	s.addOutputs()

	return s
}

func (s *GitHubOIDCStack) createProvider() {
	if s.Config.CreateProvider {
		s.Provider = awsiam.NewOpenIdConnectProvider(s.Stack, jsii.String("GitHubProvider"),
			&awsiam.OpenIdConnectProviderProps{
				Url:       jsii.String("https://" + GitHubOIDCHost),
				ClientIds: jsii.Strings(githubAudience),
			})
		return
	}

	arn := fmt.Sprintf("arn:aws:iam::%s:oidc-provider/%s", *s.Account(), GitHubOIDCHost)
	s.Provider = awsiam.OpenIdConnectProvider_FromOpenIdConnectProviderArn(s.Stack,
		jsii.String("GitHubProvider"), jsii.String(arn))
}

func (s *GitHubOIDCStack) createRole() {
	principal := awsiam.NewWebIdentityPrincipal(s.Provider.OpenIdConnectProviderArn(), &map[string]interface{}{
		"StringEquals": map[string]interface{}{
			GitHubOIDCHost + ":aud": githubAudience,
		},
		"StringLike": map[string]interface{}{
			GitHubOIDCHost + ":sub": fmt.Sprintf("repo:%s:%s", s.Config.Repository(), s.Config.Filter),
		},
	})

	s.Role = awsiam.NewRole(s.Stack, jsii.String("GitHubActionsRole"), &awsiam.RoleProps{
		RoleName:           jsii.String(s.Config.RoleName()),
		Description:        jsii.String(fmt.Sprintf("GitHub Actions deployment role for %s", s.Config.Repository())),
		AssumedBy:          principal,
		MaxSessionDuration: awscdk.Duration_Seconds(jsii.Number(s.Config.MaxSessionDuration.Seconds())),
	})

	for _, name := range s.Config.ManagedPolicies {
		s.Role.AddManagedPolicy(awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String(name)))
	}
}

func (s *GitHubOIDCStack) addOutputs() {
	awscdk.NewCfnOutput(s.Stack, jsii.String("GitHubActionsRoleArn"), &awscdk.CfnOutputProps{
		Value:       s.Role.RoleArn(),
		Description: jsii.String("ARN of the role assumed by GitHub Actions"),
		ExportName:  jsii.String("GitHubActionsRoleArn"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("GitHubRepository"), &awscdk.CfnOutputProps{
		Value:       jsii.String(s.Config.Repository()),
		Description: jsii.String("Repository allowed to assume the role"),
	})
}
