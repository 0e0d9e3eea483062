// Package deploy orchestrates a CDK deployment of the domain redirect stack:
// preflight checks, bootstrap, deploy and verification, plus rollback.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

const (
	// BootstrapStack is the stack created by cdk bootstrap.
	BootstrapStack = "CDKToolkit"

	// OutputsFile receives the stack outputs written by cdk deploy.
	OutputsFile = "cdk-outputs.json"
)

// ProjectFiles must exist in the project directory before deploying.
var ProjectFiles = []string{
	"cdk.json",
	"go.mod",
	filepath.Join("cmd", "site-infra", "main.go"),
}

// RequiredEnv are the environment variables the CDK app reads.
var RequiredEnv = []string{"CDK_DEFAULT_ACCOUNT", "CDK_DEFAULT_REGION"}

// Config describes a deployment.
type Config struct {
	Profile     string
	Region      string
	Environment string
	StackName   string
	ProjectDir  string
	Verbose     bool
	DryRun      bool
}

// NewConfig returns the deployment configuration for environment using the
// profile and region from aws.
func NewConfig(aws awsenv.Context, environment string) Config {
	if environment == "" {
		environment = sitemeta.DefaultEnvironment
	}
	return Config{
		Profile:     aws.Profile,
		Region:      aws.Region,
		Environment: environment,
		StackName:   sitemeta.RedirectStackName(environment),
		ProjectDir:  ".",
	}
}

// Validate checks that the configuration can be deployed.
func (c Config) Validate() error {
	if !sitemeta.ValidEnvironment(c.Environment) {
		return fmt.Errorf("invalid environment %q: must be one of %s", c.Environment, strings.Join(sitemeta.Environments, ", "))
	}
	if c.Profile == "" {
		return errors.New("profile is required")
	}
	if c.Region == "" {
		return errors.New("region is required")
	}
	if c.StackName == "" {
		return errors.New("stack name is required")
	}
	return nil
}

// Deps are the collaborators of a Deployer.
type Deps struct {
	CloudFormation awsenv.StackDescriber
	STS            awsenv.CallerIdentityGetter
	Runner         Runner
	// CheckProfile defaults to awsenv.CheckProfile.
	CheckProfile func(ctx context.Context, profile string) error
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	Logger *zap.Logger
	Out    io.Writer
}

// Deployer runs the deployment steps.
type Deployer struct {
	config Config
	deps   Deps
}

// New returns a Deployer. In dry-run mode the runner only prints commands
// that change state.
func New(config Config, deps Deps) *Deployer {
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Runner == nil {
		deps.Runner = ExecRunner{Stdout: deps.Out, Stderr: deps.Out}
	}
	if config.DryRun {
		deps.Runner = DryRun(deps.Runner, deps.Out)
	}
	if deps.CheckProfile == nil {
		deps.CheckProfile = awsenv.CheckProfile
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Deployer{config: config, deps: deps}
}

// Deploy runs preflight, bootstrap, deploy and verification.
func (d *Deployer) Deploy(ctx context.Context) error {
	d.printf("Starting Domain Redirect deployment...\n")
	d.printf("Environment: %s\n", d.config.Environment)
	d.printf("Stack: %s\n", d.config.StackName)
	d.printf("Profile: %s\n", d.config.Profile)
	d.printf("Region: %s\n", d.config.Region)
	if d.config.DryRun {
		d.printf("Mode: DRY RUN (no changes will be made)\n")
	}
	d.printf("\n")

	d.printf("=== Step 1: Pre-deployment validation ===\n")
	account, err := d.Preflight(ctx)
	if err != nil {
		return err
	}
	d.printf("\n")

	d.printf("=== Step 2: CDK bootstrap ===\n")
	if err := d.EnsureBootstrap(ctx, account); err != nil {
		return err
	}
	d.printf("\n")

	d.printf("=== Step 3: CDK deploy ===\n")
	cmd := d.DeployCommand()
	d.printf("Running: %s\n", cmd)
	if err := d.deps.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("CDK deployment failed: %w", err)
	}
	d.printf("\n")

	if d.config.DryRun {
		d.printf("=== Step 4: Skipping verification (dry run) ===\n")
		return nil
	}

	d.printf("=== Step 4: Verify deployment ===\n")
	if err := d.Verify(ctx); err != nil {
		return err
	}
	d.printf("\nDeployment completed successfully!\n")
	return nil
}

type check struct {
	name string
	run  func(context.Context) (string, error)
}

// Preflight validates the local tooling and AWS access and returns the
// account id of the caller.
func (d *Deployer) Preflight(ctx context.Context) (string, error) {
	if err := d.config.Validate(); err != nil {
		return "", err
	}

	var account string
	checks := []check{
		{"AWS profile", d.checkProfile},
		{"AWS credentials", func(ctx context.Context) (string, error) {
			id, arn, err := d.callerIdentity(ctx)
			if err != nil {
				return "", err
			}
			account = id
			d.deps.Logger.Debug("caller identity", zap.String("account", id), zap.String("arn", arn))
			return "AWS credentials validated for account: " + id, nil
		}},
		{"CDK version", d.checkCDKVersion},
		{"Project structure", d.checkProjectFiles},
		{"Environment variables", d.checkEnv},
	}

	for _, c := range checks {
		msg, err := c.run(ctx)
		if err != nil {
			d.printf("  ✗ %s\n", c.name)
			return "", fmt.Errorf("validation failed: %s: %w", c.name, err)
		}
		d.printf("  ✓ %s\n", msg)
	}
	d.printf("Pre-deployment validation passed\n")
	return account, nil
}

func (d *Deployer) checkProfile(ctx context.Context) (string, error) {
	if err := d.deps.CheckProfile(ctx, d.config.Profile); err != nil {
		return "", err
	}
	return fmt.Sprintf("AWS profile '%s' validated", d.config.Profile), nil
}

func (d *Deployer) callerIdentity(ctx context.Context) (string, string, error) {
	if d.deps.STS == nil {
		return "", "", errors.New("STS client not configured")
	}
	account, arn, err := awsenv.CallerIdentity(ctx, d.deps.STS)
	if err != nil {
		return "", "", fmt.Errorf("%w (ensure profile %s has valid credentials)", err, d.config.Profile)
	}
	return account, arn, nil
}

func (d *Deployer) checkCDKVersion(ctx context.Context) (string, error) {
	version, err := d.deps.Runner.Output(ctx, Command{Name: "cdk", Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("CDK version check failed, ensure AWS CDK is installed: %w", err)
	}
	if !strings.HasPrefix(version, "2.") {
		return "", fmt.Errorf("CDK version incompatible: found %q, required 2.x", version)
	}
	return "CDK version validated: " + version, nil
}

func (d *Deployer) checkProjectFiles(context.Context) (string, error) {
	var missing []string
	for _, f := range ProjectFiles {
		if _, err := os.Stat(filepath.Join(d.config.ProjectDir, f)); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing files: %s", strings.Join(missing, ", "))
	}
	return "Project structure validated", nil
}

func (d *Deployer) checkEnv(context.Context) (string, error) {
	var missing []string
	for _, key := range RequiredEnv {
		if d.deps.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing: %s (set these via the AWS profile or environment)", strings.Join(missing, ", "))
	}
	return "Environment variables validated", nil
}

// EnsureBootstrap bootstraps the account and region unless the CDK toolkit
// stack already exists.
func (d *Deployer) EnsureBootstrap(ctx context.Context, account string) error {
	if d.deps.CloudFormation == nil {
		return errors.New("CloudFormation client not configured")
	}
	_, err := awsenv.DescribeStack(ctx, d.deps.CloudFormation, BootstrapStack)
	if err == nil {
		d.printf("  ✓ CDK bootstrap already completed\n")
		return nil
	}
	d.deps.Logger.Debug("bootstrap stack lookup failed", zap.Error(err))

	d.printf("  ! CDK bootstrap required, running bootstrap...\n")
	if err := d.deps.Runner.Run(ctx, d.BootstrapCommand(account)); err != nil {
		return fmt.Errorf("CDK bootstrap failed: %w", err)
	}
	d.printf("  ✓ CDK bootstrap completed\n")
	return nil
}

// BootstrapCommand returns the cdk bootstrap invocation for account.
func (d *Deployer) BootstrapCommand(account string) Command {
	target := fmt.Sprintf("aws://%s/%s", account, d.config.Region)
	return d.cdk("bootstrap", "--profile", d.config.Profile, target)
}

// DeployCommand returns the cdk deploy invocation.
func (d *Deployer) DeployCommand() Command {
	args := []string{
		"deploy", d.config.StackName,
		"--profile", d.config.Profile,
		"--require-approval", "never",
		"--outputs-file", OutputsFile,
		"--context", "environment=" + d.config.Environment,
	}
	if d.config.Verbose {
		args = append(args, "--verbose")
	}
	return d.cdk(args...)
}

// DestroyCommand returns the cdk destroy invocation used for rollback.
func (d *Deployer) DestroyCommand() Command {
	return d.cdk("destroy", d.config.StackName, "--profile", d.config.Profile, "--force")
}

func (d *Deployer) cdk(args ...string) Command {
	return Command{
		Name: "cdk",
		Args: args,
		Env:  []string{"AWS_PROFILE=" + d.config.Profile, "AWS_REGION=" + d.config.Region},
		Dir:  d.config.ProjectDir,
	}
}

// Verify checks the final stack status and prints the stack outputs.
func (d *Deployer) Verify(ctx context.Context) error {
	if d.deps.CloudFormation == nil {
		return errors.New("CloudFormation client not configured")
	}
	stack, err := awsenv.DescribeStack(ctx, d.deps.CloudFormation, d.config.StackName)
	if err != nil {
		return fmt.Errorf("deployment validation failed: %w", err)
	}
	if !stack.IsComplete() {
		return fmt.Errorf("deployment validation failed: stack status %s", stack.Status)
	}
	d.printf("  ✓ Stack status: %s\n", stack.Status)

	if len(stack.Outputs) > 0 {
		d.printf("\nStack Outputs:\n")
		keys := make([]string, 0, len(stack.Outputs))
		for k := range stack.Outputs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			d.printf("  %s: %s\n", k, stack.Outputs[k])
		}
	}

	if _, err := os.Stat(filepath.Join(d.config.ProjectDir, OutputsFile)); err == nil {
		d.printf("  ✓ CDK outputs file created: %s\n", OutputsFile)
	}
	return nil
}

// Rollback destroys the stack.
func (d *Deployer) Rollback(ctx context.Context) error {
	if err := d.config.Validate(); err != nil {
		return err
	}
	d.printf("Rolling back deployment of %s...\n", d.config.StackName)
	if err := d.deps.Runner.Run(ctx, d.DestroyCommand()); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	d.printf("Rollback completed\n")
	return nil
}

func (d *Deployer) printf(format string, args ...any) {
	fmt.Fprintf(d.deps.Out, format, args...)
}
