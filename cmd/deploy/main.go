// deploy orchestrates the deployment of the domain redirect stack.
//
// It handles:
//  1. Pre-deployment validation (profile, credentials, CDK version, project files, environment)
//  2. Bootstrapping AWS CDK when the CDKToolkit stack is missing
//  3. Deploying the CDK stack
//  4. Verifying the stack status and printing its outputs
//
// Usage:
//
//	deploy [dev|prod] [flags]
//
// Examples:
//
//	deploy                  # Deploy domain-redirect-dev
//	deploy prod             # Deploy domain-redirect-prod
//	deploy prod --dry-run   # Print the cdk commands without running them
//	deploy dev --rollback   # Destroy domain-redirect-dev
//
// The profile and region default to AWS_PROFILE and CDK_DEFAULT_REGION.
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/deploy@latest
package main

import (
	"github.com/spf13/cobra"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/cliutil"
	"github.com/buildinginthecloud/site/internal/deploy"
)

func main() {
	cliutil.Execute(newCommand())
}

type options struct {
	logs       cliutil.LogOptions
	aws        awsenv.Context
	projectDir string
	rollback   bool
	dryRun     bool
	verbose    bool
}

func newCommand() *cobra.Command {
	opts := options{aws: awsenv.FromEnv(), projectDir: "."}

	cmd := &cobra.Command{
		Use:   "deploy [dev|prod]",
		Short: "Deploy the domain redirect stack with AWS CDK",
		Args:  cliutil.EnvironmentArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cliutil.Environment(args)
			if err != nil {
				return err
			}
			return run(cmd, env, opts)
		},
	}

	opts.logs.Register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.aws.Profile, "profile", opts.aws.Profile, "AWS profile")
	f.StringVar(&opts.aws.Region, "region", opts.aws.Region, "AWS region")
	f.StringVar(&opts.projectDir, "project-dir", opts.projectDir, "directory containing cdk.json")
	f.BoolVar(&opts.rollback, "rollback", false, "destroy the stack instead of deploying it")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the cdk commands without running them")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "pass --verbose to cdk deploy")
	return cmd
}

func run(cmd *cobra.Command, env string, opts options) error {
	logger, err := opts.logs.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	config := deploy.NewConfig(opts.aws, env)
	config.ProjectDir = opts.projectDir
	config.DryRun = opts.dryRun
	config.Verbose = opts.verbose

	out := cmd.OutOrStdout()
	deps := deploy.Deps{
		Runner: deploy.ExecRunner{Stdout: out, Stderr: cmd.ErrOrStderr()},
		Logger: logger,
		Out:    out,
	}

	ctx := cmd.Context()
	if opts.rollback {
		return deploy.New(config, deps).Rollback(ctx)
	}

	clients, err := awsenv.NewClients(ctx, opts.aws)
	if err != nil {
		return err
	}
	deps.CloudFormation = clients.CloudFormation()
	deps.STS = clients.STS()

	return deploy.New(config, deps).Deploy(ctx)
}
