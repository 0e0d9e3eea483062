// push-secrets stores the GitHub token used by the Amplify hosting stack in
// AWS Secrets Manager.
//
// It reads GITHUB_TOKEN from a .env file and creates or updates the plain
// text secret the Amplify app reads the repository with.
//
// Usage:
//
//	push-secrets [flags] [env-file]
//
// Examples:
//
//	push-secrets                         # Auto-detect the env file
//	push-secrets .env                    # Push from .env
//	push-secrets --name amplify-token    # Use a different secret name
//	push-secrets --dry-run .env          # Preview without creating
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/push-secrets@latest
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/cliutil"
	"github.com/buildinginthecloud/site/internal/secrets"
)

func main() {
	cliutil.Execute(newCommand())
}

type options struct {
	logs   cliutil.LogOptions
	aws    awsenv.Context
	secret secrets.Secret
	dryRun bool
}

func newCommand() *cobra.Command {
	opts := options{aws: awsenv.FromEnv(), secret: secrets.GitHubToken}

	cmd := &cobra.Command{
		Use:   "push-secrets [env-file]",
		Short: "Push the Amplify GitHub token to AWS Secrets Manager",
		Long: `Push the Amplify GitHub token to AWS Secrets Manager.

If env-file is not specified, searches in order:
  1. .env (current directory)
  2. ../.env (parent directory)
  3. ~/` + secrets.DefaultConfigDir + `/.env (global fallback)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	opts.logs.Register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.aws.Profile, "profile", opts.aws.Profile, "AWS profile")
	f.StringVar(&opts.aws.Region, "region", opts.aws.Region, "AWS region of the Amplify app")
	f.StringVar(&opts.secret.Name, "name", opts.secret.Name, "secret name")
	f.StringVar(&opts.secret.EnvKey, "key", opts.secret.EnvKey, "environment variable holding the token")
	f.BoolVar(&opts.dryRun, "dry-run", false, "preview changes without creating secrets")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts options) error {
	logger, err := opts.logs.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var envFile string
	if len(args) == 1 {
		envFile = args[0]
	} else {
		envFile, err = secrets.FindEnvFile(secrets.EnvFileCandidates())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reading from: %s\n", envFile)
	env, err := secrets.ReadEnvFile(envFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "AWS Profile: %s\n", opts.aws.Profile)
	fmt.Fprintf(out, "AWS Region: %s\n", opts.aws.Region)
	if opts.dryRun {
		fmt.Fprintln(out, "Mode: DRY RUN (no changes will be made)")
	}
	fmt.Fprintln(out)

	ctx := cmd.Context()
	var client secrets.API
	if !opts.dryRun {
		clients, err := awsenv.NewClients(ctx, opts.aws)
		if err != nil {
			return err
		}
		client = clients.SecretsManager()
	}

	outcome, err := secrets.NewPusher(client, out, logger).Push(ctx, env, opts.secret)
	if err != nil {
		return err
	}
	logger.Debug("push finished", zap.String("secret", opts.secret.Name), zap.String("outcome", string(outcome)))
	if outcome == secrets.Skipped {
		return errors.New(opts.secret.EnvKey + " is not set in " + envFile)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To verify:")
	fmt.Fprintf(out, "  aws secretsmanager describe-secret --secret-id %s --region %s --profile %s --no-cli-pager\n",
		opts.secret.Name, opts.aws.Region, opts.aws.Profile)
	return nil
}
