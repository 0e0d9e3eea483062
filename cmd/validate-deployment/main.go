// validate-deployment runs the post-deployment checks of the domain redirect
// stack and prints a report.
//
// Usage:
//
//	validate-deployment [dev|prod] [flags]
//
// Examples:
//
//	validate-deployment                 # Validate domain-redirect-dev
//	validate-deployment prod            # Validate domain-redirect-prod
//	validate-deployment --check-mail    # Also verify MX, SPF and DKIM records
//
// The profile and region default to AWS_PROFILE and CDK_DEFAULT_REGION.
// --rollback is accepted and ignored; use deploy --rollback to remove a stack.
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/validate-deployment@latest
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/cliutil"
	"github.com/buildinginthecloud/site/internal/validate"
)

func main() {
	cliutil.Execute(newCommand())
}

type options struct {
	logs      cliutil.LogOptions
	aws       awsenv.Context
	source    string
	target    string
	stack     string
	checkMail bool
	config    validate.Config
	rollback  *cliutil.Rollback
}

func newCommand() *cobra.Command {
	opts := options{aws: awsenv.FromEnv(), config: validate.DefaultConfig("")}

	cmd := &cobra.Command{
		Use:   "validate-deployment [dev|prod]",
		Short: "Validate a deployed domain redirect stack",
		Args:  cliutil.EnvironmentArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cliutil.Environment(args)
			if err != nil {
				return err
			}
			return run(cmd, env, opts)
		},
	}

	opts.rollback = cliutil.AcceptRollback(cmd)
	opts.logs.Register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.aws.Profile, "profile", opts.aws.Profile, "AWS profile")
	f.StringVar(&opts.aws.Region, "region", opts.aws.Region, "AWS region of the stack")
	f.StringVar(&opts.source, "source", "", "source domain (default "+opts.config.SourceDomain+")")
	f.StringVar(&opts.target, "target", "", "target domain (default "+opts.config.TargetDomain+")")
	f.StringVar(&opts.stack, "stack", "", "stack name (default domain-redirect-<env>)")
	f.DurationVar(&opts.config.Timeout, "timeout", opts.config.Timeout, "timeout of a single check")
	f.BoolVar(&opts.checkMail, "check-mail", false, "also validate the mail DNS records")
	return cmd
}

func run(cmd *cobra.Command, env string, opts options) error {
	logger, err := opts.logs.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	opts.rollback.Notify(cmd.ErrOrStderr())

	config := validate.DefaultConfig(env)
	config.Timeout = opts.config.Timeout
	config.CheckMail = opts.checkMail
	if opts.source != "" {
		config.SourceDomain = opts.source
	}
	if opts.target != "" {
		config.TargetDomain = opts.target
	}
	if opts.stack != "" {
		config.StackName = opts.stack
	}

	ctx := cmd.Context()
	clients, err := awsenv.NewClients(ctx, opts.aws)
	if err != nil {
		return err
	}
	logger.Debug("validating deployment",
		zap.String("stack", config.StackName),
		zap.String("profile", opts.aws.Profile),
		zap.String("region", clients.Region()))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\nRegion: %s\n", opts.aws.Profile, clients.Region())

	v := validate.New(config, validate.Deps{
		CloudFormation: clients.CloudFormation(),
		CloudFront:     clients.CloudFront(),
		Route53:        clients.Route53(),
		Logger:         logger,
		Out:            out,
	})
	report := v.Run(ctx)
	validate.Print(out, report)

	if !report.OK() {
		return cliutil.ErrFailed
	}
	return nil
}
