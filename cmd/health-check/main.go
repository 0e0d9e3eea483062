// health-check verifies that the source domain redirects to the target
// domain. It exits 0 when enough URLs redirect correctly and 1 otherwise,
// so it can run from cron jobs and CI pipelines.
//
// Usage:
//
//	health-check [dev|prod] [flags]
//
// Examples:
//
//	health-check                                  # Check buildinginthecloud.com -> yvovanzee.nl
//	health-check prod --timeout 10s               # Allow slower responses
//	health-check --source example.com --target example.org
//
// Both environments serve the same public domains, so the environment only
// appears in the log output. --rollback is accepted and ignored; use
// deploy --rollback to remove a stack.
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/health-check@latest
package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/cliutil"
	"github.com/buildinginthecloud/site/internal/healthcheck"
	"github.com/buildinginthecloud/site/internal/probe"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

func main() {
	cliutil.Execute(newCommand())
}

func newCommand() *cobra.Command {
	var (
		logs   cliutil.LogOptions
		config = healthcheck.Config{
			SourceDomain: sitemeta.DomainName,
			TargetDomain: sitemeta.RedirectTarget,
			Timeout:      probe.DefaultTimeout,
		}
	)

	cmd := &cobra.Command{
		Use:   "health-check [dev|prod]",
		Short: "Check that the source domain redirects to the target domain",
		Args:  cliutil.EnvironmentArg,
	}
	rollback := cliutil.AcceptRollback(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		env, err := cliutil.Environment(args)
		if err != nil {
			return err
		}
		logger, err := logs.Logger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		rollback.Notify(cmd.ErrOrStderr())
		logger.Debug("checking redirect",
			zap.String("environment", env),
			zap.String("source", config.SourceDomain),
			zap.String("target", config.TargetDomain))

		report := healthcheck.New(config, probe.New(config.Timeout), logger).Run(cmd.Context())
		healthcheck.Print(cmd.OutOrStdout(), report)
		if !report.Healthy() {
			return cliutil.ErrFailed
		}
		return nil
	}

	logs.Register(cmd)
	cmd.Flags().StringVar(&config.SourceDomain, "source", config.SourceDomain, "domain expected to redirect")
	cmd.Flags().StringVar(&config.TargetDomain, "target", config.TargetDomain, "domain the redirects must point to")
	cmd.Flags().DurationVar(&config.Timeout, "timeout", config.Timeout, "timeout of a single request")
	return cmd
}
