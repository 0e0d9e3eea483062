// publish uploads the exported website to the static hosting bucket and
// invalidates the CloudFront distribution.
//
// Usage:
//
//	publish [flags]
//
// Examples:
//
//	publish                              # Upload ./website/out using the static-hosting stack outputs
//	publish --dir dist --wait            # Upload dist and wait for the invalidation
//	publish --bucket b --distribution E1 # Skip the stack lookup
//	publish --dry-run                    # List what would be uploaded
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/publish@latest
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/awsenv"
	"github.com/buildinginthecloud/site/internal/cliutil"
	"github.com/buildinginthecloud/site/internal/publish"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

func main() {
	cliutil.Execute(newCommand())
}

type options struct {
	logs   cliutil.LogOptions
	aws    awsenv.Context
	dir    string
	config publish.Config
}

func newCommand() *cobra.Command {
	opts := options{
		aws:    awsenv.FromEnv(),
		dir:    sitemeta.WebsitePath,
		config: publish.Config{StackName: sitemeta.StaticHostingStack},
	}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the website and invalidate the CDN cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	opts.logs.Register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.aws.Profile, "profile", opts.aws.Profile, "AWS profile")
	f.StringVar(&opts.aws.Region, "region", opts.aws.Region, "AWS region of the static hosting stack")
	f.StringVar(&opts.dir, "dir", opts.dir, "directory with the exported website")
	f.StringVar(&opts.config.StackName, "stack", opts.config.StackName, "static hosting stack name")
	f.StringVar(&opts.config.Bucket, "bucket", "", "bucket name (default: stack output "+publish.OutputBucket+")")
	f.StringVar(&opts.config.DistributionID, "distribution", "", "distribution id (default: stack output "+publish.OutputDistribution+")")
	f.BoolVar(&opts.config.Wait, "wait", false, "wait for the invalidation to complete")
	f.BoolVar(&opts.config.DryRun, "dry-run", false, "list the uploads without performing them")
	f.IntVar(&opts.config.Concurrency, "concurrency", publish.DefaultConcurrency, "parallel uploads")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	logger, err := opts.logs.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	info, err := os.Stat(opts.dir)
	if err != nil {
		return fmt.Errorf("website directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("website directory: %s is not a directory", opts.dir)
	}

	ctx := cmd.Context()
	clients, err := awsenv.NewClients(ctx, opts.aws)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := publish.New(opts.config, publish.Deps{
		S3:             clients.S3(),
		CloudFront:     clients.CloudFront(),
		CloudFormation: clients.CloudFormation(),
		Logger:         logger,
		Out:            out,
	})

	sum, err := p.Publish(ctx, os.DirFS(opts.dir))
	if err != nil {
		return err
	}
	logger.Info("published",
		zap.String("bucket", sum.Bucket),
		zap.Int("files", sum.Files),
		zap.Int64("bytes", sum.Bytes),
		zap.String("invalidation", sum.InvalidationID))

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Publish Complete ===")
	return nil
}
