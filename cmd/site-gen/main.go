// site-gen writes feed.xml, sitemap.xml and robots.txt for the blog.
//
// Usage:
//
//	site-gen [flags]
//
// Examples:
//
//	site-gen                                       # Read ./content/blog, write ./public
//	site-gen --content posts --out website/public
//	site-gen --url https://staging.buildinginthecloud.com
//
// Install:
//
//	go install github.com/buildinginthecloud/site/cmd/site-gen@latest
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/content"
	"github.com/buildinginthecloud/site/feed"
	"github.com/buildinginthecloud/site/internal/cliutil"
)

func main() {
	cliutil.Execute(newCommand())
}

type options struct {
	logs       cliutil.LogOptions
	contentDir string
	outDir     string
	siteURL    string
}

func newCommand() *cobra.Command {
	opts := options{contentDir: "content/blog", outDir: "public"}

	cmd := &cobra.Command{
		Use:   "site-gen",
		Short: "Generate the RSS feed, sitemap and robots.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	opts.logs.Register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.contentDir, "content", opts.contentDir, "directory with the blog posts")
	f.StringVar(&opts.outDir, "out", opts.outDir, "directory the files are written to")
	f.StringVar(&opts.siteURL, "url", "", "site URL (default "+feed.DefaultSite().URL+")")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	logger, err := opts.logs.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := content.Open(opts.contentDir)
	if err != nil {
		return err
	}
	logger.Debug("loaded posts", zap.String("dir", opts.contentDir), zap.Int("posts", store.Len()))

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", opts.outDir, err)
	}

	site := feed.DefaultSite().WithURL(opts.siteURL)
	if err := feed.WriteAll(opts.outDir, site, store, time.Now()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range []string{feed.FeedFile, feed.SitemapFile, feed.RobotsFile} {
		fmt.Fprintf(out, "Generated %s/%s\n", opts.outDir, name)
	}
	fmt.Fprintf(out, "Posts: %d published\n", len(store.AllPosts()))
	return nil
}
