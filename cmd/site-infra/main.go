// site-infra is the CDK app of the website. cdk.json runs it for cdk synth,
// diff and deploy.
//
// The site configuration is read from the file named by the "config"
// context value (default site.yaml). When that file does not exist the
// built-in production configuration is used. The deployment stage comes
// from `--context environment=<dev|prod>`.
//
// Examples:
//
//	cdk synth
//	cdk deploy domain-redirect-prod --context environment=prod
//	cdk diff --context config=site.dev.yaml
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/aws/jsii-runtime-go"

	"github.com/buildinginthecloud/site/infra"
)

const (
	// contextConfig is the CDK context key holding the config file path.
	contextConfig     = "config"
	defaultConfigFile = "site.yaml"
)

func main() {
	defer jsii.Close()

	app := infra.NewApp()

	config := loadConfig(infra.ContextString(app, contextConfig, defaultConfigFile))
	if env := infra.ContextString(app, infra.ContextEnvironment, ""); env != "" {
		config.Environment = env
	}
	if config.Account == "" {
		config.Account = os.Getenv("CDK_DEFAULT_ACCOUNT")
	}

	infra.NewSite(app, config)
	infra.Synth(app)
}

func loadConfig(path string) infra.SiteConfig {
	config, err := infra.LoadSiteConfigFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return infra.ExampleSiteConfig()
	}
	if err != nil {
		panic(err)
	}
	return *config
}
