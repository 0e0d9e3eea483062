// Package sitemeta holds the names shared by the CDK app and the operational
// tools: domains, deployment stages, stack names and mail records. It has no
// CDK dependency so the tools stay small.
package sitemeta

import (
	"fmt"
	"slices"
)

const (
	// DomainName is the apex domain of the website.
	DomainName = "buildinginthecloud.com"

	// RedirectTarget is the domain the redirect stack forwards to.
	RedirectTarget = "yvovanzee.nl"

	// DefaultEnvironment is used when no environment is given.
	DefaultEnvironment = "dev"

	// StaticHostingStack is the stack name of the static website.
	StaticHostingStack = "static-hosting"

	// GitHubTokenSecret is the Secrets Manager secret holding the GitHub
	// token Amplify reads the repository with.
	GitHubTokenSecret = "github-token"

	// WebsitePath is where the static export of the site is written.
	WebsitePath = "./website/out"
)

// Environments are the deployment stages the redirect stack is deployed to.
var Environments = []string{"dev", "prod"}

// ValidEnvironment reports whether env is a known deployment stage.
func ValidEnvironment(env string) bool {
	return slices.Contains(Environments, env)
}

// RedirectStackName returns the redirect stack name of an environment.
func RedirectStackName(environment string) string {
	return "domain-redirect-" + environment
}

// MailExchange is a single MX target.
type MailExchange struct {
	Priority int
	Host     string
}

// MailExchanges are the iCloud custom domain mail servers.
var MailExchanges = []MailExchange{
	{Priority: 10, Host: "mx01.mail.icloud.com"},
	{Priority: 20, Host: "mx02.mail.icloud.com"},
}

const (
	// SPFRecord authorises iCloud to send mail for the domain.
	SPFRecord = "v=spf1 include:icloud.com ~all"

	// DKIMSelector is the selector iCloud signs with.
	DKIMSelector = "sig1"
)

// DKIMRecordName returns the DKIM CNAME name for domain.
func DKIMRecordName(domain string) string {
	return fmt.Sprintf("%s._domainkey.%s", DKIMSelector, domain)
}

// DKIMTarget returns the iCloud-hosted DKIM key name for domain.
func DKIMTarget(domain string) string {
	return fmt.Sprintf("%s.dkim.%s.at.icloudmailadmin.com", DKIMSelector, domain)
}
