package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"gopkg.in/yaml.v3"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

const (
	// DefaultDomainName is the apex domain of the website.
	DefaultDomainName = sitemeta.DomainName

	// DefaultGitHubOwner is the GitHub account hosting the website repository.
	DefaultGitHubOwner = "buildinginthecloud"

	// DefaultGitHubRepo is the website repository name.
	DefaultGitHubRepo = "buildinginthecloud.com"

	// DefaultRedirectTarget is the domain the redirect stack forwards to.
	DefaultRedirectTarget = sitemeta.RedirectTarget

	// DefaultRegion is the primary region for regional resources.
	DefaultRegion = "eu-central-1"

	// CertificateRegion is the only region CloudFront accepts certificates from.
	CertificateRegion = "us-east-1"
)

var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// StackEnv pins a stack to an account and region.
// An empty StackEnv produces an environment-agnostic stack.
type StackEnv struct {
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
}

// IsZero reports whether neither account nor region is set.
func (e StackEnv) IsZero() bool {
	return e.Account == "" && e.Region == ""
}

func (e StackEnv) environment() *awscdk.Environment {
	if e.IsZero() {
		return nil
	}
	env := &awscdk.Environment{}
	if e.Account != "" {
		env.Account = jsii.String(e.Account)
	}
	if e.Region != "" {
		env.Region = jsii.String(e.Region)
	}
	return env
}

// StackOptions holds the fields every stack configuration shares.
type StackOptions struct {
	// StackName is the CloudFormation stack name.
	StackName string `json:"stackName,omitempty" yaml:"stackName,omitempty"`

	// Description is the CloudFormation stack description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Env pins the stack to an account and region.
	Env StackEnv `json:"env,omitempty" yaml:"env,omitempty"`

	// CrossRegionReferences allows consuming values exported by stacks
	// in other regions, such as the us-east-1 certificate.
	CrossRegionReferences bool `json:"crossRegionReferences,omitempty" yaml:"crossRegionReferences,omitempty"`

	// Tags are applied to every taggable resource in the stack.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func (o StackOptions) stackProps(defaultName string) *awscdk.StackProps {
	props := &awscdk.StackProps{
		Env:                   o.Env.environment(),
		Tags:                  convertTags(o.Tags),
		CrossRegionReferences: jsii.Bool(o.CrossRegionReferences),
	}
	if o.StackName != "" {
		props.StackName = jsii.String(o.StackName)
	} else if defaultName != "" {
		props.StackName = jsii.String(defaultName)
	}
	if o.Description != "" {
		props.Description = jsii.String(o.Description)
	}
	return props
}

// convertTags converts a Go map to CDK tags format.
func convertTags(tags map[string]string) *map[string]*string {
	if len(tags) == 0 {
		return nil
	}
	result := make(map[string]*string, len(tags))
	for k, v := range tags {
		result[k] = jsii.String(v)
	}
	return &result
}

// dashed turns a domain name into a resource-name friendly slug.
func dashed(domain string) string {
	return strings.ReplaceAll(domain, ".", "-")
}

// validateDomain checks that name looks like a lowercase DNS name.
func validateDomain(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !domainPattern.MatchString(name) {
		return fmt.Errorf("%s %q is not a valid domain name", field, name)
	}
	return nil
}

// joinErrors collects non-nil errors in order.
func joinErrors(errs ...error) error {
	return errors.Join(errs...)
}

// Duration is a time.Duration written as "1h" or "90m" in config files.
// JSON numbers are read as seconds.
type Duration struct {
	time.Duration
}

// IsZero reports whether d is unset.
func (d Duration) IsZero() bool {
	return d.Duration == 0
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		d.Duration = time.Duration(seconds * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}
